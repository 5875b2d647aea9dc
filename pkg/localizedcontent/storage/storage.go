// Package storage holds what the FileStore backends share: mapping object
// keys to the public references handed to clients and back.
package storage

import (
	"fmt"
	"strings"

	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// Locator converts between object keys and public references.
type Locator struct {
	// PublicURL is prepended to every key, e.g. "/uploads" or
	// "https://cdn.example.com". Empty yields bare keys.
	PublicURL string
}

// URL returns the public reference of key.
func (l Locator) URL(key string) string {
	if l.PublicURL == "" {
		return key
	}
	return strings.TrimRight(l.PublicURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// Key returns the object key behind a reference produced by URL. References
// from another origin or escaping the key space yield ErrFileNotFound.
func (l Locator) Key(url string) (string, error) {
	key := url
	if l.PublicURL != "" {
		prefix := strings.TrimRight(l.PublicURL, "/") + "/"
		if !strings.HasPrefix(url, prefix) {
			return "", fmt.Errorf("%w: %s is not under %s", lc.ErrFileNotFound, url, prefix)
		}
		key = strings.TrimPrefix(url, prefix)
	}
	key = strings.TrimLeft(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid reference %q", lc.ErrFileNotFound, url)
	}
	return key, nil
}

package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"github.com/tendant/localized-content/pkg/localizedcontent/storage"
)

type object struct {
	data        []byte
	contentType string
}

// Backend is an in-memory implementation of the localizedcontent.FileStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
	locator storage.Locator
}

// New creates a new in-memory file store. publicURL prefixes the returned
// references.
func New(publicURL string) *Backend {
	return &Backend{
		objects: make(map[string]object),
		locator: storage.Locator{PublicURL: publicURL},
	}
}

var _ lc.FileStore = (*Backend)(nil)

// Save stores the content under key
func (b *Backend) Save(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = object{data: data, contentType: contentType}
	return b.locator.URL(key), nil
}

// Delete removes the object behind url
func (b *Backend) Delete(ctx context.Context, url string) error {
	key, err := b.locator.Key(url)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; !exists {
		return lc.ErrFileNotFound
	}
	delete(b.objects, key)
	return nil
}

// Has reports whether a file exists behind url
func (b *Backend) Has(url string) bool {
	key, err := b.locator.Key(url)
	if err != nil {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[key]
	return exists
}

// Len returns the number of stored objects
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

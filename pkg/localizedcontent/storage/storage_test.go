package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"github.com/tendant/localized-content/pkg/localizedcontent/storage"
)

func TestLocatorRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		key       string
		url       string
	}{
		{"relative prefix", "/uploads", "posts/images/a.png", "/uploads/posts/images/a.png"},
		{"trailing slash", "https://cdn.example.com/", "posts/pdfs/b.pdf", "https://cdn.example.com/posts/pdfs/b.pdf"},
		{"no prefix", "", "posts/videos/c.mp4", "posts/videos/c.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := storage.Locator{PublicURL: tt.publicURL}
			assert.Equal(t, tt.url, l.URL(tt.key))

			key, err := l.Key(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestLocatorRejectsForeignReferences(t *testing.T) {
	l := storage.Locator{PublicURL: "/uploads"}

	for _, url := range []string{
		"https://elsewhere.example/posts/a.png",
		"/uploads/",
		"/uploads/../secret",
	} {
		_, err := l.Key(url)
		assert.ErrorIs(t, err, lc.ErrFileNotFound, url)
	}
}

package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"github.com/tendant/localized-content/pkg/localizedcontent/storage"
)

// Backend is a filesystem implementation of the localizedcontent.FileStore interface
type Backend struct {
	baseDir string
	locator storage.Locator
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	PublicURL string // Prefix of the returned references, e.g. "/uploads"
}

// New creates a new filesystem file store
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir: config.BaseDir,
		locator: storage.Locator{PublicURL: config.PublicURL},
	}, nil
}

var _ lc.FileStore = (*Backend)(nil)

// BaseDir returns the directory files are stored under
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// Save writes the content to baseDir/key. The content type is not kept;
// it is detected when the file is served.
func (b *Backend) Save(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		_ = os.Remove(filePath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return b.locator.URL(key), nil
}

// Delete removes the file behind url
func (b *Backend) Delete(ctx context.Context, url string) error {
	key, err := b.locator.Key(url)
	if err != nil {
		return err
	}
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(key))

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return lc.ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// cleanupEmptyDirectories removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	base := filepath.Clean(b.baseDir)
	if dir == base || !strings.HasPrefix(dir, base+string(filepath.Separator)) {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}

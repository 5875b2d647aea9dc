package s3

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestDefaultPublicURL(t *testing.T) {
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com",
		defaultPublicURL(Config{Bucket: "media", Region: "eu-west-1"}))
	assert.Equal(t, "http://localhost:9000/media",
		defaultPublicURL(Config{Bucket: "media", Endpoint: "http://localhost:9000/"}))
}

func TestNewUsesConfiguredPublicURL(t *testing.T) {
	backend, err := New(context.Background(), Config{
		Bucket:          "media",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PublicURL:       "https://cdn.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/posts/images/a.png", backend.locator.URL("posts/images/a.png"))
	assert.Equal(t, "us-east-1", backend.config.Region)
}

// TestBackendIntegration needs a MinIO or S3 bucket named by TEST_S3_BUCKET.
func TestBackendIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	bucket := os.Getenv("TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping integration test: TEST_S3_BUCKET not set")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Bucket:                 bucket,
		Region:                 os.Getenv("AWS_REGION"),
		AccessKeyID:            os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey:        os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:               os.Getenv("AWS_S3_ENDPOINT"),
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	key := fmt.Sprintf("test/integration/%d/file.txt", time.Now().UnixNano())
	url, err := backend.Save(ctx, key, strings.NewReader("hello"), "text/plain")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, key))

	require.NoError(t, backend.Delete(ctx, url))
	assert.ErrorIs(t, backend.Delete(ctx, url), lc.ErrFileNotFound)
}

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
	"github.com/tendant/localized-content/pkg/localizedcontent/cache"
	"github.com/tendant/localized-content/pkg/localizedcontent/repo/memory"
	repopg "github.com/tendant/localized-content/pkg/localizedcontent/repo/postgres"
	fsstorage "github.com/tendant/localized-content/pkg/localizedcontent/storage/fs"
	memorystorage "github.com/tendant/localized-content/pkg/localizedcontent/storage/memory"
	s3storage "github.com/tendant/localized-content/pkg/localizedcontent/storage/s3"
)

// Services is what BuildService wires together.
type Services struct {
	Content lc.Service
	Files   lc.FileStore

	// FileDir is the directory stored files live in when filesystem storage
	// is configured, so the server can expose them under StoragePublicURL.
	FileDir string

	closers []func()
}

// Close releases pools and clients in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// stores groups the three store roles a repository fills.
type stores interface {
	lc.Repository
	lc.TranslationStore
	lc.FavoriteStore
}

// BuildService creates the Service and its collaborators from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	services := &Services{}

	repo, err := c.buildRepository(ctx, services)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	var translations lc.TranslationStore = repo
	if c.RedisURL != "" {
		client, err := cache.Dial(ctx, c.RedisURL)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.closers = append(services.closers, func() { _ = client.Close() })
		translations = cache.New(repo, client, cache.Options{
			TTL:    c.TranslationCacheTTL,
			Logger: logger,
		})
	}

	files, err := c.buildFileStore(ctx, services)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to build file store: %w", err)
	}
	services.Files = files

	options := []lc.Option{
		lc.WithRepository(repo),
		lc.WithTranslationStore(translations),
		lc.WithFavoriteStore(repo),
		lc.WithFileStore(files),
		lc.WithLogger(logger),
		lc.WithOverlayConcurrency(c.OverlayConcurrency),
	}
	if c.CompensateOnFailure {
		options = append(options, lc.WithCompensateOnFailure())
	}

	services.Content, err = lc.New(options...)
	if err != nil {
		services.Close()
		return nil, err
	}
	return services, nil
}

// buildRepository creates the store based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context, services *Services) (stores, error) {
	switch c.DatabaseType() {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := NewPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		services.closers = append(services.closers, pool.Close)
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType())
	}
}

// NewPool opens a pgx pool whose sessions use schema as search_path.
func NewPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// buildFileStore creates the FileStore based on STORAGE_URL
func (c *ServerConfig) buildFileStore(ctx context.Context, services *Services) (lc.FileStore, error) {
	switch c.StorageType() {
	case "memory":
		return memorystorage.New(c.StoragePublicURL), nil

	case "fs":
		services.FileDir = c.fsPath()
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.fsPath(),
			PublicURL: c.StoragePublicURL,
		})

	case "s3":
		s3cfg := c.s3Overrides()
		publicURL := c.StoragePublicURL
		if publicURL == defaults().StoragePublicURL {
			// S3 objects are addressed on the bucket endpoint unless a public URL is set.
			publicURL = ""
		}
		return s3storage.New(ctx, s3storage.Config{
			Region:                 s3cfg.Region,
			Bucket:                 c.s3Bucket(),
			AccessKeyID:            s3cfg.AccessKeyID,
			SecretAccessKey:        s3cfg.SecretAccessKey,
			Endpoint:               s3cfg.Endpoint,
			UsePathStyle:           s3cfg.UsePathStyle,
			PublicURL:              publicURL,
			CreateBucketIfNotExist: s3cfg.CreateBucket,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageURL)
	}
}

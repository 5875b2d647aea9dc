package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// WithEnv reads the configuration from environment variables:
//
//	ENVIRONMENT            development, production, testing
//	DATABASE_URL           "memory" (default) or "postgres://..."
//	DB_SCHEMA              postgres search_path (default: public)
//	AUTO_MIGRATE           apply embedded migrations on start (default: true)
//	STORAGE_URL            "memory://", "file:///path/to/data" or "s3://bucket?region=..."
//	STORAGE_PUBLIC_URL     prefix of stored file references (default: /uploads)
//	AWS_*                  S3 credentials, region and endpoint
//	REDIS_URL              enables the translation cache
//	TRANSLATION_CACHE_TTL  e.g. "10m"
//	JWT_SECRET             HS256 secret; required in production
//	MAX_REQUEST_BYTES      whole request body limit (default: 500000000)
//	MAX_UPLOAD_BYTES       per-file upload limit (default: 100000000)
//	MAX_GALLERY_FILES      gallery images per request (default: 100)
//	OVERLAY_CONCURRENCY    posts localized at once (default: 8)
//	COMPENSATE_ON_FAILURE  undo completed steps of a failed write
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("reading environment: %w", err)
		}
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase sets the database URL ("memory" or "postgres://...")
func WithDatabase(url string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithStorage sets the storage URL and the public prefix of stored files
func WithStorage(storageURL, publicURL string) Option {
	return func(c *ServerConfig) error {
		c.StorageURL = storageURL
		c.StoragePublicURL = publicURL
		return nil
	}
}

// WithRedis enables the translation cache
func WithRedis(url string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		if url == "" {
			return fmt.Errorf("redis URL cannot be empty")
		}
		c.RedisURL = url
		if ttl > 0 {
			c.TranslationCacheTTL = ttl
		}
		return nil
	}
}

// WithJWTSecret sets the HS256 token secret
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithUploadLimits sets the per-file size limit and the gallery size limit
func WithUploadLimits(maxBytes int64, maxGalleryFiles int) Option {
	return func(c *ServerConfig) error {
		if maxBytes <= 0 || maxGalleryFiles <= 0 {
			return fmt.Errorf("upload limits must be positive")
		}
		c.MaxUploadBytes = maxBytes
		c.MaxGalleryFiles = maxGalleryFiles
		return nil
	}
}

// WithCompensateOnFailure makes failed writes undo their completed steps
func WithCompensateOnFailure(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.CompensateOnFailure = enabled
		return nil
	}
}

// WithRequestLimit caps the size of a whole request body
func WithRequestLimit(maxBytes int64) Option {
	return func(c *ServerConfig) error {
		if maxBytes <= 0 {
			return fmt.Errorf("request limit must be positive")
		}
		c.MaxRequestBytes = maxBytes
		return nil
	}
}

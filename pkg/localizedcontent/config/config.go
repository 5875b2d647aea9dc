package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Environment:         "development",
		DatabaseURL:         "memory",
		DBSchema:            "public",
		AutoMigrate:         true,
		StorageURL:          "memory://",
		StoragePublicURL:    "/uploads",
		S3:                  S3Config{Region: "us-east-1"},
		TranslationCacheTTL: 10 * time.Minute,
		MaxRequestBytes:     500000000,
		MaxUploadBytes:      100000000,
		MaxGalleryFiles:     100,
		OverlayConcurrency:  8,
	}
}

// ServerConfig represents server configuration for the localized content service.
// The listen address is owned by the chi-demo app and read from its own
// environment.
type ServerConfig struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing

	// Database configuration: "memory" or a postgres:// URL
	DatabaseURL string `env:"DATABASE_URL" env-default:"memory"`
	DBSchema    string `env:"DB_SCHEMA" env-default:"public"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" env-default:"true"`

	// Storage configuration: "memory://", "file:///path" or "s3://bucket"
	StorageURL       string `env:"STORAGE_URL" env-default:"memory://"`
	StoragePublicURL string `env:"STORAGE_PUBLIC_URL" env-default:"/uploads"`
	S3               S3Config

	// Translation cache; disabled when RedisURL is empty
	RedisURL            string        `env:"REDIS_URL"`
	TranslationCacheTTL time.Duration `env:"TRANSLATION_CACHE_TTL" env-default:"10m"`

	JWTSecret string `env:"JWT_SECRET"`

	// Upload limits
	MaxRequestBytes int64 `env:"MAX_REQUEST_BYTES" env-default:"500000000"`
	MaxUploadBytes  int64 `env:"MAX_UPLOAD_BYTES" env-default:"100000000"`
	MaxGalleryFiles int   `env:"MAX_GALLERY_FILES" env-default:"100"`

	OverlayConcurrency  int  `env:"OVERLAY_CONCURRENCY" env-default:"8"`
	CompensateOnFailure bool `env:"COMPENSATE_ON_FAILURE" env-default:"false"`
}

// S3Config holds the S3 settings used when StorageURL is s3://
type S3Config struct {
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// DatabaseType returns "memory" or "postgres".
func (c *ServerConfig) DatabaseType() string {
	if c.DatabaseURL == "" || c.DatabaseURL == "memory" {
		return "memory"
	}
	return "postgres"
}

// StorageType returns "memory", "fs" or "s3".
func (c *ServerConfig) StorageType() string {
	switch {
	case c.StorageURL == "" || c.StorageURL == "memory" || strings.HasPrefix(c.StorageURL, "memory://"):
		return "memory"
	case strings.HasPrefix(c.StorageURL, "file://"):
		return "fs"
	case strings.HasPrefix(c.StorageURL, "s3://"):
		return "s3"
	}
	return ""
}

// IsProduction reports whether the server runs in production.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.DatabaseType() == "postgres" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgres://...')", c.DatabaseURL)
	}

	switch c.StorageType() {
	case "":
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", c.StorageURL)
	case "fs":
		if c.fsPath() == "" {
			return errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
	case "s3":
		if c.s3Bucket() == "" {
			return errors.New("S3 bucket name cannot be empty in STORAGE_URL")
		}
	}

	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.MaxRequestBytes < c.MaxUploadBytes {
		return errors.New("MAX_REQUEST_BYTES must be at least MAX_UPLOAD_BYTES")
	}
	if c.MaxGalleryFiles <= 0 {
		return errors.New("MAX_GALLERY_FILES must be positive")
	}
	if c.OverlayConcurrency <= 0 {
		return errors.New("OVERLAY_CONCURRENCY must be positive")
	}
	return nil
}

func (c *ServerConfig) fsPath() string {
	return strings.TrimPrefix(c.StorageURL, "file://")
}

// s3Bucket extracts the bucket of s3://bucket?region=...
func (c *ServerConfig) s3Bucket() string {
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// s3Overrides applies region and endpoint query parameters of STORAGE_URL.
func (c *ServerConfig) s3Overrides() S3Config {
	cfg := c.S3
	u, err := url.Parse(c.StorageURL)
	if err != nil {
		return cfg
	}
	q := u.Query()
	if v := q.Get("region"); v != "" {
		cfg.Region = v
	}
	if v := q.Get("endpoint"); v != "" {
		cfg.Endpoint = v
		cfg.UsePathStyle = true
	}
	return cfg
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/localized-content/internal/messages"
	"github.com/tendant/localized-content/pkg/localizedcontent/api"
	"github.com/tendant/localized-content/pkg/localizedcontent/config"
)

const devJWTSecret = "localized-content-dev-secret"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", "err", err)
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.IsProduction())
	slog.SetDefault(logger)

	ctx := context.Background()
	services, err := cfg.BuildService(ctx, logger)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer services.Close()

	catalog, err := messages.New()
	if err != nil {
		slog.Error("Failed to load messages", "err", err)
		os.Exit(1)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		slog.Warn("JWT_SECRET not set, using development secret")
		secret = devJWTSecret
	}
	tokenAuth := jwtauth.New("HS256", []byte(secret), nil)

	limits := api.Limits{
		MaxRequestBytes: cfg.MaxRequestBytes,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		MaxGalleryFiles: cfg.MaxGalleryFiles,
	}
	postsHandler := api.NewPostsHandler(services.Content, services.Files, catalog, tokenAuth, limits, logger)
	categoriesHandler := api.NewCategoriesHandler(services.Content, catalog, tokenAuth, logger)

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Route("/api", func(r chi.Router) {
		r.Mount("/posts", postsHandler.Routes())
		r.Mount("/categories", categoriesHandler.Routes())
	})

	if services.FileDir != "" && strings.HasPrefix(cfg.StoragePublicURL, "/") {
		prefix := strings.TrimSuffix(cfg.StoragePublicURL, "/")
		server.R.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(services.FileDir))))
		slog.Info("Serving stored files", "dir", services.FileDir, "prefix", prefix)
	}

	slog.Info("Starting localized content server",
		"environment", cfg.Environment,
		"database", cfg.DatabaseType(),
		"storage", cfg.StorageType(),
		"translation_cache", cfg.RedisURL != "",
	)
	server.Run()
}

func newLogger(production bool) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}

package localizedcontent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service defines the main interface for localized post management
type Service interface {
	// Write operations
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)
	UpdatePost(ctx context.Context, req UpdatePostRequest) (*UpdatePostResult, error)
	RemovePost(ctx context.Context, id int64) (*RemovePostResult, error)
	MarkFeatured(ctx context.Context, id int64, featured bool) error
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)

	// Read operations; every returned post is localized
	GetPost(ctx context.Context, id int64, lang Language) (*LocalizedPost, error)
	ListPosts(ctx context.Context, req ListPostsRequest) (*PostPage, error)
	FeaturedPosts(ctx context.Context, lang Language) ([]*LocalizedPost, error)
	ScreenWise(ctx context.Context, req ScreenWiseRequest) (*ScreenWise, error)
	PostsByCategory(ctx context.Context, categoryID int64, lang Language) (*PostPage, error)
	GetTranslation(ctx context.Context, postID int64, lang Language, key string) (*TranslationEntry, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)

	// History operations
	RecordView(ctx context.Context, userID, postID int64) error
	PostHistory(ctx context.Context, userID int64, page, limit int, lang Language) (*PostPage, error)

	// Favorite operations
	ToggleFavorite(ctx context.Context, userID, postID int64) (bool, error)
	ListFavorites(ctx context.Context, userID int64, lang Language) ([]*LocalizedPost, error)
	FavoritePostIDs(ctx context.Context, userID int64) ([]int64, error)
}

// service implements the Service interface
type service struct {
	repository   Repository
	translations TranslationStore
	favorites    FavoriteStore
	files        FileStore
	overlay      *Overlay
	logger       *slog.Logger
	now          func() time.Time

	overlayConcurrency  int
	compensateOnFailure bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the relational repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithTranslationStore sets the store translations are read from and written to
func WithTranslationStore(store TranslationStore) Option {
	return func(s *service) {
		s.translations = store
	}
}

// WithFavoriteStore sets the favorite association store
func WithFavoriteStore(store FavoriteStore) Option {
	return func(s *service) {
		s.favorites = store
	}
}

// WithFileStore sets the store uploaded files are saved to
func WithFileStore(store FileStore) Option {
	return func(s *service) {
		s.files = store
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithOverlayConcurrency bounds how many posts are localized at once
func WithOverlayConcurrency(n int) Option {
	return func(s *service) {
		s.overlayConcurrency = n
	}
}

// WithCompensateOnFailure makes create and update undo their completed steps
// before returning a *PartialWriteError.
func WithCompensateOnFailure() Option {
	return func(s *service) {
		s.compensateOnFailure = true
	}
}

// WithClock overrides the time source used for creation timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.translations == nil {
		return nil, fmt.Errorf("translation store is required")
	}
	if s.favorites == nil {
		return nil, fmt.Errorf("favorite store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.overlay = NewOverlay(s.translations, s.overlayConcurrency)
	return s, nil
}

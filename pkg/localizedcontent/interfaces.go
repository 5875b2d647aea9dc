package localizedcontent

import (
	"context"
	"io"
)

// TranslationStore persists TranslationEntry rows keyed by
// (module, module_id, language, key).
type TranslationStore interface {
	// FindTranslation returns ErrTranslationNotFound when no row matches
	FindTranslation(ctx context.Context, key TranslationKey) (*TranslationEntry, error)

	// CreateTranslation inserts entry and assigns its ID
	CreateTranslation(ctx context.Context, entry *TranslationEntry) error

	// UpdateTranslation replaces the value of an existing row
	UpdateTranslation(ctx context.Context, id int64, value string) (*TranslationEntry, error)

	// DeleteTranslation removes a row by ID
	DeleteTranslation(ctx context.Context, id int64) error
}

// PostOrder selects the ordering of ListPosts results.
type PostOrder int

const (
	// OrderNewest orders by creation time, newest first
	OrderNewest PostOrder = iota
	// OrderOldest orders by creation time, oldest first
	OrderOldest
)

// PostFilter narrows ListPosts. Zero values disable a criterion.
type PostFilter struct {
	// CategoryID matches posts linked to the category or any descendant
	CategoryID *int64
	// Title is a case-insensitive substring match on the title in any language
	Title string
	// Featured restricts to featured (true) or non-featured (false) posts
	Featured *bool
	// HasMedia restricts to posts with a file in the given slot
	HasMedia MediaKind
	// Page is 1-based; Limit 0 disables pagination
	Page  int
	Limit int
	Order PostOrder
}

// Repository defines the relational persistence the engine consumes
type Repository interface {
	// Post operations. GetPost and ListPosts load Categories and Images.
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id int64) (*Post, error)
	UpdatePost(ctx context.Context, post *Post) error
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, filter PostFilter) ([]*Post, int, error)

	// Category operations
	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	GetPostCategoryIDs(ctx context.Context, postID int64) ([]int64, error)
	SetPostCategories(ctx context.Context, postID int64, categoryIDs []int64) error

	// Media operations
	CreateMedia(ctx context.Context, media *MediaAttachment) error
	ListMedia(ctx context.Context, module string, moduleID int64) ([]*MediaAttachment, error)
	DeleteMedia(ctx context.Context, id int64) error

	// History operations
	AddHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistory(ctx context.Context, userID int64, page, limit int) ([]*HistoryEntry, int, error)
}

// FavoriteStore keeps the (user, post) favorite association.
type FavoriteStore interface {
	// ToggleFavorite inserts the pair when absent and deletes it when present,
	// as one store operation. It reports whether the pair now exists.
	ToggleFavorite(ctx context.Context, userID, postID int64) (bool, error)

	// ListFavorites returns every favorite of a user
	ListFavorites(ctx context.Context, userID int64) ([]*Favorite, error)
}

// FileStore saves and removes uploaded bytes. It is owned by the storage
// layer; the engine only stores new files and hands back references.
type FileStore interface {
	// Save stores the content under key and returns its public reference
	Save(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)

	// Delete removes the file behind a reference returned by Save
	Delete(ctx context.Context, url string) error
}

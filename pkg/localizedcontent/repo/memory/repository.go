package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// Repository implements localizedcontent.Repository, TranslationStore and
// FavoriteStore using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	posts        map[int64]*lc.Post
	categories   map[int64]*lc.Category
	postCats     map[int64][]int64 // post_id -> []category_id
	translations map[int64]*lc.TranslationEntry
	byKey        map[lc.TranslationKey]int64 // lookup key -> translation_id
	media        map[int64]*lc.MediaAttachment
	favorites    map[favoriteKey]time.Time
	history      []*lc.HistoryEntry
	nextID       map[string]int64
}

type favoriteKey struct {
	userID int64
	postID int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		posts:        make(map[int64]*lc.Post),
		categories:   make(map[int64]*lc.Category),
		postCats:     make(map[int64][]int64),
		translations: make(map[int64]*lc.TranslationEntry),
		byKey:        make(map[lc.TranslationKey]int64),
		media:        make(map[int64]*lc.MediaAttachment),
		favorites:    make(map[favoriteKey]time.Time),
		nextID:       make(map[string]int64),
	}
}

var (
	_ lc.Repository       = (*Repository)(nil)
	_ lc.TranslationStore = (*Repository)(nil)
	_ lc.FavoriteStore    = (*Repository)(nil)
)

// id returns the next identifier of a table. Callers hold the write lock.
func (r *Repository) id(table string) int64 {
	r.nextID[table]++
	return r.nextID[table]
}

// Post operations

func (r *Repository) CreatePost(ctx context.Context, post *lc.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post.ID = r.id("posts")
	stored := post.Clone()
	stored.Categories = nil
	stored.Images = nil
	r.posts[post.ID] = stored
	return nil
}

func (r *Repository) GetPost(ctx context.Context, id int64) (*lc.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, exists := r.posts[id]
	if !exists {
		return nil, lc.ErrPostNotFound
	}
	return r.loadRelations(post), nil
}

func (r *Repository) UpdatePost(ctx context.Context, post *lc.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[post.ID]; !exists {
		return lc.ErrPostNotFound
	}
	stored := post.Clone()
	stored.Categories = nil
	stored.Images = nil
	r.posts[post.ID] = stored
	return nil
}

// DeletePost removes the post with its category links, favorites and
// history. Translations and media rows are left to the caller.
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[id]; !exists {
		return lc.ErrPostNotFound
	}
	delete(r.posts, id)
	delete(r.postCats, id)
	for k := range r.favorites {
		if k.postID == id {
			delete(r.favorites, k)
		}
	}
	r.history = slices.DeleteFunc(r.history, func(h *lc.HistoryEntry) bool {
		return h.PostID == id
	})
	return nil
}

func (r *Repository) ListPosts(ctx context.Context, filter lc.PostFilter) ([]*lc.Post, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subtree map[int64]bool
	if filter.CategoryID != nil {
		subtree = r.subtree(*filter.CategoryID)
	}
	title := strings.ToLower(filter.Title)

	var matched []*lc.Post
	for _, post := range r.posts {
		if subtree != nil && !slices.ContainsFunc(r.postCats[post.ID], func(id int64) bool { return subtree[id] }) {
			continue
		}
		if filter.Featured != nil && post.IsFeatured != *filter.Featured {
			continue
		}
		if filter.HasMedia != "" && post.MediaURL(filter.HasMedia) == "" {
			continue
		}
		if title != "" && !r.titleMatches(post, title) {
			continue
		}
		matched = append(matched, post)
	}

	slices.SortFunc(matched, func(a, b *lc.Post) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if filter.Order == lc.OrderNewest {
			return -c
		}
		return c
	})

	total := len(matched)
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		start := min((page-1)*filter.Limit, total)
		end := min(start+filter.Limit, total)
		matched = matched[start:end]
	}

	result := make([]*lc.Post, len(matched))
	for i, post := range matched {
		result[i] = r.loadRelations(post)
	}
	return result, total, nil
}

// titleMatches reports whether the base title or a title translation
// contains the lower-cased needle.
func (r *Repository) titleMatches(post *lc.Post, needle string) bool {
	if strings.Contains(strings.ToLower(post.Title), needle) {
		return true
	}
	for _, lang := range lc.SupportedLanguages() {
		id, ok := r.byKey[lc.TranslationKey{Module: lc.ModulePost, ModuleID: post.ID, Language: lang, Key: lc.KeyTitle}]
		if ok && strings.Contains(strings.ToLower(r.translations[id].Value), needle) {
			return true
		}
	}
	return false
}

// loadRelations returns a copy of post with categories and gallery images.
func (r *Repository) loadRelations(post *lc.Post) *lc.Post {
	out := post.Clone()
	out.Categories = []lc.Category{}
	for _, id := range r.postCats[post.ID] {
		if c, ok := r.categories[id]; ok {
			out.Categories = append(out.Categories, r.withChildren(c))
		}
	}
	out.Images = []lc.MediaAttachment{}
	for _, m := range r.sortedMedia(lc.ModulePost, post.ID) {
		out.Images = append(out.Images, *m)
	}
	return out
}

// Category operations

func (r *Repository) CreateCategory(ctx context.Context, category *lc.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if category.ParentID != nil {
		if _, exists := r.categories[*category.ParentID]; !exists {
			return lc.ErrCategoryNotFound
		}
	}
	category.ID = r.id("categories")
	stored := *category
	stored.Children = nil
	r.categories[category.ID] = &stored
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (*lc.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, exists := r.categories[id]
	if !exists {
		return nil, lc.ErrCategoryNotFound
	}
	c := r.withChildren(category)
	return &c, nil
}

func (r *Repository) GetPostCategoryIDs(ctx context.Context, postID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.posts[postID]; !exists {
		return nil, lc.ErrPostNotFound
	}
	return slices.Clone(r.postCats[postID]), nil
}

func (r *Repository) SetPostCategories(ctx context.Context, postID int64, categoryIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[postID]; !exists {
		return lc.ErrPostNotFound
	}
	ids := make([]int64, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if _, exists := r.categories[id]; !exists {
			return lc.ErrCategoryNotFound
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	r.postCats[postID] = ids
	return nil
}

// withChildren returns a copy of c with its direct children.
func (r *Repository) withChildren(c *lc.Category) lc.Category {
	out := *c
	out.Children = nil
	for _, child := range r.categories {
		if child.ParentID != nil && *child.ParentID == c.ID {
			out.Children = append(out.Children, *child)
		}
	}
	slices.SortFunc(out.Children, func(a, b lc.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// subtree returns the category and all of its descendants.
func (r *Repository) subtree(root int64) map[int64]bool {
	seen := map[int64]bool{root: true}
	queue := []int64{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, c := range r.categories {
			if c.ParentID != nil && *c.ParentID == parent && !seen[c.ID] {
				seen[c.ID] = true
				queue = append(queue, c.ID)
			}
		}
	}
	return seen
}

// Media operations

func (r *Repository) CreateMedia(ctx context.Context, media *lc.MediaAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	media.ID = r.id("media")
	stored := *media
	r.media[media.ID] = &stored
	return nil
}

func (r *Repository) ListMedia(ctx context.Context, module string, moduleID int64) ([]*lc.MediaAttachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*lc.MediaAttachment
	for _, m := range r.sortedMedia(module, moduleID) {
		c := *m
		result = append(result, &c)
	}
	return result, nil
}

func (r *Repository) DeleteMedia(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.media[id]; !exists {
		return lc.ErrMediaNotFound
	}
	delete(r.media, id)
	return nil
}

func (r *Repository) sortedMedia(module string, moduleID int64) []*lc.MediaAttachment {
	var result []*lc.MediaAttachment
	for _, m := range r.media {
		if m.Module == module && m.ModuleID == moduleID {
			result = append(result, m)
		}
	}
	slices.SortFunc(result, func(a, b *lc.MediaAttachment) int { return cmp.Compare(a.ID, b.ID) })
	return result
}

// History operations

func (r *Repository) AddHistory(ctx context.Context, entry *lc.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.id("history")
	stored := *entry
	r.history = append(r.history, &stored)
	return nil
}

func (r *Repository) ListHistory(ctx context.Context, userID int64, page, limit int) ([]*lc.HistoryEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*lc.HistoryEntry
	for _, h := range r.history {
		if h.UserID == userID {
			c := *h
			matched = append(matched, &c)
		}
	}
	// Sort by created_at descending
	slices.SortFunc(matched, func(a, b *lc.HistoryEntry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	total := len(matched)
	if limit > 0 {
		start := min((max(page, 1)-1)*limit, total)
		end := min(start+limit, total)
		matched = matched[start:end]
	}
	return matched, total, nil
}

// Translation operations

func (r *Repository) FindTranslation(ctx context.Context, key lc.TranslationKey) (*lc.TranslationEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byKey[key]
	if !exists {
		return nil, lc.ErrTranslationNotFound
	}
	entry := *r.translations[id]
	return &entry, nil
}

func (r *Repository) CreateTranslation(ctx context.Context, entry *lc.TranslationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entry.LookupKey()
	if _, exists := r.byKey[key]; exists {
		return lc.ErrTranslationExists
	}
	entry.ID = r.id("translations")
	stored := *entry
	r.translations[entry.ID] = &stored
	r.byKey[key] = entry.ID
	return nil
}

func (r *Repository) UpdateTranslation(ctx context.Context, id int64, value string) (*lc.TranslationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.translations[id]
	if !exists {
		return nil, lc.ErrTranslationNotFound
	}
	entry.Value = value
	out := *entry
	return &out, nil
}

func (r *Repository) DeleteTranslation(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.translations[id]
	if !exists {
		return lc.ErrTranslationNotFound
	}
	delete(r.byKey, entry.LookupKey())
	delete(r.translations, id)
	return nil
}

// Favorite operations

func (r *Repository) ToggleFavorite(ctx context.Context, userID, postID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := favoriteKey{userID: userID, postID: postID}
	if _, exists := r.favorites[k]; exists {
		delete(r.favorites, k)
		return false, nil
	}
	r.favorites[k] = time.Now().UTC()
	return true, nil
}

func (r *Repository) ListFavorites(ctx context.Context, userID int64) ([]*lc.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*lc.Favorite
	for k, createdAt := range r.favorites {
		if k.userID == userID {
			result = append(result, &lc.Favorite{UserID: k.userID, PostID: k.postID, CreatedAt: createdAt})
		}
	}
	slices.SortFunc(result, func(a, b *lc.Favorite) int { return cmp.Compare(a.PostID, b.PostID) })
	return result, nil
}

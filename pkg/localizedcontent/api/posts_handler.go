package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/localized-content/internal/messages"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// PostsHandler handles HTTP requests for posts and favorites
type PostsHandler struct {
	service   lc.Service
	files     lc.FileStore
	tokenAuth *jwtauth.JWTAuth
	limits    Limits
	responder
}

// NewPostsHandler creates a new posts handler. files may be nil, in which
// case orphaned files are not reclaimed. tokenAuth may be nil when the
// router already runs jwtauth.Verifier.
func NewPostsHandler(service lc.Service, files lc.FileStore, catalog *messages.Catalog, tokenAuth *jwtauth.JWTAuth, limits Limits, logger *slog.Logger) *PostsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostsHandler{
		service:   service,
		files:     files,
		tokenAuth: tokenAuth,
		limits:    limits,
		responder: responder{catalog: catalog, logger: logger},
	}
}

// Routes returns the routes for posts
func (h *PostsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(LanguageMiddleware)
	if h.tokenAuth != nil {
		r.Use(jwtauth.Verifier(h.tokenAuth))
	}
	r.Use(UserMiddleware)

	r.Get("/", h.ListPosts)
	r.Get("/get/featured-posts", h.FeaturedPosts)
	r.Get("/screen-wise", h.ScreenWise)
	r.Post("/translation/get", h.GetTranslation)
	r.Get("/category-post/{id}", h.PostsByCategory)
	r.Get("/{id}", h.GetPost)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)

		r.Post("/", h.CreatePost)
		r.Post("/{id}", h.UpdatePost)
		r.Post("/{id}/mark-as-featured", h.MarkFeatured)
		r.Delete("/{id}", h.RemovePost)

		r.Get("/get/post-history", h.PostHistory)
		r.Get("/favourites/list", h.ListFavorites)
		r.Get("/favourites/post-ids", h.FavoritePostIDs)
		r.Post("/add-to-favourites/{id}", h.ToggleFavorite)
	})

	return r
}

// CreatePost creates a post from a JSON or multipart body
func (h *PostsHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	in, err := readPostInput(w, r, h.limits)
	if err != nil {
		h.error(w, r, err)
		return
	}

	uploads, opened, err := in.uploads(h.limits)
	if err != nil {
		h.error(w, r, err)
		return
	}
	defer opened.Close()

	featured, _ := in.featured()
	post, err := h.service.CreatePost(r.Context(), lc.CreatePostRequest{
		Translations: in.translations(),
		URL:          in.text("url"),
		Date:         in.text("date"),
		Time:         in.text("time"),
		MediaURLs:    in.mediaURLs(),
		IsFeatured:   featured,
		CategoryIDs:  in.categoryIDs(),
		Files:        uploads,
	})
	if err != nil {
		if post != nil {
			h.partial(w, r, err, post)
			return
		}
		h.error(w, r, err)
		return
	}

	h.ok(w, r, http.StatusCreated, messages.PostCreated, post)
}

// UpdatePost patches a post; only supplied fields change
func (h *PostsHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	in, err := readPostInput(w, r, h.limits)
	if err != nil {
		h.error(w, r, err)
		return
	}

	uploads, opened, err := in.uploads(h.limits)
	if err != nil {
		h.error(w, r, err)
		return
	}
	defer opened.Close()

	req := lc.UpdatePostRequest{
		ID:           id,
		Translations: in.translations(),
		URL:          in.optional("url"),
		Date:         in.optional("date"),
		Time:         in.optional("time"),
		MediaURLs:    in.mediaURLs(),
		CategoryIDs:  in.categoryIDs(),
		Files:        uploads,
	}
	if featured, present := in.featured(); present {
		req.IsFeatured = &featured
	}

	result, err := h.service.UpdatePost(r.Context(), req)
	if result != nil {
		h.reclaim(r.Context(), result.OrphanedFiles)
	}
	if err != nil {
		if result != nil && result.Post != nil {
			h.partial(w, r, err, result.Post)
			return
		}
		h.error(w, r, err)
		return
	}

	h.ok(w, r, http.StatusOK, messages.PostUpdated, result.Post)
}

// RemovePost deletes a post with its translations and media
func (h *PostsHandler) RemovePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	result, err := h.service.RemovePost(r.Context(), id)
	if result != nil {
		h.reclaim(r.Context(), result.OrphanedFiles)
	}
	if err != nil {
		if result == nil {
			h.error(w, r, err)
			return
		}
		h.logger.Error("Failed to remove post", "post_id", id, "error", err)
		h.fail(w, r, http.StatusInternalServerError, messages.PostPartiallyDeleted, nil)
		return
	}

	h.ok(w, r, http.StatusOK, messages.PostDeleted, []any{})
}

// MarkFeatured sets or clears the featured flag
func (h *PostsHandler) MarkFeatured(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	featured := true
	in, err := readPostInput(w, r, h.limits)
	if err != nil {
		h.error(w, r, err)
		return
	}
	if value, present := in.featured(); present {
		featured = value
	}

	if err := h.service.MarkFeatured(r.Context(), id, featured); err != nil {
		h.error(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, messages.PostMarked, map[string]any{"id": id, "is_featured": featured})
}

// GetPost returns one localized post and records the view for signed-in users
func (h *PostsHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	post, err := h.service.GetPost(r.Context(), id, LanguageFromContext(r.Context()))
	if err != nil {
		h.error(w, r, err)
		return
	}

	if userID, signedIn := UserIDFromContext(r.Context()); signedIn {
		if err := h.service.RecordView(r.Context(), userID, id); err != nil {
			h.logger.Warn("Failed to record view", "user_id", userID, "post_id", id, "error", err)
		}
	}
	h.ok(w, r, http.StatusOK, "", post)
}

// ListPosts returns a page of posts, filtered by category subtree and title
func (h *PostsHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	categoryID, ok := h.optionalID(w, r, query.Get("category_id"))
	if !ok {
		return
	}

	page, err := h.service.ListPosts(r.Context(), lc.ListPostsRequest{
		Page:       atoi(query.Get("page")),
		Limit:      atoi(query.Get("limit")),
		CategoryID: categoryID,
		Title:      query.Get("title"),
		Language:   LanguageFromContext(r.Context()),
	})
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.page(w, r, page)
}

// FeaturedPosts returns the newest featured posts
func (h *PostsHandler) FeaturedPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.FeaturedPosts(r.Context(), LanguageFromContext(r.Context()))
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, "", posts)
}

// ScreenWise groups posts by media slot
func (h *PostsHandler) ScreenWise(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	categoryID, ok := h.optionalID(w, r, query.Get("category_id"))
	if !ok {
		return
	}

	groups, err := h.service.ScreenWise(r.Context(), lc.ScreenWiseRequest{
		CategoryID: categoryID,
		Title:      query.Get("title"),
		Language:   LanguageFromContext(r.Context()),
	})
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, "", groups)
}

// PostsByCategory lists every post in a category subtree
func (h *PostsHandler) PostsByCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	page, err := h.service.PostsByCategory(r.Context(), id, LanguageFromContext(r.Context()))
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.page(w, r, page)
}

// GetTranslation looks up one translation entry
func (h *PostsHandler) GetTranslation(w http.ResponseWriter, r *http.Request) {
	in, err := readPostInput(w, r, h.limits)
	if err != nil {
		h.error(w, r, err)
		return
	}

	moduleID, err := strconv.ParseInt(in.text("module_id"), 10, 64)
	if err != nil {
		h.error(w, r, &lc.ValidationError{Field: "module_id", Reason: "must be an integer"})
		return
	}
	key := in.text("key")
	if key == "" {
		h.error(w, r, &lc.ValidationError{Field: "key", Reason: "required"})
		return
	}
	lang := LanguageFromContext(r.Context())
	if raw, present := in.fields.Value("language_id"); present {
		lang = lc.ParseLanguage(raw)
	}

	entry, err := h.service.GetTranslation(r.Context(), moduleID, lang, key)
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, "", entry)
}

// PostHistory returns the posts the caller viewed, newest first
func (h *PostsHandler) PostHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	query := r.URL.Query()

	page, err := h.service.PostHistory(r.Context(), userID, atoi(query.Get("page")), atoi(query.Get("limit")), LanguageFromContext(r.Context()))
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.page(w, r, page)
}

// ToggleFavorite adds the post to the caller's favorites or removes it
func (h *PostsHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	userID, _ := UserIDFromContext(r.Context())

	added, err := h.service.ToggleFavorite(r.Context(), userID, id)
	if err != nil {
		h.error(w, r, err)
		return
	}

	messageID := messages.RemovedFromFavourites
	if added {
		messageID = messages.AddedToFavourites
	}
	h.ok(w, r, http.StatusOK, messageID, map[string]any{"post_id": id, "is_favourite": added})
}

// ListFavorites returns the caller's favorite posts, newest first
func (h *PostsHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	posts, err := h.service.ListFavorites(r.Context(), userID, LanguageFromContext(r.Context()))
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, "", posts)
}

// FavoritePostIDs returns the ids of the caller's favorite posts
func (h *PostsHandler) FavoritePostIDs(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	ids, err := h.service.FavoritePostIDs(r.Context(), userID)
	if err != nil {
		h.error(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	render.JSON(w, r, Response{Success: true, Data: ids})
}

// reclaim deletes files no post references any more. Failures are logged.
func (h *PostsHandler) reclaim(ctx context.Context, urls []string) {
	if h.files == nil {
		return
	}
	for _, url := range urls {
		if err := h.files.Delete(ctx, url); err != nil && !errors.Is(err, lc.ErrFileNotFound) {
			h.logger.Warn("Failed to reclaim file", "url", url, "error", err)
		}
	}
}

func (h *PostsHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.error(w, r, &lc.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func (h *PostsHandler) optionalID(w http.ResponseWriter, r *http.Request, raw string) (*int64, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.error(w, r, &lc.ValidationError{Field: "category_id", Reason: "must be an integer"})
		return nil, false
	}
	return &id, true
}

// atoi returns 0 for missing or malformed numbers so the service defaults apply.
func atoi(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

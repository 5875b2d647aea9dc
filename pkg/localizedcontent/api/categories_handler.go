package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/localized-content/internal/messages"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// CategoriesHandler handles HTTP requests for categories
type CategoriesHandler struct {
	service   lc.Service
	tokenAuth *jwtauth.JWTAuth
	responder
}

// NewCategoriesHandler creates a new categories handler
func NewCategoriesHandler(service lc.Service, catalog *messages.Catalog, tokenAuth *jwtauth.JWTAuth, logger *slog.Logger) *CategoriesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoriesHandler{
		service:   service,
		tokenAuth: tokenAuth,
		responder: responder{catalog: catalog, logger: logger},
	}
}

// Routes returns the routes for categories
func (h *CategoriesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(LanguageMiddleware)
	if h.tokenAuth != nil {
		r.Use(jwtauth.Verifier(h.tokenAuth))
	}
	r.Use(UserMiddleware)

	r.Get("/{id}", h.GetCategory)
	r.With(h.requireUser).Post("/", h.CreateCategory)

	return r
}

// categoryLimits caps category bodies, which never carry files.
var categoryLimits = Limits{MaxRequestBytes: 1 << 20}

// CreateCategory creates a category from a name and an optional parent_id
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	in, err := readPostInput(w, r, categoryLimits)
	if err != nil {
		h.error(w, r, err)
		return
	}

	req := lc.CreateCategoryRequest{Name: in.text("name")}
	if raw, present := in.fields.Value("parent_id"); present && raw != "" {
		parentID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.error(w, r, &lc.ValidationError{Field: "parent_id", Reason: "must be an integer"})
			return
		}
		req.ParentID = &parentID
	}

	category, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.ok(w, r, http.StatusCreated, messages.CategoryCreated, category)
}

// GetCategory returns a category with its direct children
func (h *CategoriesHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.error(w, r, &lc.ValidationError{Field: "id", Reason: "must be an integer"})
		return
	}

	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		h.error(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, "", category)
}

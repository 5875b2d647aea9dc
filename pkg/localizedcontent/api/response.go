package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/localized-content/internal/messages"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// Response is the envelope of every API response
type Response struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Meta    *PageMeta `json:"meta,omitempty"`
}

// PageMeta describes the page of a paginated response
type PageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// responder writes envelopes with messages in the request language
type responder struct {
	catalog *messages.Catalog
	logger  *slog.Logger
}

func (rs responder) ok(w http.ResponseWriter, r *http.Request, status int, messageID string, data any) {
	message := ""
	if messageID != "" {
		message = rs.catalog.Localize(LanguageFromContext(r.Context()), messageID, nil)
	}
	render.Status(r, status)
	render.JSON(w, r, Response{Success: true, Message: message, Data: data})
}

func (rs responder) page(w http.ResponseWriter, r *http.Request, page *lc.PostPage) {
	render.JSON(w, r, Response{
		Success: true,
		Data:    page.Data,
		Meta:    &PageMeta{Total: page.Total, Page: page.Page, Limit: page.Limit},
	})
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, status int, messageID string, fields map[string]any) {
	rs.failWith(w, r, status, messageID, fields, []any{})
}

func (rs responder) failWith(w http.ResponseWriter, r *http.Request, status int, messageID string, fields map[string]any, data any) {
	render.Status(r, status)
	render.JSON(w, r, Response{
		Success: false,
		Message: rs.catalog.Localize(LanguageFromContext(r.Context()), messageID, fields),
		Data:    data,
	})
}

// partial reports a write that stopped midway, with what was persisted.
func (rs responder) partial(w http.ResponseWriter, r *http.Request, err error, data any) {
	var partial *lc.PartialWriteError
	if data == nil || !errors.As(err, &partial) {
		rs.error(w, r, err)
		return
	}
	rs.logger.Error("Partial write", "post_id", partial.PostID, "step", partial.Step, "error", err)
	rs.failWith(w, r, http.StatusInternalServerError, messages.PostPartiallySaved, map[string]any{"Step": partial.Step}, data)
}

// error maps a service error to a status and a localized message.
func (rs responder) error(w http.ResponseWriter, r *http.Request, err error) {
	var validation *lc.ValidationError
	var partial *lc.PartialWriteError
	var storeErr *lc.StoreError
	var limit *limitError

	switch {
	case errors.As(err, &limit):
		rs.fail(w, r, http.StatusBadRequest, limit.messageID, map[string]any{"Limit": limit.limit})
	case errors.As(err, &validation):
		rs.fail(w, r, http.StatusBadRequest, messages.InvalidInput, map[string]any{"Reason": validation.Error()})
	case errors.Is(err, lc.ErrInvalidInput):
		rs.fail(w, r, http.StatusBadRequest, messages.InvalidInput, map[string]any{"Reason": err.Error()})
	case errors.Is(err, lc.ErrPostNotFound):
		rs.fail(w, r, http.StatusNotFound, messages.PostNotFound, nil)
	case errors.Is(err, lc.ErrCategoryNotFound):
		rs.fail(w, r, http.StatusNotFound, messages.CategoryNotFound, nil)
	case errors.Is(err, lc.ErrTranslationNotFound):
		rs.fail(w, r, http.StatusNotFound, messages.TranslationNotFound, nil)
	case errors.As(err, &partial):
		rs.logger.Error("Partial write", "post_id", partial.PostID, "step", partial.Step, "error", err)
		rs.fail(w, r, http.StatusInternalServerError, messages.PostPartiallySaved, map[string]any{"Step": partial.Step})
	case errors.As(err, &storeErr):
		rs.logger.Error("Store unavailable", "op", storeErr.Op, "error", err)
		rs.fail(w, r, http.StatusServiceUnavailable, messages.InternalError, nil)
	default:
		rs.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		rs.fail(w, r, http.StatusInternalServerError, messages.InternalError, nil)
	}
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/localized-content/internal/messages"
	lc "github.com/tendant/localized-content/pkg/localizedcontent"
)

// Context keys for middleware
type contextKey string

const (
	LanguageKey contextKey = "language"
	UserIDKey   contextKey = "user_id"
)

// LanguageHeader carries the requested language as an id ("2") or a tag ("ar")
const LanguageHeader = "lang"

// LanguageMiddleware resolves the request language from the lang header,
// then Accept-Language, defaulting to English.
func LanguageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(LanguageHeader)
		if raw == "" {
			raw = r.Header.Get("Accept-Language")
		}
		ctx := context.WithValue(r.Context(), LanguageKey, lc.ParseLanguage(raw))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LanguageFromContext returns the request language
func LanguageFromContext(ctx context.Context) lc.Language {
	if lang, ok := ctx.Value(LanguageKey).(lc.Language); ok {
		return lang
	}
	return lc.DefaultLanguage
}

// UserMiddleware stores the user id of a verified token in the context. It
// expects jwtauth.Verifier to run first; requests without a valid token
// pass through anonymously.
func UserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := userIDFromClaims(claims)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user id
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

// requireUser rejects anonymous requests with a localized 401.
func (rs responder) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			rs.fail(w, r, http.StatusUnauthorized, messages.Unauthorized, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userIDFromClaims reads the "id", "user_id" or "sub" claim.
func userIDFromClaims(claims map[string]interface{}) (int64, error) {
	for _, name := range []string{"id", "user_id", "sub"} {
		switch v := claims[name].(type) {
		case float64:
			return int64(v), nil
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				return id, nil
			}
		}
	}
	return 0, fmt.Errorf("no user id claim")
}

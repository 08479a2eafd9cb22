package auth

import (
	"context"
	"net/http"
	"strings"

	"code-to-content/internal/model"
	"code-to-content/internal/store"
)

type contextKey int

const (
	externalIDKey contextKey = iota
	userKey
)

// Authenticate resolves the caller's session token and, when valid, places
// the external id and user record on the request context. It never rejects;
// pair it with RequireUser for routes that need a caller.
func Authenticate(sessions *Sessions, users store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			externalID, err := sessions.Lookup(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), externalIDKey, externalID)
			if user, err := users.GetUserByExternalID(ctx, externalID); err == nil {
				ctx = context.WithValue(ctx, userKey, user)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests whose session did not resolve to a user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFrom(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok
}

// ExternalIDFrom returns the session's external user id, if any. Set even
// when the user record itself is missing.
func ExternalIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(externalIDKey).(string)
	return id, ok
}

// TokenFrom extracts the raw session token from the request.
func TokenFrom(r *http.Request) string {
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}

package auth

import (
	"context"
	"net/http"
)

type contextKey int

const (
	userIDKey contextKey = iota
	displayNameKey
)

// UserIDFromContext extracts the authenticated user ID from the request
// context. Empty means the request carries no valid session.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// DisplayNameFromContext extracts the user's display name from the
// request context.
func DisplayNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(displayNameKey).(string); ok {
		return v
	}
	return ""
}

// WithUser returns a context carrying the given identity. Exposed for
// handler tests.
func WithUser(ctx context.Context, userID, displayName string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, displayNameKey, displayName)
}

// Middleware resolves the session cookie into a request-scoped identity.
// Requests without a valid session pass through unauthenticated; route
// groups enforce access with RequireAuth.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, displayName, err := parseSessionToken(secret, c.Value)
			if err != nil {
				// Expired or tampered token; treat as logged out.
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, displayName)))
		})
	}
}

// RequireAuth rejects unauthenticated requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects authenticated non-admin users with 403.
// adminUserID is the configured admin identity marker; when empty no
// user is an admin.
func RequireAdmin(adminUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if adminUserID == "" || userID != adminUserID {
				writeJSONError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

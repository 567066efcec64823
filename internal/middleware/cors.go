// Package middleware provides HTTP middleware for the charachat API.
package middleware

import (
	"net/http"
	"strings"
)

// CORS returns middleware that handles cross-origin requests from the
// configured frontend origins. The session cookie travels cross-site,
// so allowed origins are echoed back with Allow-Credentials; credentials
// are never combined with a wildcard.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			wildcard := false
			explicit := false
			for _, o := range origins {
				if o == origin {
					explicit = true
					break
				}
				if o == "*" {
					wildcard = true
				}
			}

			if explicit || (wildcard && origin != "") {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

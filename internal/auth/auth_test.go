package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testSecret = []byte("test-secret")

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := newSessionToken(testSecret, "google-123", "Alice", time.Now())
	if err != nil {
		t.Fatalf("newSessionToken failed: %v", err)
	}

	userID, displayName, err := parseSessionToken(testSecret, token)
	if err != nil {
		t.Fatalf("parseSessionToken failed: %v", err)
	}
	if userID != "google-123" || displayName != "Alice" {
		t.Errorf("unexpected claims: %q, %q", userID, displayName)
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := newSessionToken(testSecret, "google-123", "Alice", time.Now())
	if err != nil {
		t.Fatalf("newSessionToken failed: %v", err)
	}

	if _, _, err := parseSessionToken([]byte("other-secret"), token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	t.Parallel()

	token, err := newSessionToken(testSecret, "google-123", "Alice", time.Now().Add(-2*sessionTTL))
	if err != nil {
		t.Fatalf("newSessionToken failed: %v", err)
	}

	if _, _, err := parseSessionToken(testSecret, token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestMiddlewareResolvesIdentity(t *testing.T) {
	t.Parallel()

	token, err := newSessionToken(testSecret, "google-123", "Alice", time.Now())
	if err != nil {
		t.Fatalf("newSessionToken failed: %v", err)
	}

	var gotUserID, gotName string
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotName = DisplayNameFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotUserID != "google-123" || gotName != "Alice" {
		t.Errorf("unexpected identity: %q, %q", gotUserID, gotName)
	}
}

func TestMiddlewarePassesThroughInvalidToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{"no cookie", nil},
		{"garbage token", &http.Cookie{Name: SessionCookieName, Value: "not-a-jwt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			called := false
			handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUserID = UserIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if !called {
				t.Fatal("expected handler to be called")
			}
			if gotUserID != "" {
				t.Errorf("expected empty user ID, got %q", gotUserID)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), "u1", "Alice"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	handler := RequireAdmin("admin-1")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		userID     string
		wantStatus int
	}{
		{"unauthenticated", "", http.StatusUnauthorized},
		{"regular user", "u1", http.StatusForbidden},
		{"admin", "admin-1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.userID != "" {
				req = req.WithContext(WithUser(req.Context(), tt.userID, "Someone"))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestRequireAdminUnconfigured(t *testing.T) {
	t.Parallel()

	// With no admin configured, nobody gets in.
	handler := RequireAdmin("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), "u1", "Someone"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

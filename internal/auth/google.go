package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ychsieh/charachat/internal/config"
	"github.com/ychsieh/charachat/internal/domain"
	"github.com/ychsieh/charachat/internal/store"
)

const (
	stateCookieName = "charachat_oauth_state"
	stateTTL        = 10 * time.Minute

	userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler implements the Google OAuth login flow and session issuance.
type Handler struct {
	repo        store.Repository
	oauth       *oauth2.Config
	secret      []byte
	frontendURL string
	isDev       bool
}

// NewHandler wires the OAuth configuration from application config.
func NewHandler(repo store.Repository, cfg *config.Config) *Handler {
	return &Handler{
		repo: repo,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.PublicBaseURL + "/auth/google/callback",
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		secret:      []byte(cfg.SessionSecret),
		frontendURL: cfg.FrontendBaseURL,
		isDev:       cfg.IsDevelopment(),
	}
}

// RegisterRoutes registers the OAuth entry, callback, and logout routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/google", h.Login)
	r.Get("/auth/google/callback", h.Callback)
	r.Get("/auth/logout", h.Logout)
}

// Login redirects the browser to the Google consent screen.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := newStateToken()
	if err != nil {
		slog.Error("Failed to generate OAuth state", "error", err)
		http.Error(w, `{"error":"failed to start login"}`, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !h.isDev,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback exchanges the authorization code, upserts the user account,
// and issues the session cookie.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		slog.Warn("OAuth callback with missing or mismatched state")
		http.Redirect(w, r, h.frontendURL, http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		// User denied consent or provider error; back to the frontend.
		http.Redirect(w, r, h.frontendURL, http.StatusFound)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		slog.Error("OAuth code exchange failed", "error", err)
		http.Redirect(w, r, h.frontendURL, http.StatusFound)
		return
	}

	profile, err := h.fetchProfile(r.Context(), token)
	if err != nil {
		slog.Error("Failed to fetch Google profile", "error", err)
		http.Redirect(w, r, h.frontendURL, http.StatusFound)
		return
	}

	now := time.Now()
	if err := h.repo.UpsertUser(r.Context(), &domain.User{
		ID:          profile.ID,
		DisplayName: profile.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		slog.Error("Failed to upsert user on login", "error", err, "user_id", profile.ID)
		http.Error(w, `{"error":"failed to initialize user"}`, http.StatusInternalServerError)
		return
	}

	session, err := newSessionToken(h.secret, profile.ID, profile.Name, now)
	if err != nil {
		slog.Error("Failed to issue session token", "error", err, "user_id", profile.ID)
		http.Error(w, `{"error":"failed to establish session"}`, http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, sessionCookie(session, sessionTTL, h.isDev))
	slog.Info("User logged in", "user_id", profile.ID)

	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// Logout clears the session cookie and returns to the frontend.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	c := sessionCookie("", 0, h.isDev)
	c.MaxAge = -1
	http.SetCookie(w, c)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

type googleProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) fetchProfile(ctx context.Context, token *oauth2.Token) (*googleProfile, error) {
	client := h.oauth.Client(ctx, token)

	resp, err := client.Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("userinfo has no subject id")
	}
	if profile.Name == "" {
		profile.Name = "user-" + profile.ID
	}

	return &profile, nil
}

func newStateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

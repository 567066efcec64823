package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ychsieh/charachat/internal/auth"
)

// favoriteSummary is the trimmed character view for favorites listings.
type favoriteSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToggleFavorite flips the caller's favorite state for a character and
// returns the new membership. Toggling twice restores the original state.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	characterID := chi.URLParam(r, "characterID")

	character, err := h.repo.GetCharacter(r.Context(), characterID)
	if err != nil {
		slog.Error("Failed to get character for favorite toggle", "error", err, "character_id", characterID)
		Error(w, http.StatusInternalServerError, "failed to toggle favorite")
		return
	}
	if character == nil {
		Error(w, http.StatusNotFound, "character not found")
		return
	}

	isFavorite, err := h.repo.ToggleFavorite(r.Context(), userID, characterID)
	if err != nil {
		slog.Error("Failed to toggle favorite", "error", err, "user_id", userID, "character_id", characterID)
		Error(w, http.StatusInternalServerError, "failed to toggle favorite")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"isFavorite": isFavorite})
}

// ListFavorites returns the caller's favorite characters.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	characters, err := h.repo.ListFavorites(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list favorites", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to list favorites")
		return
	}

	favorites := make([]favoriteSummary, 0, len(characters))
	for _, c := range characters {
		favorites = append(favorites, favoriteSummary{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
		})
	}

	JSON(w, http.StatusOK, favorites)
}

// Success reports the login state of the caller. The frontend polls this
// to decide whether to show the login link.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		JSON(w, http.StatusUnauthorized, map[string]interface{}{"isLoggedIn": false})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"isLoggedIn":  true,
		"id":          userID,
		"displayName": auth.DisplayNameFromContext(r.Context()),
	})
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ychsieh/charachat/internal/auth"
	"github.com/ychsieh/charachat/internal/domain"
	"github.com/ychsieh/charachat/internal/store"
)

// createCharacterRequest is the payload for POST /api/character/create.
type createCharacterRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"systemPrompt"`
}

// characterResponse is the public view of a character, including the
// requesting user's favorite state.
type characterResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SystemPrompt string `json:"systemPrompt"`
	IsFavorite   bool   `json:"isFavorite"`
}

// GetCharacter returns one character with the caller's favorite state.
func (h *Handler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	characterID := chi.URLParam(r, "characterID")

	character, err := h.repo.GetCharacter(r.Context(), characterID)
	if err != nil {
		slog.Error("Failed to get character", "error", err, "character_id", characterID)
		Error(w, http.StatusInternalServerError, "failed to load character")
		return
	}
	if character == nil {
		Error(w, http.StatusNotFound, "character not found")
		return
	}

	isFavorite, err := h.repo.IsFavorite(r.Context(), userID, characterID)
	if err != nil {
		slog.Error("Failed to check favorite state", "error", err, "character_id", characterID)
		Error(w, http.StatusInternalServerError, "failed to load character")
		return
	}

	JSON(w, http.StatusOK, characterResponse{
		ID:           character.ID,
		Name:         character.Name,
		Description:  character.Description,
		SystemPrompt: character.SystemPrompt,
		IsFavorite:   isFavorite,
	})
}

// CreateCharacter creates a new character owned by the caller.
func (h *Handler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	displayName := auth.DisplayNameFromContext(r.Context())

	var req createCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	character := &domain.Character{
		ID:           uuid.NewString(),
		OwnerID:      userID,
		OwnerName:    displayName,
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		CreatedAt:    time.Now(),
	}
	character.Normalize()

	if !character.Valid() {
		Error(w, http.StatusBadRequest, "name, description, and systemPrompt are required")
		return
	}

	if err := h.repo.CreateCharacter(r.Context(), character); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			Error(w, http.StatusConflict, "character name already exists")
			return
		}
		slog.Error("Failed to create character", "error", err, "owner_id", userID)
		Error(w, http.StatusInternalServerError, "failed to create character")
		return
	}

	slog.Info("Character created", "character_id", character.ID, "owner_id", userID, "name", character.Name)
	JSON(w, http.StatusCreated, map[string]string{"characterId": character.ID})
}

// AdminListCharacters returns all character documents. Admin only.
func (h *Handler) AdminListCharacters(w http.ResponseWriter, r *http.Request) {
	characters, err := h.repo.ListCharacters(r.Context())
	if err != nil {
		slog.Error("Failed to list characters", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list characters")
		return
	}
	if characters == nil {
		characters = []*domain.Character{}
	}

	JSON(w, http.StatusOK, characters)
}

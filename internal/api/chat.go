package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ychsieh/charachat/internal/auth"
	"github.com/ychsieh/charachat/internal/chat"
	"github.com/ychsieh/charachat/internal/domain"
)

// chatRequest is the payload for POST /api/chat.
type chatRequest struct {
	Message     string `json:"message"`
	CharacterID string `json:"characterId"`
}

// Chat runs one chat turn and returns the generated reply.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" || req.CharacterID == "" {
		Error(w, http.StatusBadRequest, "message and characterId are required")
		return
	}

	reply, err := h.chat.Send(r.Context(), userID, req.CharacterID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrCharacterNotFound) {
			Error(w, http.StatusNotFound, "character not found")
			return
		}
		slog.Error("Chat turn failed", "error", err, "user_id", userID, "character_id", req.CharacterID)
		Error(w, http.StatusInternalServerError, "chat request failed")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"response": reply})
}

// ChatHistory returns the caller's recorded conversation with a character,
// oldest first.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	characterID := chi.URLParam(r, "characterID")

	turns, err := h.chat.History(r.Context(), userID, characterID)
	if err != nil {
		slog.Error("Failed to load chat history", "error", err, "user_id", userID, "character_id", characterID)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if turns == nil {
		turns = []*domain.Turn{}
	}

	JSON(w, http.StatusOK, turns)
}

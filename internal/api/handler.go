// Package api provides HTTP handlers for the charachat API.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ychsieh/charachat/internal/domain"
	"github.com/ychsieh/charachat/internal/store"
)

// ChatService is the slice of the chat flow the handlers depend on.
// Satisfied by *chat.Service.
type ChatService interface {
	Send(ctx context.Context, userID, characterID, message string) (string, error)
	History(ctx context.Context, userID, characterID string) ([]*domain.Turn, error)
}

// Handler holds shared dependencies for all API endpoints.
type Handler struct {
	repo        store.Repository
	chat        ChatService
	adminUserID string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, chat ChatService, adminUserID string) *Handler {
	return &Handler{
		repo:        repo,
		chat:        chat,
		adminUserID: adminUserID,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

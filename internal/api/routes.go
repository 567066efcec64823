package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ychsieh/charachat/internal/auth"
)

// RegisterRoutes registers all API endpoints. Everything under /api
// requires an authenticated session; the admin listing additionally
// requires the configured admin identity.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/character/{characterID}", h.GetCharacter)
			r.Post("/character/create", h.CreateCharacter)

			r.Post("/chat", h.Chat)
			r.Get("/chat/history/{characterID}", h.ChatHistory)

			r.Post("/user/favorite/{characterID}", h.ToggleFavorite)
			r.Get("/user/favorites", h.ListFavorites)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(h.adminUserID))

			r.Get("/admin/characters", h.AdminListCharacters)
		})
	})

	r.Get("/success", h.Success)
}

// Package domain contains core domain types for the charachat application.
package domain

import (
	"strings"
	"time"
)

// Character is a user-created AI persona. Everything except PlayCount is
// immutable after creation; the unique Name is enforced by the store.
type Character struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	OwnerName    string    `json:"ownerName"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"systemPrompt"`
	PlayCount    int64     `json:"playCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Normalize trims surrounding whitespace from the public fields,
// mirroring what the store persists.
func (c *Character) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.SystemPrompt = strings.TrimSpace(c.SystemPrompt)
}

// Valid reports whether all required fields are present.
func (c *Character) Valid() bool {
	return c.OwnerID != "" && c.Name != "" && c.Description != "" && c.SystemPrompt != ""
}

package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidRole reports whether r is one of the two persisted roles.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message in a (user, character) conversation.
// Turns are append-only; the store never mutates an existing record.
type Turn struct {
	UserID      string    `json:"-"`
	CharacterID string    `json:"-"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

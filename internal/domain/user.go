package domain

import "time"

// User represents an authenticated account. The ID is the identity
// provider's subject identifier, so a given Google account maps to
// exactly one User row.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

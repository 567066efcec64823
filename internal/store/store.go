// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ychsieh/charachat/internal/domain"
)

// ErrDuplicateName is returned by CreateCharacter when another character
// already owns the requested name.
var ErrDuplicateName = errors.New("character name already exists")

// Repository defines the interface for persisting users, characters,
// conversation turns, and favorites.
//
// Lookups return (nil, nil) when the record does not exist; callers map
// that onto their own not-found handling.
type Repository interface {
	// GetUser retrieves a user by their external identity ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record. Called on every
	// successful OAuth callback.
	UpsertUser(ctx context.Context, user *domain.User) error

	// CreateCharacter persists a new character. Returns ErrDuplicateName
	// if the name is already taken.
	CreateCharacter(ctx context.Context, c *domain.Character) error

	// GetCharacter retrieves a character by ID.
	GetCharacter(ctx context.Context, characterID string) (*domain.Character, error)

	// ListCharacters returns all characters, newest first. Admin surface.
	ListCharacters(ctx context.Context) ([]*domain.Character, error)

	// IncrementPlayCount bumps a character's play counter by one.
	IncrementPlayCount(ctx context.Context, characterID string) error

	// RecentTurns returns the most recent limit turns for the
	// (userID, characterID) pair, ordered oldest to newest.
	RecentTurns(ctx context.Context, userID, characterID string, limit int) ([]*domain.Turn, error)

	// ListTurns returns the full turn history for the pair, ordered
	// oldest to newest.
	ListTurns(ctx context.Context, userID, characterID string) ([]*domain.Turn, error)

	// AppendTurns appends turns in the given order. Records are never
	// mutated afterwards.
	AppendTurns(ctx context.Context, turns ...*domain.Turn) error

	// IsFavorite reports whether the character is in the user's favorites.
	IsFavorite(ctx context.Context, userID, characterID string) (bool, error)

	// ToggleFavorite adds the character to the user's favorites if absent,
	// removes it if present, and returns the resulting membership.
	ToggleFavorite(ctx context.Context, userID, characterID string) (bool, error)

	// ListFavorites returns the user's favorite characters.
	ListFavorites(ctx context.Context, userID string) ([]*domain.Character, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

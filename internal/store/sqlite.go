package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ychsieh/charachat/internal/domain"
	"github.com/ychsieh/charachat/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS characters (
		character_id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		owner_name TEXT NOT NULL,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		play_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_characters_owner ON characters(owner_id);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		character_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_pair ON turns(user_id, character_id, id);

	CREATE TABLE IF NOT EXISTS favorites (
		user_id TEXT NOT NULL,
		character_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, character_id)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their external identity ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT user_id, display_name, created_at, updated_at FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var createdAt, updatedAt int64

	err := row.Scan(&user.ID, &user.DisplayName, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, display_name, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		display_name = excluded.display_name,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.DisplayName, user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// CreateCharacter persists a new character.
func (s *SQLiteStore) CreateCharacter(ctx context.Context, c *domain.Character) error {
	query := `
	INSERT INTO characters (character_id, owner_id, owner_name, name, description, system_prompt, play_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.OwnerName, c.Name, c.Description, c.SystemPrompt,
		c.PlayCount, c.CreatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("insert character: %w", err)
	}
	return nil
}

// GetCharacter retrieves a character by ID.
func (s *SQLiteStore) GetCharacter(ctx context.Context, characterID string) (*domain.Character, error) {
	query := `
		SELECT character_id, owner_id, owner_name, name, description, system_prompt, play_count, created_at
		FROM characters WHERE character_id = ?`

	row := s.db.QueryRowContext(ctx, query, characterID)

	c, err := scanCharacter(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan character row: %w", err)
	}
	return c, nil
}

// ListCharacters returns all characters, newest first.
func (s *SQLiteStore) ListCharacters(ctx context.Context) ([]*domain.Character, error) {
	query := `
		SELECT character_id, owner_id, owner_name, name, description, system_prompt, play_count, created_at
		FROM characters ORDER BY created_at DESC, character_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer closeRows(rows, "characters")

	var characters []*domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character row: %w", err)
		}
		characters = append(characters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}

	return characters, nil
}

// IncrementPlayCount bumps a character's play counter by one.
func (s *SQLiteStore) IncrementPlayCount(ctx context.Context, characterID string) error {
	query := `UPDATE characters SET play_count = play_count + 1 WHERE character_id = ?`
	result, err := s.db.ExecContext(ctx, query, characterID)
	if err != nil {
		return fmt.Errorf("increment play_count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("IncrementPlayCount affected 0 rows", "character_id", characterID)
	}

	return nil
}

// RecentTurns returns the most recent limit turns, ordered oldest to newest.
func (s *SQLiteStore) RecentTurns(ctx context.Context, userID, characterID string, limit int) ([]*domain.Turn, error) {
	// Inner query picks the newest rows; the outer one restores
	// chronological order for prompt assembly.
	query := `
		SELECT user_id, character_id, role, content, created_at FROM (
			SELECT id, user_id, character_id, role, content, created_at
			FROM turns WHERE user_id = ? AND character_id = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`

	return s.queryTurns(ctx, query, userID, characterID, limit)
}

// ListTurns returns the full turn history, ordered oldest to newest.
func (s *SQLiteStore) ListTurns(ctx context.Context, userID, characterID string) ([]*domain.Turn, error) {
	query := `
		SELECT user_id, character_id, role, content, created_at
		FROM turns WHERE user_id = ? AND character_id = ?
		ORDER BY id ASC`

	return s.queryTurns(ctx, query, userID, characterID)
}

func (s *SQLiteStore) queryTurns(ctx context.Context, query string, args ...any) ([]*domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer closeRows(rows, "turns")

	var turns []*domain.Turn
	for rows.Next() {
		var t domain.Turn
		var createdAt int64
		if err := rows.Scan(&t.UserID, &t.CharacterID, &t.Role, &t.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}

// AppendTurns appends turns in the given order within one transaction.
// Retries on SQLITE_BUSY with exponential backoff.
func (s *SQLiteStore) AppendTurns(ctx context.Context, turns ...*domain.Turn) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.appendTurnsOnce(ctx, turns)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("AppendTurns hit SQLITE_BUSY, retrying",
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("append turns after %d attempts: %w", i+1, err)
	}

	return fmt.Errorf("append turns after %d attempts: %w", maxRetries, err)
}

func (s *SQLiteStore) appendTurnsOnce(ctx context.Context, turns []*domain.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO turns (user_id, character_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	for _, t := range turns {
		if !domain.ValidRole(t.Role) {
			return fmt.Errorf("invalid turn role: %q", t.Role)
		}
		if _, err := tx.ExecContext(ctx, query,
			t.UserID, t.CharacterID, string(t.Role), t.Content, t.CreatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turns: %w", err)
	}
	return nil
}

// IsFavorite reports whether the character is in the user's favorites.
func (s *SQLiteStore) IsFavorite(ctx context.Context, userID, characterID string) (bool, error) {
	query := `SELECT 1 FROM favorites WHERE user_id = ? AND character_id = ?`

	var one int
	err := s.db.QueryRowContext(ctx, query, userID, characterID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query favorite: %w", err)
	}
	return true, nil
}

// ToggleFavorite flips favorite membership and returns the new state.
func (s *SQLiteStore) ToggleFavorite(ctx context.Context, userID, characterID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND character_id = ?`,
		userID, characterID,
	)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}

	favored := false
	if deleted == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO favorites (user_id, character_id, created_at) VALUES (?, ?, ?)`,
			userID, characterID, time.Now().Unix(),
		); err != nil {
			return false, fmt.Errorf("insert favorite: %w", err)
		}
		favored = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit favorite toggle: %w", err)
	}
	return favored, nil
}

// ListFavorites returns the user's favorite characters.
func (s *SQLiteStore) ListFavorites(ctx context.Context, userID string) ([]*domain.Character, error) {
	query := `
		SELECT c.character_id, c.owner_id, c.owner_name, c.name, c.description, c.system_prompt, c.play_count, c.created_at
		FROM favorites f JOIN characters c ON c.character_id = f.character_id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC, c.character_id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer closeRows(rows, "favorites")

	var characters []*domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite row: %w", err)
		}
		characters = append(characters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}

	return characters, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (*domain.Character, error) {
	var c domain.Character
	var createdAt int64

	err := row.Scan(
		&c.ID, &c.OwnerID, &c.OwnerName, &c.Name,
		&c.Description, &c.SystemPrompt, &c.PlayCount, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.CreatedAt = time.Unix(createdAt, 0)
	return &c, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

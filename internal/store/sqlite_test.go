package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ychsieh/charachat/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return repo
}

func testCharacter(id, name string) *domain.Character {
	return &domain.Character{
		ID:           id,
		OwnerID:      "owner-1",
		OwnerName:    "Owner",
		Name:         name,
		Description:  "A test persona.",
		SystemPrompt: "You are " + name + ".",
		CreatedAt:    time.Now(),
	}
}

func TestUpsertAndGetUser(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	got, err := repo.GetUser(ctx, "missing")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing user, got %+v", got)
	}

	now := time.Now()
	user := &domain.User{ID: "google-123", DisplayName: "Alice", CreatedAt: now, UpdatedAt: now}
	if err := repo.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	got, err = repo.GetUser(ctx, "google-123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil || got.DisplayName != "Alice" {
		t.Fatalf("unexpected user: %+v", got)
	}

	// Re-login with a changed display name updates, not duplicates.
	user.DisplayName = "Alice Chen"
	if err := repo.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser (update) failed: %v", err)
	}
	got, err = repo.GetUser(ctx, "google-123")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.DisplayName != "Alice Chen" {
		t.Errorf("expected updated display name, got %q", got.DisplayName)
	}
}

func TestCreateAndGetCharacter(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	got, err := repo.GetCharacter(ctx, "missing")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing character, got %+v", got)
	}

	c := testCharacter("c1", "Hero")
	if err := repo.CreateCharacter(ctx, c); err != nil {
		t.Fatalf("CreateCharacter failed: %v", err)
	}

	got, err = repo.GetCharacter(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected character, got nil")
	}
	if got.Name != "Hero" || got.SystemPrompt != "You are Hero." || got.PlayCount != 0 {
		t.Errorf("unexpected character: %+v", got)
	}
}

func TestCreateCharacterDuplicateName(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.CreateCharacter(ctx, testCharacter("c1", "Hero")); err != nil {
		t.Fatalf("CreateCharacter failed: %v", err)
	}

	err := repo.CreateCharacter(ctx, testCharacter("c2", "Hero"))
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	// The first character is unaffected.
	got, err := repo.GetCharacter(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if got == nil || got.Name != "Hero" {
		t.Fatalf("first character affected by failed duplicate: %+v", got)
	}

	// The losing insert left no row behind.
	got, err = repo.GetCharacter(ctx, "c2")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if got != nil {
		t.Fatalf("duplicate character was persisted: %+v", got)
	}
}

func TestIncrementPlayCount(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.CreateCharacter(ctx, testCharacter("c1", "Hero")); err != nil {
		t.Fatalf("CreateCharacter failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.IncrementPlayCount(ctx, "c1"); err != nil {
			t.Fatalf("IncrementPlayCount failed: %v", err)
		}
	}

	got, err := repo.GetCharacter(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCharacter failed: %v", err)
	}
	if got.PlayCount != 3 {
		t.Errorf("expected play count 3, got %d", got.PlayCount)
	}
}

func TestAppendAndListTurns(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	const n = 4
	for i := 0; i < n; i++ {
		err := repo.AppendTurns(ctx,
			&domain.Turn{UserID: "u1", CharacterID: "c1", Role: domain.RoleUser, Content: "question", CreatedAt: now},
			&domain.Turn{UserID: "u1", CharacterID: "c1", Role: domain.RoleAssistant, Content: "answer", CreatedAt: now},
		)
		if err != nil {
			t.Fatalf("AppendTurns failed: %v", err)
		}
	}

	// A different pair's turns stay invisible.
	if err := repo.AppendTurns(ctx,
		&domain.Turn{UserID: "u2", CharacterID: "c1", Role: domain.RoleUser, Content: "other", CreatedAt: now},
	); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	turns, err := repo.ListTurns(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 2*n {
		t.Fatalf("expected %d turns, got %d", 2*n, len(turns))
	}
	for i, turn := range turns {
		want := domain.RoleUser
		if i%2 == 1 {
			want = domain.RoleAssistant
		}
		if turn.Role != want {
			t.Errorf("turn %d: expected role %s, got %s", i, want, turn.Role)
		}
	}
}

func TestRecentTurnsLimitAndOrder(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 6; i++ {
		content := string(rune('a' + i))
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		if err := repo.AppendTurns(ctx, &domain.Turn{
			UserID: "u1", CharacterID: "c1", Role: role, Content: content, CreatedAt: now,
		}); err != nil {
			t.Fatalf("AppendTurns failed: %v", err)
		}
	}

	turns, err := repo.RecentTurns(ctx, "u1", "c1", 4)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}

	// The newest 4 of a..f are c..f, oldest first.
	want := []string{"c", "d", "e", "f"}
	for i, turn := range turns {
		if turn.Content != want[i] {
			t.Errorf("turn %d: expected %q, got %q", i, want[i], turn.Content)
		}
	}
}

func TestAppendTurnsRejectsInvalidRole(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)

	err := repo.AppendTurns(context.Background(), &domain.Turn{
		UserID: "u1", CharacterID: "c1", Role: "narrator", Content: "x", CreatedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestToggleFavorite(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.CreateCharacter(ctx, testCharacter("c1", "Hero")); err != nil {
		t.Fatalf("CreateCharacter failed: %v", err)
	}

	fav, err := repo.IsFavorite(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if fav {
		t.Fatal("expected no favorite initially")
	}

	on, err := repo.ToggleFavorite(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !on {
		t.Fatal("expected toggle on")
	}

	favorites, err := repo.ListFavorites(ctx, "u1")
	if err != nil {
		t.Fatalf("ListFavorites failed: %v", err)
	}
	if len(favorites) != 1 || favorites[0].ID != "c1" {
		t.Fatalf("unexpected favorites: %+v", favorites)
	}

	// Double toggle restores the original state.
	off, err := repo.ToggleFavorite(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if off {
		t.Fatal("expected toggle off")
	}

	fav, err = repo.IsFavorite(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("IsFavorite failed: %v", err)
	}
	if fav {
		t.Fatal("expected favorite removed after second toggle")
	}
}

func TestListCharactersNewestFirst(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	older := testCharacter("c1", "First")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testCharacter("c2", "Second")

	if err := repo.CreateCharacter(ctx, older); err != nil {
		t.Fatalf("CreateCharacter failed: %v", err)
	}
	if err := repo.CreateCharacter(ctx, newer); err != nil {
		t.Fatalf("CreateCharacter failed: %v", err)
	}

	characters, err := repo.ListCharacters(ctx)
	if err != nil {
		t.Fatalf("ListCharacters failed: %v", err)
	}
	if len(characters) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(characters))
	}
	if characters[0].ID != "c2" || characters[1].ID != "c1" {
		t.Errorf("unexpected order: %s, %s", characters[0].ID, characters[1].ID)
	}
}

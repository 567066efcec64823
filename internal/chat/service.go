// Package chat implements the chat-turn flow: prompt assembly from the
// character's system prompt and recent history, completion via the
// provider client, and recording of the two new turns.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ychsieh/charachat/internal/domain"
	"github.com/ychsieh/charachat/internal/llm"
	"github.com/ychsieh/charachat/internal/store"
)

// ErrCharacterNotFound is returned when the requested character does not exist.
var ErrCharacterNotFound = errors.New("character not found")

// DefaultHistoryLimit bounds how many prior turns feed the prompt.
const DefaultHistoryLimit = 10

// Service orchestrates one chat turn end to end.
type Service struct {
	repo         store.Repository
	client       llm.Client
	historyLimit int

	// pairLocks serializes turns per (user, character) pair so recorded
	// histories stay strictly alternating under concurrent requests.
	pairLocks sync.Map
}

// NewService creates a chat service. historyLimit <= 0 selects the default.
func NewService(repo store.Repository, client llm.Client, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Service{
		repo:         repo,
		client:       client,
		historyLimit: historyLimit,
	}
}

// BuildMessages assembles the ordered prompt for one turn: the character's
// system prompt, the most recent prior turns oldest-to-newest, then the
// new user message. Read-only.
func (s *Service) BuildMessages(ctx context.Context, userID, characterID, message string) ([]llm.Message, error) {
	character, err := s.repo.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	if character == nil {
		return nil, ErrCharacterNotFound
	}

	turns, err := s.repo.RecentTurns(ctx, userID, characterID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("get recent turns: %w", err)
	}

	messages := make([]llm.Message, 0, len(turns)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: character.SystemPrompt})
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	return messages, nil
}

// Send runs one full chat turn for the (userID, characterID) pair and
// returns the generated reply. On provider failure nothing is recorded.
func (s *Service) Send(ctx context.Context, userID, characterID, message string) (string, error) {
	lock, _ := s.pairLocks.LoadOrStore(userID+"\x00"+characterID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	messages, err := s.BuildMessages(ctx, userID, characterID, message)
	if err != nil {
		return "", err
	}

	reply, err := s.client.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	// The reply is already committed to the user at this point; a failed
	// append loses the turn from history but must not fail the request.
	now := time.Now()
	if err := s.repo.AppendTurns(ctx,
		&domain.Turn{UserID: userID, CharacterID: characterID, Role: domain.RoleUser, Content: message, CreatedAt: now},
		&domain.Turn{UserID: userID, CharacterID: characterID, Role: domain.RoleAssistant, Content: reply, CreatedAt: now},
	); err != nil {
		slog.Error("Failed to record chat turn", "error", err, "user_id", userID, "character_id", characterID)
		return reply, nil
	}

	if err := s.repo.IncrementPlayCount(ctx, characterID); err != nil {
		slog.Warn("Failed to increment play count", "error", err, "character_id", characterID)
	}

	return reply, nil
}

// History returns the full recorded conversation for the pair, oldest first.
func (s *Service) History(ctx context.Context, userID, characterID string) ([]*domain.Turn, error) {
	turns, err := s.repo.ListTurns(ctx, userID, characterID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	return turns, nil
}

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/zhouzirui/chatty/internal/model/chat"
)

var (
	ErrMessageRequired = errors.New("message is required")
	ErrNoPendingTurn   = errors.New("no user turn awaiting a reply")
)

// Service keeps the backend's running conversation. The first turn is the
// system persona; later requests may replace it.
type Service struct {
	mu    sync.RWMutex
	turns []chat.Turn
}

// NewService seeds the conversation with a default persona.
func NewService(defaultPersona string) *Service {
	return &Service{
		turns: []chat.Turn{chat.SystemTurn(defaultPersona)},
	}
}

// BeginExchange applies persona (when non-empty) and appends the user turn.
// It returns the conversation the model should answer.
func (s *Service) BeginExchange(_ context.Context, persona, message string) ([]chat.Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrMessageRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if persona != "" {
		s.applyPersonaLocked(persona)
	}
	s.turns = append(s.turns, chat.Turn{Role: chat.RoleUser, Content: message})
	return chat.CloneTurns(s.turns), nil
}

// CompleteExchange records the assistant reply and returns the conversation
// including it.
func (s *Service) CompleteExchange(_ context.Context, reply string) ([]chat.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.turns) == 0 || s.turns[len(s.turns)-1].Role != chat.RoleUser {
		return nil, ErrNoPendingTurn
	}
	s.turns = append(s.turns, chat.Turn{Role: chat.RoleAssistant, Content: reply})
	return chat.CloneTurns(s.turns), nil
}

// Transcript returns a copy of the conversation.
func (s *Service) Transcript(_ context.Context) []chat.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chat.CloneTurns(s.turns)
}

func (s *Service) applyPersonaLocked(persona string) {
	if len(s.turns) > 0 && s.turns[0].Role == chat.RoleSystem {
		s.turns[0].Content = persona
		return
	}
	s.turns = append([]chat.Turn{chat.SystemTurn(persona)}, s.turns...)
}

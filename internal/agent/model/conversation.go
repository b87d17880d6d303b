package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ConversationTurn is one append-only entry of the conversation log.
type ConversationTurn struct {
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id"`
	Role      schema.RoleType   `json:"role"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Message converts the turn into an eino chat message.
func (t ConversationTurn) Message() *schema.Message {
	if t.Role == schema.Assistant {
		return schema.AssistantMessage(t.Content, nil)
	}
	return schema.UserMessage(t.Content)
}

type ConversationRepository interface {
	// AppendTurn adds a turn to the conversation log of its session
	AppendTurn(ctx context.Context, turn ConversationTurn) error

	// LoadHistory retrieves the conversation log for a session
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes all turns for a session
	ClearHistory(ctx context.Context, sessionID string) error

	// GetTurnCount returns the number of turns in the session
	GetTurnCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	SessionID string
	Turns     []ConversationTurn
}

// Messages returns the history as eino chat messages.
func (h *ConversationHistory) Messages() []*schema.Message {
	if h == nil {
		return nil
	}
	out := make([]*schema.Message, 0, len(h.Turns))
	for _, t := range h.Turns {
		out = append(out, t.Message())
	}
	return out
}

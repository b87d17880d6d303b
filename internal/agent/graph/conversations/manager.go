package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	maxTurns := config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 6
	}
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         maxTurns,
	}
}

// =========== Context for classification ===========

// BuildContext renders the most recent turns of a session for the intent
// oracle. A history that cannot be loaded yields an empty context block.
func (cm *MessagesManager) BuildContext(ctx context.Context, sessionID string) string {
	if cm == nil || cm.conversationRepo == nil {
		return renderContext(nil)
	}
	history, err := cm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to load conversation history; continuing without context")
		return renderContext(nil)
	}
	return renderContext(trimTail(history.Turns, cm.maxTurns))
}

func renderContext(turns []model.ConversationTurn) string {
	var contextBuilder strings.Builder
	contextBuilder.WriteString("<conversation_context>\n")
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		switch t.Role {
		case schema.User:
			contextBuilder.WriteString("UserMessage(" + t.Content + ")\n")
		case schema.Assistant:
			contextBuilder.WriteString("AssistantMessage(" + t.Content + ")\n")
		}
	}
	contextBuilder.WriteString("</conversation_context>")
	return contextBuilder.String()
}

// =========== Turn logging ===========

// RecordExchange appends the user utterance and the reply. Logging is best
// effort: failures are reported and never surface to the caller.
func (cm *MessagesManager) RecordExchange(ctx context.Context, userID, sessionID, utterance, reply string, metadata map[string]string) {
	if cm == nil || cm.conversationRepo == nil {
		return
	}
	turns := []model.ConversationTurn{
		{SessionID: sessionID, UserID: userID, Role: schema.User, Content: utterance},
		{SessionID: sessionID, UserID: userID, Role: schema.Assistant, Content: reply, Metadata: metadata},
	}
	for _, t := range turns {
		if err := cm.conversationRepo.AppendTurn(ctx, t); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Str("role", string(t.Role)).Msg("Failed to append conversation turn")
			return
		}
	}
}

// ====================== Helper function ======================
func trimTail(turns []model.ConversationTurn, maxTurns int) []model.ConversationTurn {
	if len(turns) <= maxTurns {
		result := make([]model.ConversationTurn, len(turns))
		copy(result, turns)
		return result
	}
	source := turns[len(turns)-maxTurns:]
	result := make([]model.ConversationTurn, len(source))
	copy(result, source)
	return result
}

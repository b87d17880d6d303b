package conversations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	"github.com/Chative-core-poc-v1/companion/internal/agent/repo"
)

type failingRepo struct{ model.ConversationRepository }

func (failingRepo) LoadHistory(context.Context, string) (*model.ConversationHistory, error) {
	return nil, errors.New("redis down")
}

func (failingRepo) AppendTurn(context.Context, model.ConversationTurn) error {
	return errors.New("redis down")
}

func TestBuildContext_KeepsRecentTurns(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore(0, 0)
	m := NewMessagesManager(store, model.ConversationConfig{MaxTurns: 2})

	for i := 1; i <= 2; i++ {
		m.RecordExchange(ctx, "u1", "s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), nil)
	}

	got := m.BuildContext(ctx, "s1")
	assert.Equal(t, "<conversation_context>\nUserMessage(q2)\nAssistantMessage(a2)\n</conversation_context>", got)

	n, err := store.GetTurnCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestBuildContext_EmptyAndFailingHistory(t *testing.T) {
	ctx := context.Background()
	empty := "<conversation_context>\n</conversation_context>"

	m := NewMessagesManager(repo.NewMemoryStore(0, 0), model.ConversationConfig{})
	assert.Equal(t, empty, m.BuildContext(ctx, "nobody"))

	failing := NewMessagesManager(failingRepo{}, model.ConversationConfig{MaxTurns: 4})
	assert.Equal(t, empty, failing.BuildContext(ctx, "s1"))
	assert.NotPanics(t, func() {
		failing.RecordExchange(ctx, "u1", "s1", "hi", "hello", nil)
	})
}

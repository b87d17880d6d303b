package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// ================ conversational_reply ================

func (n *Nodes) NewConversationalReplyNode() *compose.Lambda {
	return compose.InvokableLambda(n.ConversationalReply)
}

func (n *Nodes) ConversationalReply(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		t.Response = fallbackResponse(t)
		return t, nil
	}
	kind := t.ReplyKind
	if kind == "" || kind == model.ReplyEmotional {
		kind = model.ReplyConversational
	}
	reply := n.deps.Oracles.Text.Generate(ctx, model.ReplyRequest{
		Kind:      kind,
		Utterance: t.Utterance,
		Context:   t.Context,
	})
	t.Response = joinReply(t, reply)
	return t, nil
}

// ================ emotional_support ================

func (n *Nodes) NewEmotionalSupportNode() *compose.Lambda {
	return compose.InvokableLambda(n.EmotionalSupport)
}

// EmotionalSupport scores the mood, logs it once and replies with empathy.
// The mood write is best effort.
func (n *Nodes) EmotionalSupport(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	if t.Err != nil {
		t.Response = fallbackResponse(t)
		return t, nil
	}
	mood := n.deps.Oracles.Mood.Score(ctx, t.Utterance)
	if err := n.deps.Moods.LogMood(ctx, t.UserID, mood.Score, mood.Notes); err != nil {
		logx.Warn().Err(err).Str("user_id", t.UserID).Msg("Failed to log mood; continuing")
	}

	reply := n.deps.Oracles.Text.Generate(ctx, model.ReplyRequest{
		Kind:      model.ReplyEmotional,
		Utterance: t.Utterance,
		Context:   t.Context,
		Mood:      &mood,
	})
	t.Response = joinReply(t, reply)
	return t, nil
}

// ================ fallback_handler ================

func (n *Nodes) NewFallbackHandlerNode() *compose.Lambda {
	return compose.InvokableLambda(n.FallbackHandler)
}

// FallbackHandler consumes any fault on the turn and always answers.
func (n *Nodes) FallbackHandler(ctx context.Context, t *model.Turn) (*model.Turn, error) {
	t.Response = fallbackResponse(t)
	return t, nil
}

func fallbackResponse(t *model.Turn) string {
	if t.Err != nil {
		logx.Error().Err(t.Err).
			Str("kind", string(errx.KindOf(t.Err))).
			Bool("retryable", errx.IsRetryable(t.Err)).
			Str("user_id", t.UserID).
			Strs("path", t.Path).
			Msg("Turn fault handled by fallback")

		if errx.IsRetryable(t.Err) {
			return RetryLaterText
		}
	}
	if t.Notice != "" {
		return t.Notice
	}
	return FallbackText
}

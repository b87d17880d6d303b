package oracles

import (
	"context"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

const (
	EmotionalFallback      = "I'm here to listen and support you. Sometimes it helps just to talk about what's on your mind."
	ConversationalFallback = "I'm having trouble processing that request right now. Could you try rephrasing it?"
)

// Responder generates free-text replies.
type Responder struct {
	caller
}

func NewResponder(cm einomodel.BaseChatModel, timeout time.Duration) *Responder {
	return &Responder{caller: newCaller(cm, timeout)}
}

// Generate never fails: faults return a fixed reply for the request kind.
func (o *Responder) Generate(ctx context.Context, req model.ReplyRequest) string {
	name := prompts.Conversational
	switch req.Kind {
	case model.ReplyEmotional:
		name = prompts.Emotional
	case model.ReplySearch:
		name = prompts.Search
	}

	system, err := prompts.RenderSystem(ctx, name, map[string]any{
		"Context": req.Context,
		"Mood":    req.Mood,
	})
	if err == nil {
		var out string
		if out, err = o.generate(ctx, system, req.Utterance); err == nil {
			return strings.TrimSpace(out)
		}
	}
	logx.Warn().Err(err).Str("oracle", "text").Str("kind", string(req.Kind)).Msg("Reply generation failed; using canned reply")
	if req.Kind == model.ReplyEmotional {
		return EmotionalFallback
	}
	return ConversationalFallback
}

var _ model.TextOracle = (*Responder)(nil)

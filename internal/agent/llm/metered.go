package llm

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// Tally accumulates LLM cost for one turn.
type Tally struct {
	mu    sync.Mutex
	total float64
	calls int
}

func (t *Tally) add(cost float64) {
	t.mu.Lock()
	t.total += cost
	t.calls++
	t.mu.Unlock()
}

// TotalUSD returns the accumulated cost.
func (t *Tally) TotalUSD() float64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Calls returns the number of metered model calls.
func (t *Tally) Calls() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type tallyKey struct{}

// WithTally attaches a fresh Tally to ctx.
func WithTally(ctx context.Context) (context.Context, *Tally) {
	t := &Tally{}
	return context.WithValue(ctx, tallyKey{}, t), t
}

func tallyFrom(ctx context.Context) *Tally {
	t, _ := ctx.Value(tallyKey{}).(*Tally)
	return t
}

// Metered wraps a chat model and prices every response from its token usage.
type Metered struct {
	inner     einomodel.BaseChatModel
	modelName string
}

func NewMetered(inner einomodel.BaseChatModel, modelName string) *Metered {
	return &Metered{inner: inner, modelName: modelName}
}

func (m *Metered) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	out, err := m.inner.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	m.record(ctx, out)
	return out, nil
}

func (m *Metered) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.inner.Stream(ctx, input, opts...)
}

func (m *Metered) record(ctx context.Context, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(m.modelName))
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra["usage_cost"] = map[string]any{
		"currency":          "USD",
		"model":             m.modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}
	logx.Debug().
		Str("model", m.modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	if t := tallyFrom(ctx); t != nil {
		t.add(totalC)
	}
}

var _ einomodel.BaseChatModel = (*Metered)(nil)

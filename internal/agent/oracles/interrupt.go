package oracles

import (
	"context"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// InterruptClassifier decides whether an utterance made during a flow answers
// the pending question or leaves the flow.
type InterruptClassifier struct {
	caller
}

func NewInterruptClassifier(cm einomodel.BaseChatModel, timeout time.Duration) *InterruptClassifier {
	return &InterruptClassifier{caller: newCaller(cm, timeout)}
}

// ClassifyInterrupt never fails: any oracle fault means "not an interruption",
// so the utterance is treated as an answer.
func (o *InterruptClassifier) ClassifyInterrupt(ctx context.Context, q model.InterruptQuery) model.InterruptResult {
	system, err := prompts.RenderSystem(ctx, prompts.Interrupt, map[string]any{
		"FlowType": string(q.FlowType),
		"Step":     q.Step + 1,
		"Total":    q.Total,
		"Question": q.Question,
	})
	if err == nil {
		var res model.InterruptResult
		if err = o.generateJSON(ctx, system, q.Utterance, &res); err == nil {
			return res
		}
	}
	logx.Warn().Err(err).Str("oracle", "interrupt").Msg("Interrupt classification failed; treating as answer")
	return model.InterruptResult{IsInterruption: false, Type: model.InterruptNone, Degraded: true}
}

var _ model.InterruptOracle = (*InterruptClassifier)(nil)

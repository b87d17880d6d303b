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

// DegradedIntentConfidence is reported when classification fails.
const DegradedIntentConfidence = 0.3

// IntentClassifier labels an utterance with one of the companion intents.
type IntentClassifier struct {
	caller
}

func NewIntentClassifier(cm einomodel.BaseChatModel, timeout time.Duration) *IntentClassifier {
	return &IntentClassifier{caller: newCaller(cm, timeout)}
}

// Classify never fails: any oracle fault degrades to casual_chat at 0.3.
func (o *IntentClassifier) Classify(ctx context.Context, utterance, conversationContext string) model.IntentResult {
	system, err := prompts.RenderSystem(ctx, prompts.Intent, map[string]any{"Context": conversationContext})
	if err == nil {
		var res model.IntentResult
		if err = o.generateJSON(ctx, system, utterance, &res); err == nil {
			res.Intent = model.Intent(strings.ToLower(strings.TrimSpace(string(res.Intent))))
			return res
		}
	}
	logx.Warn().Err(err).Str("oracle", "intent").Msg("Intent classification failed; degrading to casual_chat")
	return model.IntentResult{
		Intent:     model.IntentCasualChat,
		Confidence: DegradedIntentConfidence,
		Degraded:   true,
	}
}

var _ model.IntentOracle = (*IntentClassifier)(nil)

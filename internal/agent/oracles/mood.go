package oracles

import (
	"context"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

const (
	NeutralMoodScore = 3
	NeutralMoodNote  = "Unable to analyze emotion"
)

// MoodAnalyzer scores the mood expressed in one utterance on a 1..5 scale.
type MoodAnalyzer struct {
	caller
}

func NewMoodAnalyzer(cm einomodel.BaseChatModel, timeout time.Duration) *MoodAnalyzer {
	return &MoodAnalyzer{caller: newCaller(cm, timeout)}
}

// Score never fails: faults return the neutral reading.
func (o *MoodAnalyzer) Score(ctx context.Context, utterance string) model.MoodResult {
	system, err := prompts.RenderSystem(ctx, prompts.Mood, nil)
	if err == nil {
		var res model.MoodResult
		if err = o.generateJSON(ctx, system, utterance, &res); err == nil {
			return res
		}
	}
	logx.Warn().Err(err).Str("oracle", "mood").Msg("Mood analysis failed; using neutral score")
	return model.MoodResult{PrimaryEmotion: "neutral", Score: NeutralMoodScore, Notes: NeutralMoodNote, Degraded: true}
}

var _ model.MoodOracle = (*MoodAnalyzer)(nil)

package oracles

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/Chative-core-poc-v1/companion/internal/agent/flow"
	"github.com/Chative-core-poc-v1/companion/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

// Planner asks the model for a flow plan. Validation and fallback are the
// loader's job; Planner only reports what went wrong.
type Planner struct {
	caller
}

func NewPlanner(cm einomodel.BaseChatModel, timeout time.Duration) *Planner {
	return &Planner{caller: newCaller(cm, timeout)}
}

type planResponse struct {
	Intent string           `json:"intent"`
	Steps  []model.FlowStep `json:"steps" validate:"required,min=1,max=10,dive"`
}

func (o *Planner) Plan(ctx context.Context, flowType model.FlowType, seed string) (model.FlowPlan, error) {
	mandatory := mandatoryFields(flowType)
	system, err := prompts.RenderSystem(ctx, prompts.FlowPlan, map[string]any{
		"FlowType":  string(flowType),
		"Seed":      seed,
		"Mandatory": strings.Join(mandatory, ", "),
	})
	if err != nil {
		return model.FlowPlan{}, err
	}

	var res planResponse
	if err := o.generateJSON(ctx, system, seed, &res); err != nil {
		return model.FlowPlan{}, err
	}

	plan := model.FlowPlan{Intent: model.FlowType(strings.ToLower(strings.TrimSpace(res.Intent))), Steps: res.Steps}
	if plan.Intent == "" {
		plan.Intent = flowType
	}
	for i := range plan.Steps {
		plan.Steps[i].Field = strings.TrimSpace(plan.Steps[i].Field)
		plan.Steps[i].Type = model.AnswerType(strings.ToLower(string(plan.Steps[i].Type)))
	}

	// the record title must always be collected
	if len(mandatory) > 0 && !hasField(plan, mandatory[0]) {
		return model.FlowPlan{}, fmt.Errorf("plan is missing field %q", mandatory[0])
	}
	return plan, nil
}

func mandatoryFields(flowType model.FlowType) []string {
	if !flowType.Committable() {
		return nil
	}
	var out []string
	for _, s := range flow.FallbackPlan(flowType).Steps {
		out = append(out, s.Field)
	}
	return out
}

func hasField(p model.FlowPlan, field string) bool {
	for _, s := range p.Steps {
		if s.Field == field {
			return true
		}
	}
	return false
}

var _ model.PlanOracle = (*Planner)(nil)

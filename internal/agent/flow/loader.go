package flow

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

//go:embed fallback_plans.yaml
var fallbackYAML []byte

var fallbackPlans = mustLoadFallbacks(fallbackYAML)

func mustLoadFallbacks(b []byte) map[model.FlowType]model.FlowPlan {
	var plans map[model.FlowType]model.FlowPlan
	if err := yaml.Unmarshal(b, &plans); err != nil {
		panic(fmt.Sprintf("fallback plans: %v", err))
	}
	for _, t := range []model.FlowType{model.FlowHabit, model.FlowGoal, model.FlowReminder, model.FlowOther} {
		p, ok := plans[t]
		if !ok {
			panic(fmt.Sprintf("fallback plans: missing %s", t))
		}
		if err := p.Validate(); err != nil {
			panic(fmt.Sprintf("fallback plans: %s: %v", t, err))
		}
	}
	return plans
}

// FallbackPlan returns the deterministic plan for flowType. Unknown types get
// the generic plan relabelled as "other".
func FallbackPlan(flowType model.FlowType) model.FlowPlan {
	p, ok := fallbackPlans[flowType]
	if !ok {
		p = fallbackPlans[model.FlowOther]
	}
	steps := make([]model.FlowStep, len(p.Steps))
	for i, s := range p.Steps {
		s.Options = append([]string(nil), s.Options...)
		steps[i] = s
	}
	return model.FlowPlan{Intent: p.Intent, Steps: steps}
}

// Loader resolves a plan for a new flow, preferring the plan oracle.
type Loader struct {
	oracle model.PlanOracle
}

func NewLoader(oracle model.PlanOracle) *Loader {
	return &Loader{oracle: oracle}
}

// Load returns an oracle plan when one is produced and valid for flowType;
// otherwise it returns the fallback plan and usedFallback=true. It never fails.
func (l *Loader) Load(ctx context.Context, flowType model.FlowType, seed string) (plan model.FlowPlan, usedFallback bool) {
	if !flowType.Valid() {
		flowType = model.FlowOther
	}
	if l == nil || l.oracle == nil {
		return FallbackPlan(flowType), true
	}

	p, err := l.oracle.Plan(ctx, flowType, seed)
	if err == nil {
		err = p.Validate()
	}
	if err == nil && p.Intent != flowType {
		err = fmt.Errorf("plan intent %q does not match %q", p.Intent, flowType)
	}
	if err != nil {
		logx.Warn().Err(err).Str("flow_type", string(flowType)).Msg("Plan oracle failed; using fallback plan")
		return FallbackPlan(flowType), true
	}
	return p, false
}

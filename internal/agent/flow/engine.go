package flow

import (
	"fmt"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

// Engine drives one flow instance: it walks the plan in order, parses each
// answer by its step type and reports completion. It holds no persistence;
// callers Apply it back onto the FlowInstance they store.
type Engine struct {
	plan    model.FlowPlan
	answers map[string]string
	index   int
}

// New starts an engine at the first step of plan.
func New(plan model.FlowPlan) *Engine {
	return &Engine{plan: plan, answers: map[string]string{}}
}

// Resume rebuilds an engine from a persisted instance.
func Resume(f *model.FlowInstance) (*Engine, error) {
	if f == nil {
		return nil, fmt.Errorf("resume: nil flow")
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	answers := make(map[string]string, len(f.Answers))
	for k, v := range f.Answers {
		answers[k] = v
	}
	return &Engine{plan: f.Plan, answers: answers, index: f.CurrentStep}, nil
}

// Apply writes the engine's progress onto f.
func (e *Engine) Apply(f *model.FlowInstance) {
	f.Plan = e.plan
	f.CurrentStep = e.index
	f.Answers = e.Answers()
}

// NextQuestion returns the pending step, or false when the plan is exhausted.
func (e *Engine) NextQuestion() (model.FlowStep, bool) {
	if e.Complete() {
		return model.FlowStep{}, false
	}
	return e.plan.Steps[e.index], true
}

// Submit records raw as the answer to the pending step and advances. It
// returns false, leaving state untouched, once the flow is complete.
func (e *Engine) Submit(raw string) bool {
	step, ok := e.NextQuestion()
	if !ok {
		return false
	}
	e.answers[step.Field] = ParseAnswer(step, raw)
	e.index++
	return true
}

// Complete reports whether every step has been answered.
func (e *Engine) Complete() bool {
	return e.index >= len(e.plan.Steps)
}

// Index is the number of answered steps.
func (e *Engine) Index() int { return e.index }

// Total is the number of steps in the plan.
func (e *Engine) Total() int { return len(e.plan.Steps) }

// Plan returns the engine's plan.
func (e *Engine) Plan() model.FlowPlan { return e.plan }

// Answers returns a copy of the collected answers.
func (e *Engine) Answers() map[string]string {
	out := make(map[string]string, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}

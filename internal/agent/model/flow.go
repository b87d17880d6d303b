package model

import (
	"fmt"
	"strings"
	"time"
)

// FlowType identifies what a structured flow collects.
type FlowType string

const (
	FlowHabit    FlowType = "habit"
	FlowGoal     FlowType = "goal"
	FlowReminder FlowType = "reminder"
	FlowOther    FlowType = "other"
)

// Valid reports whether t is a known flow type.
func (t FlowType) Valid() bool {
	switch t {
	case FlowHabit, FlowGoal, FlowReminder, FlowOther:
		return true
	}
	return false
}

// Committable reports whether a completed flow of this type produces a record.
func (t FlowType) Committable() bool {
	return t == FlowHabit || t == FlowGoal || t == FlowReminder
}

// AnswerType selects how a raw answer is normalised.
type AnswerType string

const (
	AnswerText   AnswerType = "text"
	AnswerDate   AnswerType = "date"
	AnswerTime   AnswerType = "time"
	AnswerChoice AnswerType = "choice"
)

func (t AnswerType) Valid() bool {
	switch t {
	case AnswerText, AnswerDate, AnswerTime, AnswerChoice:
		return true
	}
	return false
}

// FlowStep is a single question in a plan.
type FlowStep struct {
	Field    string     `json:"field" yaml:"field"`
	Question string     `json:"question" yaml:"question"`
	Type     AnswerType `json:"type" yaml:"type"`
	Options  []string   `json:"options,omitempty" yaml:"options,omitempty"`
}

// FlowPlan is the ordered list of steps for one flow instance. It never
// changes after the instance is created.
type FlowPlan struct {
	Intent FlowType   `json:"intent" yaml:"intent"`
	Steps  []FlowStep `json:"steps" yaml:"steps"`
}

// Validate checks the plan shape: known step types, unique non-empty field
// ids, options present exactly on choice steps, and at least one step.
func (p FlowPlan) Validate() error {
	if !p.Intent.Valid() {
		return fmt.Errorf("unknown flow type %q", p.Intent)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	seen := make(map[string]struct{}, len(p.Steps))
	for i, s := range p.Steps {
		field := strings.TrimSpace(s.Field)
		if field == "" {
			return fmt.Errorf("step %d: empty field", i)
		}
		if _, dup := seen[field]; dup {
			return fmt.Errorf("step %d: duplicate field %q", i, field)
		}
		seen[field] = struct{}{}
		if strings.TrimSpace(s.Question) == "" {
			return fmt.Errorf("step %d: empty question", i)
		}
		if !s.Type.Valid() {
			return fmt.Errorf("step %d: unknown answer type %q", i, s.Type)
		}
		if s.Type == AnswerChoice && len(s.Options) == 0 {
			return fmt.Errorf("step %d: choice without options", i)
		}
		if s.Type != AnswerChoice && len(s.Options) > 0 {
			return fmt.Errorf("step %d: options on %s step", i, s.Type)
		}
	}
	return nil
}

// FlowStatus is the lifecycle state of a flow instance.
type FlowStatus string

const (
	StatusActive               FlowStatus = "active"
	StatusPaused               FlowStatus = "paused"
	StatusAwaitingConfirmation FlowStatus = "awaiting_confirmation"
	StatusCompleted            FlowStatus = "completed"
	StatusCancelled            FlowStatus = "cancelled"
)

func (s FlowStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusAwaitingConfirmation, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s FlowStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// FlowInstance is the persisted progress of one flow for one user.
type FlowInstance struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	FlowType    FlowType          `json:"flow_type"`
	Plan        FlowPlan          `json:"plan"`
	Answers     map[string]string `json:"answers"`
	CurrentStep int               `json:"current_step"`
	Status      FlowStatus        `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Total returns the number of steps in the plan.
func (f *FlowInstance) Total() int {
	return len(f.Plan.Steps)
}

// Exhausted reports whether every step has been answered.
func (f *FlowInstance) Exhausted() bool {
	return f.CurrentStep >= len(f.Plan.Steps)
}

// Validate checks the invariants every persisted instance must hold.
func (f *FlowInstance) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("flow id is empty")
	}
	if f.UserID == "" {
		return fmt.Errorf("flow %s: user id is empty", f.ID)
	}
	if !f.FlowType.Valid() {
		return fmt.Errorf("flow %s: unknown flow type %q", f.ID, f.FlowType)
	}
	if !f.Status.Valid() {
		return fmt.Errorf("flow %s: unknown status %q", f.ID, f.Status)
	}
	if err := f.Plan.Validate(); err != nil {
		return fmt.Errorf("flow %s: %w", f.ID, err)
	}
	if f.Plan.Intent != f.FlowType {
		return fmt.Errorf("flow %s: plan intent %q does not match flow type %q", f.ID, f.Plan.Intent, f.FlowType)
	}
	if f.CurrentStep < 0 || f.CurrentStep > len(f.Plan.Steps) {
		return fmt.Errorf("flow %s: current step %d out of range [0,%d]", f.ID, f.CurrentStep, len(f.Plan.Steps))
	}
	return nil
}

// Snapshot is the compact view of a flow returned to callers.
type Snapshot struct {
	ID     string     `json:"id"`
	Type   FlowType   `json:"type"`
	Status FlowStatus `json:"status"`
	Step   int        `json:"step"`
	Total  int        `json:"total"`
}

func (f *FlowInstance) Snapshot() *Snapshot {
	if f == nil {
		return nil
	}
	return &Snapshot{ID: f.ID, Type: f.FlowType, Status: f.Status, Step: f.CurrentStep, Total: f.Total()}
}

package model

import "context"

// Intent labels produced by the intent oracle.
type Intent string

const (
	IntentHabit            Intent = "habit"
	IntentGoal             Intent = "goal"
	IntentReminder         Intent = "reminder"
	IntentEmotionalSupport Intent = "emotional_support"
	IntentWebSearch        Intent = "web_search"
	IntentCasualChat       Intent = "casual_chat"
)

// FlowType returns the flow an intent starts, if any.
func (i Intent) FlowType() (FlowType, bool) {
	switch i {
	case IntentHabit:
		return FlowHabit, true
	case IntentGoal:
		return FlowGoal, true
	case IntentReminder:
		return FlowReminder, true
	}
	return "", false
}

// IntentResult is the classified intent of one utterance.
type IntentResult struct {
	Intent     Intent         `json:"intent" validate:"required"`
	Confidence float64        `json:"confidence" validate:"gte=0,lte=1"`
	Entities   map[string]any `json:"entities,omitempty"`
	Degraded   bool           `json:"-"`
}

// InterruptType is the kind of interruption raised during an active flow.
type InterruptType string

const (
	InterruptEmotionalSupport InterruptType = "emotional_support"
	InterruptCasualChat       InterruptType = "casual_chat"
	InterruptWebSearch        InterruptType = "web_search"
	InterruptCancelFlow       InterruptType = "cancel_flow"
	InterruptNone             InterruptType = "none"
)

// InterruptResult is the verdict on whether an utterance leaves the flow.
type InterruptResult struct {
	IsInterruption bool          `json:"is_interruption"`
	Type           InterruptType `json:"interrupt_type" validate:"required,oneof=emotional_support casual_chat web_search cancel_flow none"`
	Confidence     float64       `json:"confidence" validate:"gte=0,lte=1"`
	Degraded       bool          `json:"-"`
}

// InterruptQuery is the input for interruption classification.
type InterruptQuery struct {
	FlowType  FlowType
	Step      int
	Total     int
	Question  string
	Utterance string
}

// MoodResult is a coarse mood reading.
type MoodResult struct {
	PrimaryEmotion string  `json:"primary_emotion"`
	Intensity      float64 `json:"intensity" validate:"gte=0,lte=10"`
	Score          int     `json:"mood_score" validate:"gte=1,lte=5"`
	Notes          string  `json:"notes"`
	Degraded       bool    `json:"-"`
}

// ReplyKind selects the framing of free-text generation.
type ReplyKind string

const (
	ReplyConversational ReplyKind = "conversational"
	ReplyEmotional      ReplyKind = "emotional"
	ReplySearch         ReplyKind = "search"
)

// ReplyRequest is the input for free-text generation.
type ReplyRequest struct {
	Kind      ReplyKind
	Utterance string
	Context   string
	Mood      *MoodResult
}

type IntentOracle interface {
	Classify(ctx context.Context, utterance, conversationContext string) IntentResult
}

// PlanOracle proposes a plan; callers fall back when it errors.
type PlanOracle interface {
	Plan(ctx context.Context, flowType FlowType, seed string) (FlowPlan, error)
}

type InterruptOracle interface {
	ClassifyInterrupt(ctx context.Context, q InterruptQuery) InterruptResult
}

type TextOracle interface {
	Generate(ctx context.Context, req ReplyRequest) string
}

type MoodOracle interface {
	Score(ctx context.Context, utterance string) MoodResult
}

// Oracles bundles every oracle the orchestrator consults.
type Oracles struct {
	Intent    IntentOracle
	Plan      PlanOracle
	Interrupt InterruptOracle
	Text      TextOracle
	Mood      MoodOracle
}

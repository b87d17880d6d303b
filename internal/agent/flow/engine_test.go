package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

func habitInstance(plan model.FlowPlan) *model.FlowInstance {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.FlowInstance{
		ID:        "flow-1",
		UserID:    "u1",
		FlowType:  model.FlowHabit,
		Plan:      plan,
		Answers:   map[string]string{},
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestEngine_WalksPlanInOrder(t *testing.T) {
	e := New(FallbackPlan(model.FlowHabit))
	answers := []string{"Meditation", "mindfulness", "1", "to feel calm", "8am", "2"}

	for i, a := range answers {
		require.False(t, e.Complete())
		step, ok := e.NextQuestion()
		require.True(t, ok)
		assert.Equal(t, e.Plan().Steps[i].Field, step.Field)
		require.True(t, e.Submit(a))
		assert.Equal(t, i+1, e.Index())
	}

	assert.True(t, e.Complete())
	_, ok := e.NextQuestion()
	assert.False(t, ok)
	assert.False(t, e.Submit("extra"), "submit after completion is a no-op")
	assert.Equal(t, len(answers), e.Index())

	got := e.Answers()
	assert.Equal(t, "Meditation", got["habit_name"])
	assert.Equal(t, "Mindfulness", got["habit_type"])
	assert.Equal(t, "Daily", got["frequency"])
	assert.Equal(t, "08:00 AM", got["reminder_time"])
	assert.Equal(t, "SMS", got["notification_method"])
}

func TestEngine_ResumeThroughCodecIsIdempotent(t *testing.T) {
	inst := habitInstance(FallbackPlan(model.FlowHabit))
	e := New(inst.Plan)
	e.Submit("Running")
	e.Submit("1")
	e.Apply(inst)

	b, err := model.EncodeFlow(inst)
	require.NoError(t, err)
	decoded, err := model.DecodeFlow(b)
	require.NoError(t, err)

	resumed, err := Resume(decoded)
	require.NoError(t, err)
	assert.Equal(t, e.Index(), resumed.Index())
	assert.Equal(t, e.Answers(), resumed.Answers())

	q1, _ := e.NextQuestion()
	q2, _ := resumed.NextQuestion()
	assert.Equal(t, q1, q2)

	// a second round trip changes nothing
	resumed.Apply(decoded)
	b2, err := model.EncodeFlow(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(b2))
}

func TestResume_RejectsCorruptInstance(t *testing.T) {
	inst := habitInstance(FallbackPlan(model.FlowHabit))
	inst.CurrentStep = 99
	_, err := Resume(inst)
	assert.Error(t, err)
}

func TestEngine_Summary(t *testing.T) {
	e := New(FallbackPlan(model.FlowHabit))
	e.Submit("Meditation")
	e.Submit("Mindfulness")
	e.Submit("Daily")
	e.Submit("calm mind")

	s := e.Summary()
	assert.Contains(t, s, "Habit: Meditation")
	assert.Contains(t, s, "Type: Mindfulness")
	assert.Contains(t, s, "Frequency: Daily")
	assert.Contains(t, s, "Reminder: Not set")
	assert.Contains(t, s, "Notification: Not specified")
	assert.Contains(t, s, "Motivation: calm mind")
	assert.True(t, strings.HasPrefix(s, "Habit:"))
}

type stubPlanOracle struct {
	plan model.FlowPlan
	err  error
}

func (s stubPlanOracle) Plan(context.Context, model.FlowType, string) (model.FlowPlan, error) {
	return s.plan, s.err
}

func TestLoader_FallbackTotality(t *testing.T) {
	goalOnly := stubPlanOracle{plan: model.FlowPlan{Intent: model.FlowGoal, Steps: []model.FlowStep{
		{Field: "x", Question: "why", Type: model.AnswerText},
	}}}
	broken := map[string]model.PlanOracle{
		"nil":      nil,
		"error":    stubPlanOracle{err: errors.New("timeout")},
		"no steps": stubPlanOracle{plan: model.FlowPlan{Intent: model.FlowHabit}},
		"choice without options": stubPlanOracle{plan: model.FlowPlan{Intent: model.FlowHabit, Steps: []model.FlowStep{
			{Field: "x", Question: "pick", Type: model.AnswerChoice},
		}}},
	}
	types := []model.FlowType{model.FlowHabit, model.FlowGoal, model.FlowReminder, model.FlowOther, "unknown"}

	for name, o := range broken {
		l := NewLoader(o)
		for _, ft := range types {
			plan, fallback := l.Load(context.Background(), ft, "seed")
			assert.True(t, fallback, "%s/%s", name, ft)
			require.NoError(t, plan.Validate())
		}
	}

	// a valid plan for the wrong flow type is also rejected
	for _, ft := range []model.FlowType{model.FlowHabit, model.FlowReminder} {
		plan, fallback := NewLoader(goalOnly).Load(context.Background(), ft, "seed")
		assert.True(t, fallback)
		assert.Equal(t, ft, plan.Intent)
	}
}

func TestLoader_UsesValidOraclePlan(t *testing.T) {
	want := model.FlowPlan{Intent: model.FlowReminder, Steps: []model.FlowStep{
		{Field: "reminder_text", Question: "What?", Type: model.AnswerText},
		{Field: "reminder_time", Question: "When?", Type: model.AnswerTime},
	}}
	plan, fallback := NewLoader(stubPlanOracle{plan: want}).Load(context.Background(), model.FlowReminder, "remind me")
	assert.False(t, fallback)
	assert.Equal(t, want, plan)
}

func TestFallbackPlan_MandatoryFields(t *testing.T) {
	want := map[model.FlowType][]string{
		model.FlowHabit:    {"habit_name", "habit_type", "frequency", "motivation", "reminder_time", "notification_method"},
		model.FlowGoal:     {"goal_name", "target_date", "tracking_method", "motivation", "notification_method"},
		model.FlowReminder: {"reminder_text", "reminder_time", "notification_method"},
	}
	for ft, fields := range want {
		p := FallbackPlan(ft)
		var got []string
		for _, s := range p.Steps {
			got = append(got, s.Field)
		}
		assert.Equal(t, fields, got, ft)
	}

	p := FallbackPlan(model.FlowHabit)
	p.Steps[1].Options[0] = "mutated"
	assert.Equal(t, "Health & Fitness", FallbackPlan(model.FlowHabit).Steps[1].Options[0])
}

package oracles

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

// scripted returns a fixed reply (or error) and records the last prompt.
type scripted struct {
	reply string
	err   error
	delay time.Duration
	last  []*schema.Message
}

func (s *scripted) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	s.last = in
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.reply, nil), nil
}

func (s *scripted) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := s.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("```json\n{\"a\": 1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, got)

	got, err = extractJSON(`Sure! {"intent":"habit"} hope that helps`)
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"habit"}`, got)

	_, err = extractJSON("no braces here")
	assert.ErrorIs(t, err, errNoJSON)
}

func TestIntentClassifier(t *testing.T) {
	ctx := context.Background()

	o := NewIntentClassifier(&scripted{reply: `{"intent":"Habit","confidence":0.92}`}, time.Second)
	res := o.Classify(ctx, "I want to start meditating", "<conversation_context>\n</conversation_context>")
	assert.Equal(t, model.IntentHabit, res.Intent)
	assert.InDelta(t, 0.92, res.Confidence, 1e-9)
	assert.False(t, res.Degraded)

	degraded := []*scripted{
		{err: errors.New("503")},
		{reply: "not json"},
		{reply: `{"intent":"habit","confidence":1.7}`},
		{reply: `{"confidence":0.9}`},
		{reply: `{"intent":"habit","confidence":0.9}`, delay: 200 * time.Millisecond},
	}
	for i, cm := range degraded {
		res := NewIntentClassifier(cm, 50*time.Millisecond).Classify(ctx, "hi", "")
		assert.Equal(t, model.IntentCasualChat, res.Intent, i)
		assert.Equal(t, DegradedIntentConfidence, res.Confidence, i)
		assert.True(t, res.Degraded, i)
	}
}

func TestInterruptClassifier(t *testing.T) {
	ctx := context.Background()
	q := model.InterruptQuery{FlowType: model.FlowHabit, Step: 1, Total: 6, Question: "What type?", Utterance: "I feel awful"}

	cm := &scripted{reply: `{"is_interruption": true, "interrupt_type": "emotional_support", "confidence": 0.85}`}
	res := NewInterruptClassifier(cm, time.Second).ClassifyInterrupt(ctx, q)
	assert.True(t, res.IsInterruption)
	assert.Equal(t, model.InterruptEmotionalSupport, res.Type)
	require.Len(t, cm.last, 2)
	assert.Contains(t, cm.last[0].Content, "Current step: 2 of 6")
	assert.Equal(t, "I feel awful", cm.last[1].Content)

	res = NewInterruptClassifier(&scripted{reply: `{"is_interruption": true, "interrupt_type": "dance", "confidence": 0.9}`}, time.Second).ClassifyInterrupt(ctx, q)
	assert.False(t, res.IsInterruption)
	assert.True(t, res.Degraded)
}

func TestPlanner(t *testing.T) {
	ctx := context.Background()
	reply := `{"intent":"reminder","steps":[
		{"field":"reminder_text","question":"What should I remind you about?","type":"text"},
		{"field":"reminder_time","question":"When?","type":"TIME"}]}`
	plan, err := NewPlanner(&scripted{reply: reply}, time.Second).Plan(ctx, model.FlowReminder, "remind me to call mom")
	require.NoError(t, err)
	require.NoError(t, plan.Validate())
	assert.Equal(t, model.AnswerTime, plan.Steps[1].Type)

	_, err = NewPlanner(&scripted{reply: `{"intent":"reminder","steps":[{"field":"when","question":"When?","type":"time"}]}`}, time.Second).
		Plan(ctx, model.FlowReminder, "x")
	assert.Error(t, err, "title field is mandatory")

	_, err = NewPlanner(&scripted{reply: `{"intent":"reminder","steps":[]}`}, time.Second).Plan(ctx, model.FlowReminder, "x")
	assert.Error(t, err)
}

func TestResponderAndMood(t *testing.T) {
	ctx := context.Background()

	r := NewResponder(&scripted{reply: "  That sounds hard.  "}, time.Second)
	mood := &model.MoodResult{PrimaryEmotion: "sad", Score: 2}
	cm := r.caller.cm.(*scripted)
	assert.Equal(t, "That sounds hard.", r.Generate(ctx, model.ReplyRequest{Kind: model.ReplyEmotional, Utterance: "rough day", Mood: mood}))
	assert.Contains(t, cm.last[0].Content, "Observed mood: sad (score 2/5)")

	failing := NewResponder(&scripted{err: errors.New("down")}, time.Second)
	assert.Equal(t, EmotionalFallback, failing.Generate(ctx, model.ReplyRequest{Kind: model.ReplyEmotional}))
	assert.Equal(t, ConversationalFallback, failing.Generate(ctx, model.ReplyRequest{Kind: model.ReplySearch}))

	m := NewMoodAnalyzer(&scripted{reply: `{"primary_emotion":"joy","intensity":7,"mood_score":5,"notes":"upbeat"}`}, time.Second)
	assert.Equal(t, 5, m.Score(ctx, "great day!").Score)

	neutral := NewMoodAnalyzer(&scripted{reply: `{"mood_score":9}`}, time.Second).Score(ctx, "meh")
	assert.Equal(t, NeutralMoodScore, neutral.Score)
	assert.Equal(t, NeutralMoodNote, neutral.Notes)
}

func TestNewSuite(t *testing.T) {
	s := NewSuite(&scripted{}, &scripted{}, 0)
	assert.NotNil(t, s.Intent)
	assert.NotNil(t, s.Plan)
	assert.NotNil(t, s.Interrupt)
	assert.NotNil(t, s.Text)
	assert.NotNil(t, s.Mood)
}

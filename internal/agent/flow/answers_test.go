package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

var notificationOptions = []string{"Email", "SMS", "WhatsApp", "Push Notification", "Slack"}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"8am", "08:00 AM", true},
		{"8:00 AM", "08:00 AM", true},
		{"at 8", "08:00 AM", true},
		{"8", "08:00 AM", true},
		{"8:30pm", "08:30 PM", true},
		{"remind me at 7 pm please", "07:00 PM", true},
		{"around 18:45", "06:45 PM", true},
		{"12 am", "12:00 AM", true},
		{"12:15 PM", "12:15 PM", true},
		{"9 a.m.", "09:00 AM", true},
		{"set for 21", "09:00 PM", true},
		{"whenever", "", false},
		{"25:00", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseTime(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseChoice(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"sms", "SMS", true},
		{"2", "SMS", true},
		{"the third one", "WhatsApp", true},
		{"1st", "Email", true},
		{"emails please", "Email", true},
		{"push", "Push Notification", true},
		{"whatapp", "WhatsApp", true},
		{"slak", "Slack", true},
		{"7", "", false},
		{"carrier pigeon", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseChoice(tc.in, notificationOptions)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseChoice_WordOverlap(t *testing.T) {
	opts := []string{"Daily check-ins", "Weekly reviews", "Milestone tracking"}
	got, ok := ParseChoice("I like reviews on sundays", opts)
	assert.True(t, ok)
	assert.Equal(t, "Weekly reviews", got)
}

func TestParseChoice_LooseMatching(t *testing.T) {
	frequency := []string{"Daily", "Weekly", "Monthly"}
	cases := []struct {
		in      string
		options []string
		want    string
	}{
		{"d", frequency, "Daily"},
		{"ly", frequency, "Daily"},
		{"my secondary pick", frequency, "Weekly"},
		{"thirdly", frequency, "Monthly"},
		{"go to bed", []string{"Go to gym", "Read"}, "Go to gym"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseChoice(tc.in, tc.options)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"in 3 months", "in 3 months"},
		{"hopefully by December", "by December"},
		{"by next week", "by next week"},
		{"March 15th, 2026", "March 15th, 2026"},
		{"June 1", "June 1"},
		{"12/25/2026", "12/25/2026"},
		{"2026-06-30", "2026-06-30"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseDate(tc.in)
			assert.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := ParseDate("someday")
	assert.False(t, ok)
}

func TestParseAnswer_NeverRejects(t *testing.T) {
	steps := []model.FlowStep{
		{Field: "t", Type: model.AnswerTime, Question: "q"},
		{Field: "c", Type: model.AnswerChoice, Question: "q", Options: notificationOptions},
		{Field: "d", Type: model.AnswerDate, Question: "q"},
		{Field: "x", Type: model.AnswerText, Question: "q"},
	}
	for _, s := range steps {
		assert.Equal(t, "  no idea ", ParseAnswer(s, "  no idea "), s.Field)
	}

	text := model.FlowStep{Field: "why", Type: model.AnswerText, Question: "q"}
	assert.Equal(t, "  to feel calm\n", ParseAnswer(text, "  to feel calm\n"))
	assert.Equal(t, "08:00 AM", ParseAnswer(steps[0], "  8am "))
	assert.Equal(t, "SMS", ParseAnswer(steps[1], " sms "))
}

package model

import (
	"strings"
	"time"
)

// Record is a committed habit, goal or reminder. Kind-specific columns are
// Frequency (habit), TargetDate (goal) and ReminderTime (reminder); every
// other collected answer lives in Metadata.
type Record struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Kind         FlowType          `json:"kind"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Frequency    string            `json:"frequency,omitempty"`
	TargetDate   string            `json:"target_date,omitempty"`
	ReminderTime string            `json:"reminder_time,omitempty"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// MoodEntry is one mood observation on a 1..5 scale.
type MoodEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

const RecordStatusActive = "active"

// field names that map onto record columns
var recordColumns = map[FlowType]struct{ title, column string }{
	FlowHabit:    {title: "habit_name", column: "frequency"},
	FlowGoal:     {title: "goal_name", column: "target_date"},
	FlowReminder: {title: "reminder_text", column: "reminder_time"},
}

// RecordFromFlow maps the answers of a completed flow onto a record.
func RecordFromFlow(f *FlowInstance) *Record {
	cols := recordColumns[f.FlowType]
	rec := &Record{
		UserID:   f.UserID,
		Kind:     f.FlowType,
		Status:   RecordStatusActive,
		Metadata: map[string]string{},
	}

	used := map[string]bool{cols.title: true, cols.column: true, "description": true}
	rec.Title = strings.TrimSpace(f.Answers[cols.title])
	if rec.Title == "" {
		rec.Title = "Untitled " + string(f.FlowType)
	}
	rec.Description = f.Answers["description"]
	if rec.Description == "" && f.FlowType != FlowReminder {
		rec.Description = f.Answers["motivation"]
	}

	switch f.FlowType {
	case FlowHabit:
		rec.Frequency = f.Answers[cols.column]
		if rec.Frequency == "" {
			rec.Frequency = "Daily"
		}
	case FlowGoal:
		rec.TargetDate = f.Answers[cols.column]
	case FlowReminder:
		rec.ReminderTime = f.Answers[cols.column]
	}

	for k, v := range f.Answers {
		if used[k] {
			continue
		}
		rec.Metadata[k] = v
	}
	return rec
}

package flow

import (
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

type summaryLine struct {
	label       string
	fields      []string
	placeholder string
}

var summaryLayouts = map[model.FlowType][]summaryLine{
	model.FlowHabit: {
		{"Habit", []string{"habit_name"}, "Unknown"},
		{"Type", []string{"habit_type"}, "Not specified"},
		{"Frequency", []string{"frequency"}, "Not specified"},
		{"Reminder", []string{"reminder_time"}, "Not set"},
		{"Notification", []string{"notification_method"}, "Not specified"},
	},
	model.FlowGoal: {
		{"Goal", []string{"goal_name"}, "Unknown"},
		{"Target Date", []string{"target_date"}, "Not specified"},
		{"Tracking", []string{"tracking_method"}, "Not specified"},
		{"Notification", []string{"notification_method"}, "Not specified"},
	},
	model.FlowReminder: {
		{"Reminder", []string{"reminder_text"}, "Unknown"},
		{"Time", []string{"reminder_time"}, "Not set"},
		{"Notification", []string{"notification_method"}, "Not specified"},
	},
}

// Summary renders a labelled recap of the collected answers. Known fields
// appear under fixed labels; any other answered step follows in plan order.
func (e *Engine) Summary() string {
	var b strings.Builder
	used := map[string]bool{}

	for _, line := range summaryLayouts[e.plan.Intent] {
		val := ""
		for _, f := range line.fields {
			used[f] = true
			if v := strings.TrimSpace(e.answers[f]); v != "" && val == "" {
				val = v
			}
		}
		if val == "" {
			val = line.placeholder
		}
		fmt.Fprintf(&b, "%s: %s\n", line.label, val)
	}

	for _, step := range e.plan.Steps {
		if used[step.Field] {
			continue
		}
		v, ok := e.answers[step.Field]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", humanize(step.Field), v)
	}
	return strings.TrimRight(b.String(), "\n")
}

func humanize(field string) string {
	parts := strings.Fields(strings.ReplaceAll(field, "_", " "))
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

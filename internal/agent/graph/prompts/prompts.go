package prompts

import (
	"context"
	"embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/*.txt
var templates embed.FS

// Template names, one per file under template/.
const (
	Intent         = "intent"
	Interrupt      = "interrupt"
	FlowPlan       = "flow_plan"
	Mood           = "mood"
	Emotional      = "emotional"
	Conversational = "conversational"
	Search         = "search"
)

// RenderSystem renders the named system prompt via the Eino prompt component
// (Go template syntax), which also triggers Prompt callbacks.
func RenderSystem(ctx context.Context, name string, vars map[string]any) (string, error) {
	raw, err := templates.ReadFile("template/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("%s prompt: %w", name, err)
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(string(raw)),
	)
	if vars == nil {
		vars = map[string]any{}
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}

package observers

import (
	"context"
	"errors"
	"strings"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestModelHandlerToleratesMissingRunInfo(t *testing.T) {
	h := newModelHandler()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		h.OnStart(ctx, nil, &model.CallbackInput{Messages: []*schema.Message{schema.SystemMessage("sys"), nil, schema.UserMessage("hi")}})
		h.OnEnd(ctx, &einocb.RunInfo{Name: "classifier"}, &model.CallbackOutput{Message: schema.AssistantMessage("hello", nil)})
		h.OnError(ctx, nil, errors.New("boom"))
	})
}

func TestPromptHandlerToleratesMissingRunInfo(t *testing.T) {
	h := newPromptHandler()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		h.OnStart(ctx, nil, &prompt.CallbackInput{Variables: map[string]any{"Context": ""}})
		h.OnEnd(ctx, nil, &prompt.CallbackOutput{Result: []*schema.Message{schema.SystemMessage("x")}})
		h.OnEnd(ctx, nil, nil)
	})
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "b", lastUserContent([]*schema.Message{schema.UserMessage("a"), schema.UserMessage(" b "), schema.AssistantMessage("c", nil)}))
	assert.Equal(t, "", lastUserContent(nil))

	long := strings.Repeat("x", maxLoggedContent+10)
	assert.Len(t, clip(long), maxLoggedContent+3)

	assert.NotNil(t, NewAllCallbacks())
	assert.NotNil(t, NewPromptCallbacks())
}

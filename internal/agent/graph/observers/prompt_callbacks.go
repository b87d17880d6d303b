package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// newPromptHandler logs template variables and the rendered system prompt.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *prompt.CallbackInput) context.Context {
			typ, name := runInfo(info)
			ev := logx.Debug().Str("component", "prompt").Str("type", typ).Str("name", name)
			if input != nil {
				ev = ev.Int("variables", len(input.Variables))
			}
			ev.Msg("prompt render start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			typ, name := runInfo(info)
			ev := logx.Debug().Str("component", "prompt").Str("type", typ).Str("name", name)
			if output != nil && len(output.Result) > 0 && output.Result[0] != nil {
				ev = ev.Str("rendered", clip(output.Result[0].Content))
			}
			ev.Msg("prompt render end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			typ, name := runInfo(info)
			logx.Warn().Err(err).Str("component", "prompt").Str("type", typ).Str("name", name).Msg("prompt render failed")
			return ctx
		},
	}
}

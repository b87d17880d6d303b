package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// Config holds the configuration for chat model creation
type Config struct {
	LLM        model.LLMConfig
	Classifier model.ClassifierModelConfig
	Response   model.ResponseModelConfig
}

// ChatModels holds the classifier and response chat models
type ChatModels struct {
	Classifier          einomodel.BaseChatModel
	Response            einomodel.BaseChatModel
	ClassifierModelName string
	ResponseModelName   string
}

// NewChatModels creates both models for the configured provider, each
// wrapped with cost metering.
func NewChatModels(ctx context.Context, config Config) (*ChatModels, error) {
	var (
		classifier, response einomodel.BaseChatModel
		err                  error
	)

	switch strings.ToLower(config.LLM.Provider) {
	case "", "gemini":
		classifier, response, err = newGeminiModels(ctx, config)
	case "openai":
		if config.LLM.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		classifier = NewOpenAIChatModel(config.LLM.OpenAIAPIKey, config.LLM.OpenAIBaseURL,
			config.Classifier.Model, config.Classifier.Temperature, config.Classifier.MaxTokens)
		response = NewOpenAIChatModel(config.LLM.OpenAIAPIKey, config.LLM.OpenAIBaseURL,
			config.Response.Model, config.Response.Temperature, config.Response.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", config.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("provider", config.LLM.Provider).
		Str("classifier", config.Classifier.Model).
		Str("response", config.Response.Model).
		Msg("Chat models created")

	return &ChatModels{
		Classifier:          NewMetered(classifier, config.Classifier.Model),
		Response:            NewMetered(response, config.Response.Model),
		ClassifierModelName: config.Classifier.Model,
		ResponseModelName:   config.Response.Model,
	}, nil
}

package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

// newGeminiModels creates the classifier and response models on one Gemini client.
func newGeminiModels(ctx context.Context, config Config) (classifier, response einomodel.BaseChatModel, err error) {
	if config.LLM.GeminiAPIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.LLM.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.LLM.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.LLM.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// The classifier answers in strict JSON; thinking output would pollute it.
	classifierModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Classifier.Model,
		Temperature: &config.Classifier.Temperature,
		MaxTokens:   &config.Classifier.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	responseModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Response.Model,
		Temperature: &config.Response.Temperature,
		MaxTokens:   &config.Response.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(512)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, nil, fmt.Errorf("error creating response model: %w", err)
	}

	return classifierModel, responseModel, nil
}

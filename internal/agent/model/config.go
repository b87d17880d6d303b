package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL      time.Duration `envconfig:"CONVERSATION_TTL" default:"168h"`
	MaxTurns int           `envconfig:"CONVERSATION_MAX_TURNS" default:"6"`
}

type FlowConfig struct {
	OracleTimeout      time.Duration `envconfig:"ORACLE_TIMEOUT" default:"20s"`
	StrictConfirmation bool          `envconfig:"CONFIRMATION_STRICT" default:"false"`
	StaleAfter         time.Duration `envconfig:"FLOW_STALE_AFTER" default:"0"`
	LockTTL            time.Duration `envconfig:"USER_LOCK_TTL" default:"60s"`
}

type LLMConfig struct {
	Provider      string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

// ClassifierModelConfig drives the JSON oracles (intent, plan, interrupt, mood).
type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

// ResponseModelConfig drives free-text replies.
type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.7"`
}

type StoreConfig struct {
	// Flows selects the flow + conversation backend: memory | redis.
	Flows string `envconfig:"STORE_FLOWS" default:"memory"`
	// Records selects the committed record + mood backend: memory | sqlite | postgres.
	Records    string `envconfig:"STORE_RECORDS" default:"sqlite"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"companion.db"`
}

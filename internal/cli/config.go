package cli

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	"github.com/Chative-core-poc-v1/companion/internal/core"
	"github.com/Chative-core-poc-v1/companion/internal/server"
	"github.com/Chative-core-poc-v1/companion/pkg/database"
	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/companion/pkg/redis"
)

// AppConfig defines every configurable parameter, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"14"`

	// Infrastructure
	Redis    pkgredis.Config
	Database database.Config
	HTTP     server.Config
	Store    model.StoreConfig

	// LLM provider and models
	LLM        model.LLMConfig
	Classifier model.ClassifierModelConfig
	Response   model.ResponseModelConfig

	// Orchestrator
	Conversation model.ConversationConfig
	Flow         model.FlowConfig
}

func LoadConfig() (AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return AppConfig{}, fmt.Errorf("processing environment config: %w", err)
	}
	if err := c.validate(); err != nil {
		return AppConfig{}, err
	}
	return c, nil
}

func (c AppConfig) validate() error {
	switch c.Store.Flows {
	case "memory":
	case "redis":
		if !c.Redis.Enabled() {
			return fmt.Errorf("STORE_FLOWS=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_FLOWS %q", c.Store.Flows)
	}

	switch c.Store.Records {
	case "memory", "sqlite":
	case "postgres":
		if c.Database.ConnectionString == "" {
			return fmt.Errorf("STORE_RECORDS=postgres requires DB_CONNECTION_STRING")
		}
	default:
		return fmt.Errorf("unknown STORE_RECORDS %q", c.Store.Records)
	}
	return nil
}

func (c AppConfig) LoggerOpts() logx.LoggerOpts {
	return logx.LoggerOpts{
		Environment: core.ParseEnvironment(c.Environment),
		File:        c.LogFile,
		MaxSizeMB:   c.LogMaxSizeMB,
		MaxBackups:  c.LogMaxBackups,
		MaxAgeDays:  c.LogMaxAgeDays,
	}
}

// Package config provides configuration for canopy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Summarization capability
	LLMBaseURL string        `yaml:"llm_base_url"`
	LLMAPIKey  string        `yaml:"llm_api_key"`
	LLMModel   string        `yaml:"llm_model"`
	LLMTimeout time.Duration `yaml:"llm_timeout"`

	// Agent bridge (identity reset)
	AgentBridgeURL string `yaml:"agent_bridge_url"`

	// Event log
	EventBatchSize     int           `yaml:"event_batch_size"`
	EventFlushInterval time.Duration `yaml:"event_flush_interval"`
	EventRetentionDays int           `yaml:"event_retention_days"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from environment variables, optionally overlaid
// on a YAML file named by CANOPY_CONFIG.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:           8080,
		DatabaseURL:        "file:canopy.db?cache=shared&mode=rwc",
		LLMBaseURL:         "http://localhost:4000",
		LLMModel:           "gpt-4o-mini",
		LLMTimeout:         60 * time.Second,
		EventBatchSize:     20,
		EventFlushInterval: 2 * time.Second,
		EventRetentionDays: 30,
		LogLevel:           "info",
	}

	if path := os.Getenv("CANOPY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTimeout = time.Duration(getEnvInt("LLM_TIMEOUT_MS", int(cfg.LLMTimeout/time.Millisecond))) * time.Millisecond
	cfg.AgentBridgeURL = getEnv("AGENT_BRIDGE_URL", cfg.AgentBridgeURL)
	cfg.EventBatchSize = getEnvInt("EVENT_BATCH_SIZE", cfg.EventBatchSize)
	cfg.EventFlushInterval = time.Duration(getEnvInt("EVENT_FLUSH_INTERVAL_MS", int(cfg.EventFlushInterval/time.Millisecond))) * time.Millisecond
	cfg.EventRetentionDays = getEnvInt("EVENT_RETENTION_DAYS", cfg.EventRetentionDays)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// EventRetention returns the retention window as a duration.
func (c *Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

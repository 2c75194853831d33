// Package config resolves the gateway configuration from the environment.
// Every knob has a default; the recognized variables are enumerated here and
// nowhere else.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the effective gateway configuration.
type Config struct {
	Port     int    `json:"port"`
	PortFile string `json:"port_file,omitempty"`
	LogLevel string `json:"log_level"`

	// MaxConcurrent caps simultaneous runner executions across requests.
	MaxConcurrent int64 `json:"max_concurrent"`

	// RankTokenBudget is the trimmer's base budget; BufferTokens reserves
	// headroom for the system prompt, tool schemas, attachments, and the
	// incoming message.
	RankTokenBudget int `json:"rank_token_budget"`
	BufferTokens    int `json:"buffer_tokens"`

	CompactionInterval  int  `json:"compaction_interval"`
	CompactionOverlap   int  `json:"compaction_overlap"`
	CompactionMinEvents int  `json:"compaction_min_events"`
	EnableCompaction    bool `json:"enable_compaction"`

	EnableContextStrategies bool   `json:"enable_context_strategies"`
	MemoryPath              string `json:"memory_path"`

	// TokenEstimator selects "chars" (default) or "tiktoken".
	TokenEstimator string `json:"token_estimator"`

	ToolExecutorURL string `json:"tool_executor_url,omitempty"`

	// SessionTTL enables the idle-session sweeper when non-zero.
	SessionTTL time.Duration `json:"session_ttl,omitempty"`

	LLM struct {
		BaseURL string `json:"base_url"`
		APIKey  string `json:"api_key"`
		Model   string `json:"model"`
	} `json:"llm"`
}

// FromEnv builds the configuration from environment variables, applying
// defaults for everything unset.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                envInt("ADK_PORT", 8000),
		PortFile:            os.Getenv("ADK_PORT_FILE"),
		LogLevel:            envStr("ADK_LOG_LEVEL", "info"),
		MaxConcurrent:       int64(envInt("ADK_MAX_CONCURRENT", 8)),
		RankTokenBudget:     envInt("ADK_CONTEXT_RANK_TOKEN_BUDGET", 4000),
		BufferTokens:        envInt("ADK_CONTEXT_BUFFER_TOKENS", 2200),
		CompactionInterval:  envInt("ADK_COMPACTION_INTERVAL", 3),
		CompactionOverlap:   envInt("ADK_COMPACTION_OVERLAP", 1),
		CompactionMinEvents: envInt("ADK_COMPACTION_MIN_EVENTS", 3),
		EnableCompaction:    envBool("ADK_ENABLE_COMPACTION"),

		EnableContextStrategies: envBool("ADK_ENABLE_CONTEXT_STRATEGIES"),
		MemoryPath:              envStr("ADK_MEMORY_PATH", filepath.Join(os.Getenv("HOME"), ".adkgateway", "memory.json")),

		TokenEstimator:  envStr("ADK_TOKEN_ESTIMATOR", "chars"),
		ToolExecutorURL: os.Getenv("ADK_TOOL_EXECUTOR_URL"),
	}

	cfg.LLM.BaseURL = envStr("OPENAI_COMPATIBLE_BASE_URL", "https://api.openai.com/v1")
	cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.LLM.Model = envStr("OPENAI_COMPATIBLE_MODEL", "gpt-4o-mini")

	if ttl := os.Getenv("ADK_SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("parse ADK_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CompactionInterval < 1 {
		return fmt.Errorf("compaction interval must be >= 1, got %d", c.CompactionInterval)
	}
	if c.CompactionOverlap < 0 {
		return fmt.Errorf("compaction overlap must be >= 0, got %d", c.CompactionOverlap)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	switch c.TokenEstimator {
	case "chars", "tiktoken":
	default:
		return fmt.Errorf("unknown token estimator %q", c.TokenEstimator)
	}
	return nil
}

func envStr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

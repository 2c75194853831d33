package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Port)
	}
	if cfg.RankTokenBudget != 4000 {
		t.Errorf("rank budget = %d, want 4000", cfg.RankTokenBudget)
	}
	if cfg.BufferTokens != 2200 {
		t.Errorf("buffer = %d, want 2200", cfg.BufferTokens)
	}
	if cfg.CompactionInterval != 3 || cfg.CompactionOverlap != 1 {
		t.Errorf("compaction params = (%d, %d), want (3, 1)", cfg.CompactionInterval, cfg.CompactionOverlap)
	}
	if cfg.EnableCompaction || cfg.EnableContextStrategies {
		t.Error("strategy features must default off")
	}
	if cfg.TokenEstimator != "chars" {
		t.Errorf("estimator = %q, want chars", cfg.TokenEstimator)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ADK_PORT", "9100")
	t.Setenv("ADK_CONTEXT_RANK_TOKEN_BUDGET", "12000")
	t.Setenv("ADK_ENABLE_COMPACTION", "1")
	t.Setenv("ADK_ENABLE_CONTEXT_STRATEGIES", "true")
	t.Setenv("ADK_SESSION_TTL", "45m")
	t.Setenv("OPENAI_COMPATIBLE_MODEL", "llama3")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9100 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.RankTokenBudget != 12000 {
		t.Errorf("rank budget = %d", cfg.RankTokenBudget)
	}
	if !cfg.EnableCompaction || !cfg.EnableContextStrategies {
		t.Error("feature flags not applied")
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Errorf("ttl = %v", cfg.SessionTTL)
	}
	if cfg.LLM.Model != "llama3" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	t.Setenv("ADK_SESSION_TTL", "soon")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error for unparsable TTL")
	}
}

func TestFromEnvBadEstimator(t *testing.T) {
	t.Setenv("ADK_TOKEN_ESTIMATOR", "abacus")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error for unknown estimator")
	}
}

func TestFromEnvBadIntFallsBack(t *testing.T) {
	t.Setenv("ADK_PORT", "not-a-number")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 8000 {
		t.Errorf("port = %d, want fallback 8000", cfg.Port)
	}
}

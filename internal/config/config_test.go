package config

import (
	"context"
	"testing"
	"time"

	"github.com/gulalabs1-droid/textwingman/backend/internal/llm"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/strategy"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "AI_PROVIDER", "AI_TEMPERATURE", "AI_TOP_P", "AI_MAX_TOKENS",
		"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"STRATEGY_ENABLED", "STRATEGY_TIMEOUT", "STRATEGY_MAX_TOKENS", "STRATEGY_TEMPERATURE", "STRATEGY_MIN_MESSAGES",
		"NATS_URL", "NATS_TOKEN", "EVENTS_SUBJECT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderArk || cfg.AI.Enabled() {
		t.Fatalf("expected disabled ark provider by default, got %+v", cfg.AI)
	}
	if cfg.AI.OpenAIModel != llm.DefaultOpenAIModel {
		t.Fatalf("expected default openai model, got %s", cfg.AI.OpenAIModel)
	}
	s := cfg.Strategy
	if !s.Enabled || s.Timeout != strategy.DefaultTimeout || s.MaxTokens != strategy.DefaultMaxTokens || s.MinMessages != strategy.MinMessages {
		t.Fatalf("unexpected strategy defaults %+v", s)
	}
	if cfg.Events.NatsURL != "" || cfg.Events.Subject == "" {
		t.Fatalf("unexpected events config %+v", cfg.Events)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_MAX_TOKENS", "512")
	t.Setenv("STRATEGY_TIMEOUT", "3s")
	t.Setenv("STRATEGY_TEMPERATURE", "0.1")
	t.Setenv("STRATEGY_MIN_MESSAGES", "1")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %s", cfg.Server.Addr)
	}
	if cfg.AI.Provider != ProviderOpenAI || !cfg.AI.Enabled() {
		t.Fatalf("expected enabled openai provider, got %+v", cfg.AI)
	}
	if cfg.AI.MaxTokens == nil || *cfg.AI.MaxTokens != 512 {
		t.Fatalf("expected AI max tokens 512, got %v", cfg.AI.MaxTokens)
	}
	if cfg.Strategy.Timeout != 3*time.Second || cfg.Strategy.Temperature != 0.1 {
		t.Fatalf("unexpected strategy config %+v", cfg.Strategy)
	}
	if cfg.Strategy.MinMessages != strategy.MinMessages {
		t.Fatalf("min messages must not drop below %d, got %d", strategy.MinMessages, cfg.Strategy.MinMessages)
	}
	if cfg.Events.NatsURL != "nats://localhost:4222" {
		t.Fatalf("unexpected nats url %s", cfg.Events.NatsURL)
	}

	chatModel, err := cfg.AI.NewChatModel(context.Background())
	if err != nil {
		t.Fatalf("NewChatModel: %v", err)
	}
	if _, ok := chatModel.(*llm.OpenAIChatModel); !ok {
		t.Fatalf("expected openai chat model, got %T", chatModel)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                 "80 80",
		"AI_PROVIDER":          "bedrock",
		"AI_TEMPERATURE":       "warm",
		"STRATEGY_ENABLED":     "maybe",
		"STRATEGY_TIMEOUT":     "soon",
		"STRATEGY_TEMPERATURE": "-0.5",
	}
	for key, value := range cases {
		clearEnv(t)
		t.Setenv(key, value)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for %s=%q", key, value)
		}
	}
}

func TestStrategyZeroTemperatureReachesService(t *testing.T) {
	clearEnv(t)
	t.Setenv("STRATEGY_TEMPERATURE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", cfg.Strategy.Temperature)
	}
	svcCfg := cfg.Strategy.ServiceConfig()
	if svcCfg.Temperature == nil || *svcCfg.Temperature != 0 {
		t.Fatalf("expected explicit zero temperature in service config, got %v", svcCfg.Temperature)
	}
}

func TestStrategyFallsBackToAISettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_TEMPERATURE", "0.5")
	t.Setenv("AI_MAX_TOKENS", "300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy.Temperature != 0.5 || cfg.Strategy.MaxTokens != 300 {
		t.Fatalf("expected strategy to inherit AI settings, got %+v", cfg.Strategy)
	}

	t.Setenv("STRATEGY_TEMPERATURE", "0.05")
	t.Setenv("STRATEGY_MAX_TOKENS", "120")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy.Temperature != 0.05 || cfg.Strategy.MaxTokens != 120 {
		t.Fatalf("expected STRATEGY_* to win over AI_*, got %+v", cfg.Strategy)
	}
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	if _, err := (AIConfig{Provider: ProviderArk}).NewChatModel(context.Background()); err == nil {
		t.Fatalf("expected error without ark credentials")
	}
	if _, err := (AIConfig{Provider: ProviderOpenAI}).NewChatModel(context.Background()); err == nil {
		t.Fatalf("expected error without openai key")
	}
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/gulalabs1-droid/textwingman/backend/internal/events"
	"github.com/gulalabs1-droid/textwingman/backend/internal/llm"
	strategymodel "github.com/gulalabs1-droid/textwingman/backend/internal/model/strategy"
	"github.com/gulalabs1-droid/textwingman/backend/internal/service/strategy"
)

const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// Config groups every setting of the service.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Strategy StrategyConfig
	Events   EventsConfig
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	strategyCfg, err := loadStrategyConfig(ai)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Strategy: strategyCfg, Events: loadEventsConfig()}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig selects and configures the chat model provider.
type AIConfig struct {
	Provider      string
	APIKey        string
	AccessKey     string
	SecretKey     string
	Model         string
	BaseURL       string
	Region        string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Temperature   *float64
	TopP          *float64
	MaxTokens     *int
}

// Enabled reports whether the selected provider has the credentials it needs.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

// NewChatModel builds the configured provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		if c.Provider == ProviderOpenAI {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for provider %q", c.Provider)
		}
		return nil, fmt.Errorf("missing Ark credentials: provide ARK_MODEL with ARK_API_KEY or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	if c.Provider == ProviderOpenAI {
		chatModel, err := llm.NewOpenAIChatModel(llm.OpenAIConfig{
			APIKey:      c.OpenAIAPIKey,
			BaseURL:     c.OpenAIBaseURL,
			Model:       c.OpenAIModel,
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
			SchemaName:  strategymodel.SchemaName,
			Schema:      strategymodel.StrictResponseSchema(),
		})
		if err != nil {
			return nil, err
		}
		return chatModel, nil
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderOpenAI {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want %s or %s", provider, ProviderArk, ProviderOpenAI)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:      provider,
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:         strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", llm.DefaultOpenAIModel),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
	}, nil
}

// StrategyConfig controls the strategy inference call. Temperature and
// MaxTokens fall back to AI_TEMPERATURE and AI_MAX_TOKENS when the STRATEGY_*
// variables are unset.
type StrategyConfig struct {
	Enabled     bool
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
	MinMessages int
}

// ServiceConfig converts to the strategy service's own config type.
func (c StrategyConfig) ServiceConfig() strategy.Config {
	temperature := c.Temperature
	return strategy.Config{
		Enabled:     c.Enabled,
		Timeout:     c.Timeout,
		MaxTokens:   c.MaxTokens,
		Temperature: &temperature,
		MinMessages: c.MinMessages,
	}
}

func loadStrategyConfig(ai AIConfig) (StrategyConfig, error) {
	enabled, err := parseBoolEnv("STRATEGY_ENABLED", true)
	if err != nil {
		return StrategyConfig{}, err
	}

	timeout := strategy.DefaultTimeout
	if override, err := parseOptionalDurationEnv("STRATEGY_TIMEOUT"); err != nil {
		return StrategyConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return StrategyConfig{}, fmt.Errorf("invalid STRATEGY_TIMEOUT value %q: must be positive", override.String())
		}
		timeout = *override
	}

	maxTokens := strategy.DefaultMaxTokens
	if ai.MaxTokens != nil && *ai.MaxTokens > 0 {
		maxTokens = *ai.MaxTokens
	}
	if override, err := parseOptionalIntEnv("STRATEGY_MAX_TOKENS"); err != nil {
		return StrategyConfig{}, err
	} else if override != nil && *override > 0 {
		maxTokens = *override
	}

	temperature := strategy.DefaultTemperature
	if ai.Temperature != nil {
		temperature = float32(*ai.Temperature)
	}
	if override, err := parseOptionalFloat32Env("STRATEGY_TEMPERATURE"); err != nil {
		return StrategyConfig{}, err
	} else if override != nil {
		temperature = *override
	}
	if temperature < 0 {
		return StrategyConfig{}, fmt.Errorf("invalid strategy temperature %v: must not be negative", temperature)
	}

	minMessages := strategy.MinMessages
	if override, err := parseOptionalIntEnv("STRATEGY_MIN_MESSAGES"); err != nil {
		return StrategyConfig{}, err
	} else if override != nil && *override > minMessages {
		minMessages = *override
	}

	return StrategyConfig{
		Enabled:     enabled,
		Timeout:     timeout,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		MinMessages: minMessages,
	}, nil
}

// EventsConfig points at an optional NATS server. An empty NatsURL disables events.
type EventsConfig struct {
	NatsURL   string
	NatsToken string
	Subject   string
}

func loadEventsConfig() EventsConfig {
	return EventsConfig{
		NatsURL:   strings.TrimSpace(os.Getenv("NATS_URL")),
		NatsToken: strings.TrimSpace(os.Getenv("NATS_TOKEN")),
		Subject:   getEnvOrDefault("EVENTS_SUBJECT", events.SubjectAnalysisCompleted),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}

func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

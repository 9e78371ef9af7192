// Package strategy asks a chat model for a strategic read of a thread and
// guarantees a schema-valid answer, falling back to a fixed safe strategy.
package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/gulalabs1-droid/textwingman/backend/internal/analysis/metrics"
	"github.com/gulalabs1-droid/textwingman/backend/internal/model/conversation"
	strategymodel "github.com/gulalabs1-droid/textwingman/backend/internal/model/strategy"
)

const (
	DefaultTimeout     = 12 * time.Second
	DefaultMaxTokens   = 400
	DefaultTemperature = float32(0.2)
	// MinMessages is the smallest thread worth a model call.
	MinMessages = 3
	// UnknownContext is sent when the caller gives no relationship context.
	UnknownContext = "unknown"
)

var (
	ErrInsufficientSignal = errors.New("not enough messages to infer a strategy")
	ErrModelDisabled      = errors.New("strategy model disabled")
	ErrMalformedOutput    = errors.New("malformed strategy output")
)

// Config controls the inference call.
type Config struct {
	Enabled     bool
	Timeout     time.Duration
	MaxTokens   int
	// Temperature nil means DefaultTemperature. Zero is a valid setting.
	Temperature *float32
	// MinMessages below the package minimum is raised to it.
	MinMessages int
}

// Service runs the prompt → model chain. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	enabled     bool
	chain       compose.Runnable[map[string]any, *schema.Message]
	timeout     time.Duration
	maxTokens   int
	temperature float32
	minMessages int
}

// NewService compiles the inference chain. A nil chatModel yields a disabled
// service whose Infer always returns the safe default.
func NewService(ctx context.Context, chatModel model.BaseChatModel, cfg Config) (*Service, error) {
	svc := &Service{
		enabled:     cfg.Enabled && chatModel != nil,
		timeout:     cfg.Timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: DefaultTemperature,
		minMessages: max(cfg.MinMessages, MinMessages),
	}
	if svc.timeout <= 0 {
		svc.timeout = DefaultTimeout
	}
	if svc.maxTokens <= 0 {
		svc.maxTokens = DefaultMaxTokens
	}
	if cfg.Temperature != nil && *cfg.Temperature >= 0 {
		svc.temperature = *cfg.Temperature
	}

	if !svc.enabled {
		return svc, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(strategySystemPrompt),
		schema.UserMessage(strategyUserPrompt),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile strategy chain: %w", err)
	}

	svc.chain = runnable
	return svc, nil
}

// Enabled reports whether Infer will reach the model.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled && s.chain != nil
}

// Infer returns a validated strategy for the transcript and how long it took.
// It never fails: every problem is logged and answered with SafeDefault.
func (s *Service) Infer(ctx context.Context, t conversation.Transcript, contextTag string) (strategymodel.Result, time.Duration) {
	start := time.Now()
	result, err := s.infer(ctx, t, contextTag)
	elapsed := time.Since(start)

	if err != nil {
		if !errors.Is(err, ErrInsufficientSignal) {
			log.Printf("[strategy] use safe default after %s: %v", elapsed.Round(time.Millisecond), err)
		}
		return strategymodel.SafeDefault(), elapsed
	}
	return result, elapsed
}

type chainOutcome struct {
	msg *schema.Message
	err error
}

func (s *Service) infer(ctx context.Context, t conversation.Transcript, contextTag string) (strategymodel.Result, error) {
	minMessages := MinMessages
	if s != nil {
		minMessages = s.minMessages
	}
	if len(t) < minMessages {
		return strategymodel.Result{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSignal, len(t), minMessages)
	}
	if !s.Enabled() {
		return strategymodel.Result{}, ErrModelDisabled
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Infer returns at the deadline even if the model ignores callCtx.
	done := make(chan chainOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- chainOutcome{err: fmt.Errorf("strategy chain panicked: %v", r)}
			}
		}()
		msg, err := s.chain.Invoke(callCtx, buildInput(t, contextTag),
			compose.WithChatModelOption(
				model.WithTemperature(s.temperature),
				model.WithMaxTokens(s.maxTokens),
			),
		)
		done <- chainOutcome{msg: msg, err: err}
	}()

	var out chainOutcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		return strategymodel.Result{}, fmt.Errorf("invoke strategy chain: %w", callCtx.Err())
	}

	if out.err != nil {
		return strategymodel.Result{}, fmt.Errorf("invoke strategy chain: %w", out.err)
	}
	if out.msg == nil {
		return strategymodel.Result{}, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}
	return ParseOutput(out.msg.Content)
}

func buildInput(t conversation.Transcript, contextTag string) map[string]any {
	tag := strings.TrimSpace(contextTag)
	if tag == "" {
		tag = UnknownContext
	}
	return map[string]any{
		"context":    tag,
		"metrics":    describeMetrics(metrics.Extract(t)),
		"transcript": t.Render(),
		"schema":     strategymodel.ResponseSchemaJSON(),
	}
}

// ParseOutput decodes the first JSON object in content and validates it.
// Prose or code fences around the object are ignored.
func ParseOutput(content string) (strategymodel.Result, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return strategymodel.Result{}, fmt.Errorf("%w: missing json object", ErrMalformedOutput)
	}

	var payload strategymodel.Payload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return strategymodel.Result{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return strategymodel.Validate(payload)
}

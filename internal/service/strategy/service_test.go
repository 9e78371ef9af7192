package strategy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/gulalabs1-droid/textwingman/backend/internal/model/conversation"
	strategymodel "github.com/gulalabs1-droid/textwingman/backend/internal/model/strategy"
)

const validReply = `Here you go:
{"momentum":"rising","balance":"OtherLeading","energyLevel":"high","sarcasmDetected":true,"isKidding":true,
 "riskFlags":["teasing"],"move":{"energy":"escalate","oneLiner":"tease back, then suggest drinks",
 "constraints":{"noQuestions":false,"keepShort":true,"addTease":true,"pushMeetup":true},"risk":"low"}}`

type fakeChatModel struct {
	mu        sync.Mutex
	reply     string
	err       error
	block     bool
	sleep     time.Duration
	panicWith string
	calls     int
	input     []*schema.Message
	options   *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.calls++
	f.input = input
	f.options = model.GetCommonOptions(nil, opts...)
	f.mu.Unlock()

	if f.panicWith != "" {
		panic(f.panicWith)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.sleep > 0 {
		time.Sleep(f.sleep)
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(t *testing.T, fake *fakeChatModel, cfg Config) *Service {
	t.Helper()
	cfg.Enabled = true
	svc, err := NewService(context.Background(), fake, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func float32Ptr(v float32) *float32 {
	return &v
}

func banterThread() conversation.Transcript {
	return conversation.ParseTranscript("You: you're trouble\nThem: lol stoppp\nYou: make me\nThem: haha maybe I will, what are you doing friday?")
}

func TestInferReturnsValidatedStrategy(t *testing.T) {
	fake := &fakeChatModel{reply: validReply}
	svc := newTestService(t, fake, Config{})

	result, latency := svc.Infer(context.Background(), banterThread(), "")

	if strategymodel.IsSafeDefault(result) {
		t.Fatalf("expected model strategy, got safe default")
	}
	if result.Momentum != strategymodel.MomentumRising {
		t.Fatalf("expected canonical Rising momentum, got %s", result.Momentum)
	}
	if result.Move.Energy != strategymodel.EnergyEscalate || !result.Move.Constraints.PushMeetup {
		t.Fatalf("unexpected move: %+v", result.Move)
	}
	if latency < 0 {
		t.Fatalf("expected non-negative latency, got %s", latency)
	}
	if fake.callCount() != 1 {
		t.Fatalf("expected exactly one model call, got %d", fake.callCount())
	}
}

func TestInferPromptCarriesContextMetricsAndSchema(t *testing.T) {
	fake := &fakeChatModel{reply: validReply}
	svc := newTestService(t, fake, Config{MaxTokens: 256, Temperature: float32Ptr(0.1)})

	svc.Infer(context.Background(), banterThread(), "  ")

	if len(fake.input) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(fake.input))
	}
	user := fake.input[1].Content
	for _, want := range []string{
		"Context: unknown",
		"Them: lol stoppp",
		"- they re-initiated: true",
		"- their recent questions: 1",
		`"oneLiner"`,
	} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}

	if fake.options == nil || fake.options.MaxTokens == nil || *fake.options.MaxTokens != 256 {
		t.Fatalf("expected max tokens option 256, got %+v", fake.options)
	}
	if fake.options.Temperature == nil || *fake.options.Temperature != 0.1 {
		t.Fatalf("expected temperature option 0.1, got %+v", fake.options.Temperature)
	}
}

func TestInferShortThreadSkipsModel(t *testing.T) {
	fake := &fakeChatModel{reply: validReply}
	svc := newTestService(t, fake, Config{MinMessages: 1})

	for _, raw := range []string{"", "Them: hey", "Them: hey\nYou: hi"} {
		result, _ := svc.Infer(context.Background(), conversation.ParseTranscript(raw), "dating")
		if !strategymodel.IsSafeDefault(result) {
			t.Fatalf("expected safe default for %q, got %+v", raw, result)
		}
	}
	if fake.callCount() != 0 {
		t.Fatalf("expected no model calls for short threads, got %d", fake.callCount())
	}
}

func TestInferFallsBackOnBadOutput(t *testing.T) {
	cases := map[string]string{
		"prose":         "I think they like you.",
		"broken json":   `{"momentum": "Rising",`,
		"bad enum":      strings.Replace(validReply, `"rising"`, `"Skyrocketing"`, 1),
		"long oneLiner": strings.Replace(validReply, "tease back, then suggest drinks", strings.Repeat("x", 101), 1),
		"missing move":  `{"momentum":"Flat","balance":"Balanced"}`,
	}
	for name, reply := range cases {
		svc := newTestService(t, &fakeChatModel{reply: reply}, Config{})
		result, _ := svc.Infer(context.Background(), banterThread(), "friends")
		if !strategymodel.IsSafeDefault(result) {
			t.Fatalf("%s: expected safe default, got %+v", name, result)
		}
	}
}

func TestInferFallsBackOnModelError(t *testing.T) {
	svc := newTestService(t, &fakeChatModel{err: errors.New("upstream 500")}, Config{})
	result, _ := svc.Infer(context.Background(), banterThread(), "")
	if !strategymodel.IsSafeDefault(result) {
		t.Fatalf("expected safe default on model error, got %+v", result)
	}
}

func TestInferFallsBackOnPanic(t *testing.T) {
	svc := newTestService(t, &fakeChatModel{panicWith: "boom"}, Config{})
	result, _ := svc.Infer(context.Background(), banterThread(), "")
	if !strategymodel.IsSafeDefault(result) {
		t.Fatalf("expected safe default on panic, got %+v", result)
	}
}

func TestInferHonoursTimeout(t *testing.T) {
	svc := newTestService(t, &fakeChatModel{block: true}, Config{Timeout: 20 * time.Millisecond})

	result, latency := svc.Infer(context.Background(), banterThread(), "")
	if !strategymodel.IsSafeDefault(result) {
		t.Fatalf("expected safe default on timeout, got %+v", result)
	}
	if latency > 2*time.Second {
		t.Fatalf("expected timeout to bound latency, took %s", latency)
	}
}

func TestInferTimeoutBoundsModelIgnoringContext(t *testing.T) {
	fake := &fakeChatModel{reply: validReply, sleep: 2 * time.Second}
	svc := newTestService(t, fake, Config{Timeout: 50 * time.Millisecond})

	result, latency := svc.Infer(context.Background(), banterThread(), "")
	if !strategymodel.IsSafeDefault(result) {
		t.Fatalf("expected safe default when the model outlives the timeout, got %+v", result)
	}
	if latency > time.Second {
		t.Fatalf("expected Infer to return near the 50ms timeout, took %s", latency)
	}
}

func TestInferSendsZeroTemperature(t *testing.T) {
	fake := &fakeChatModel{reply: validReply}
	svc := newTestService(t, fake, Config{Temperature: float32Ptr(0)})

	svc.Infer(context.Background(), banterThread(), "")

	if fake.options == nil || fake.options.Temperature == nil || *fake.options.Temperature != 0 {
		t.Fatalf("expected temperature option 0, got %+v", fake.options)
	}
}

func TestInferDefaultsTemperatureWhenUnset(t *testing.T) {
	fake := &fakeChatModel{reply: validReply}
	svc := newTestService(t, fake, Config{})

	svc.Infer(context.Background(), banterThread(), "")

	if fake.options == nil || fake.options.Temperature == nil || *fake.options.Temperature != DefaultTemperature {
		t.Fatalf("expected default temperature %v, got %+v", DefaultTemperature, fake.options)
	}
}

func TestDisabledServiceReturnsSafeDefault(t *testing.T) {
	svc, err := NewService(context.Background(), nil, Config{Enabled: true})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if svc.Enabled() {
		t.Fatalf("expected service without model to be disabled")
	}

	if _, err := svc.infer(context.Background(), banterThread(), ""); !errors.Is(err, ErrModelDisabled) {
		t.Fatalf("expected ErrModelDisabled, got %v", err)
	}
	result, _ := svc.Infer(context.Background(), banterThread(), "")
	if !strategymodel.IsSafeDefault(result) {
		t.Fatalf("expected safe default, got %+v", result)
	}
}

func TestParseOutputErrors(t *testing.T) {
	if _, err := ParseOutput("no json here"); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	if _, err := ParseOutput(`{"momentum":"Flat"}`); !errors.Is(err, strategymodel.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
	result, err := ParseOutput("```json\n" + validReply[strings.Index(validReply, "{"):] + "\n```")
	if err != nil {
		t.Fatalf("expected fenced json to parse, got %v", err)
	}
	if result.Move.OneLiner != "tease back, then suggest drinks" {
		t.Fatalf("unexpected oneLiner %q", result.Move.OneLiner)
	}
}

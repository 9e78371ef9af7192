// Package llm adapts chat providers that eino-ext does not cover to the eino
// model.ChatModel interface.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when OpenAIConfig.Model is empty.
const DefaultOpenAIModel = "gpt-4o-mini"

var ErrToolsUnsupported = errors.New("openai chat model: tool binding is not supported")

// OpenAIConfig configures OpenAIChatModel. Schema, when set, is sent as a
// strict JSON-schema response format on every call.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
	SchemaName  string
	Schema      map[string]any
}

type completionsAPI interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIChatModel calls the Chat Completions API.
type OpenAIChatModel struct {
	completions completionsAPI
	cfg         OpenAIConfig
}

var _ model.ChatModel = (*OpenAIChatModel)(nil)

// NewOpenAIChatModel builds a client with SDK retries disabled; callers own
// the retry policy.
func NewOpenAIChatModel(cfg OpenAIConfig) (*OpenAIChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai chat model: api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return newOpenAIChatModel(&client.Chat.Completions, cfg), nil
}

func newOpenAIChatModel(completions completionsAPI, cfg OpenAIConfig) *OpenAIChatModel {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	return &OpenAIChatModel{completions: completions, cfg: cfg}
}

// Generate sends input as one chat completion request.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	modelName := m.cfg.Model
	options := model.GetCommonOptions(&model.Options{
		Model:       &modelName,
		Temperature: m.cfg.Temperature,
		TopP:        m.cfg.TopP,
		MaxTokens:   m.cfg.MaxTokens,
	}, opts...)

	params, err := m.buildParams(input, options)
	if err != nil {
		return nil, err
	}

	resp, err := m.completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: no choices returned")
	}

	choice := resp.Choices[0]
	out := schema.AssistantMessage(choice.Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(choice.FinishReason),
		Usage: &schema.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	return out, nil
}

// Stream emits the Generate result as a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools always fails.
func (m *OpenAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) == 0 {
		return nil
	}
	return ErrToolsUnsupported
}

func (m *OpenAIChatModel) buildParams(input []*schema.Message, options *model.Options) (openai.ChatCompletionNewParams, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case schema.User:
			messages = append(messages, openai.UserMessage(msg.Content))
		case schema.Assistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("openai chat model: unsupported role %q", msg.Role)
		}
	}
	if len(messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("openai chat model: no messages")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(*options.Model),
		Messages: messages,
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(*options.Temperature))
	}
	if options.TopP != nil {
		params.TopP = openai.Float(float64(*options.TopP))
	}
	if options.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*options.MaxTokens))
	}
	if len(m.cfg.Schema) > 0 {
		name := m.cfg.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: m.cfg.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}
	return params, nil
}

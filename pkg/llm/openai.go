package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/quantchat/quantchat/pkg/chat"
	"github.com/quantchat/quantchat/pkg/config"
	"github.com/quantchat/quantchat/pkg/logging"
)

var _ Gen = (*OpenAIClient)(nil)

type chatCompletionClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Option configures the OpenAI client.
type Option func(*OpenAIClient)

// WithLogger injects a custom logger implementation.
func WithLogger(logger logging.Logger) Option {
	return func(c *OpenAIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithChatClient injects a custom Chat Completions client (primarily for tests).
func WithChatClient(completions chatCompletionClient) Option {
	return func(c *OpenAIClient) {
		if completions != nil {
			c.chatCompletions = completions
		}
	}
}

// OpenAIClient is a Gen implementation backed by OpenAI-compatible Chat
// Completions. The base URL typically points at a gateway, not api.openai.com.
type OpenAIClient struct {
	model  config.Model
	logger logging.Logger

	chatCompletions chatCompletionClient
}

// NewOpenAIClient builds a Gen for the given model configuration.
func NewOpenAIClient(model config.Model, opts ...Option) (*OpenAIClient, error) {
	if strings.TrimSpace(model.APIKey) == "" {
		return nil, errors.New("openai backend not configured: missing api_key")
	}

	client := &OpenAIClient{
		model:  model,
		logger: logging.NewComponentLogger("llm"),
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.chatCompletions == nil {
		requestOpts := []option.RequestOption{
			option.WithAPIKey(model.APIKey),
		}
		if baseURL := strings.TrimSpace(model.BaseURL); baseURL != "" {
			requestOpts = append(requestOpts, option.WithBaseURL(baseURL))
		}
		api := openai.NewClient(requestOpts...)
		service := api.Chat.Completions
		client.chatCompletions = &service
	}

	return client, nil
}

// GenerateContent sends the window to the model and returns its reply.
func (c *OpenAIClient) GenerateContent(ctx context.Context, window []chat.Message) (string, error) {
	if len(window) == 0 {
		return "", errors.New("empty context window")
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model.ModelName),
		Messages: buildMessages(window),
	}
	if c.model.Temperature > 0 {
		params.Temperature = openai.Float(c.model.Temperature)
	}
	if c.model.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.model.MaxTokens))
	}

	resp, err := c.chatCompletions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai returned an empty response")
	}

	c.logger.Debug("chat completion",
		"model", c.model.ModelName,
		"window", len(window),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return content, nil
}

func buildMessages(window []chat.Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(window))
	for _, m := range window {
		switch m.Role {
		case chat.RoleDirective:
			messages = append(messages, openai.SystemMessage(m.Content))
		case chat.RoleAgent:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}

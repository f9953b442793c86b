package openai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultModel          = "gpt-4o"
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DeepSeekBaseURL and DeepSeekModel target the OpenAI compatible DeepSeek endpoint.
	DeepSeekBaseURL = "https://api.deepseek.com"
	DeepSeekModel   = "deepseek-chat"
)

// Client is a reasoning engine adapter for the OpenAI chat completion API and any endpoint
// compatible with it.
type Client struct {
	api apiClient

	// model is the model to use for chat completions.
	model string

	// embeddingModel is the model used by Embed.
	embeddingModel string

	// baseURL overrides the default OpenAI endpoint when not empty.
	baseURL string

	temperature float32
	maxTokens   int
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the chat completion model. See [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithEmbeddingModel sets the embedding model. See [DefaultEmbeddingModel].
func WithEmbeddingModel(modelName string) Option {
	return func(c *Client) {
		c.embeddingModel = modelName
	}
}

// WithBaseURL sets a custom endpoint, e.g. a proxy or a compatible provider.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens limits the number of generated tokens.
func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// New creates a client for the OpenAI API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(pandora.ErrInvalidParameter, "API key is required")
	}

	client := newClient(options...)

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	client.api = openai.NewClientWithConfig(config)

	return client, nil
}

// NewDeepSeek creates a client for DeepSeek. Options given here override the DeepSeek defaults.
func NewDeepSeek(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	defaults := []Option{WithBaseURL(DeepSeekBaseURL), WithModel(DeepSeekModel)}
	return New(ctx, apiKey, append(defaults, options...)...)
}

func newClient(options ...Option) *Client {
	client := &Client{
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Model returns the chat completion model name.
func (c *Client) Model() string { return c.model }

// Generate implements pandora.LLMClient.
func (c *Client) Generate(ctx context.Context, messages []pandora.Message, tools []pandora.ToolSpec) (pandora.Reply, error) {
	logger := pandora.LoggerFromContext(ctx).With("llm", "openai", "model", c.model)

	msgs, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Tools:       convertTools(tools),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	logger.Debug("sending chat completion", "messages", len(msgs), "tools", len(req.Tools))

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", c.model))
	}

	if len(resp.Choices) == 0 {
		return nil, goerr.New("no choices in chat completion response", goerr.V("model", c.model))
	}

	reply, err := convertResponse(resp)
	if err != nil {
		return nil, err
	}

	logger.Debug("received chat completion",
		"finish_reason", resp.Choices[0].FinishReason,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
	)
	return reply, nil
}

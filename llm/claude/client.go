package claude

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

// Client is a reasoning engine adapter for Anthropic's Claude models.
type Client struct {
	api apiClient

	// model is the model to use for message generation.
	model string

	// maxTokens is required by the Messages API.
	maxTokens int64

	// temperature is sent only when set to zero or more.
	temperature float64
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model. Default: [DefaultModel]
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: [DefaultMaxTokens]
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// WithTemperature sets the sampling temperature. Range: 0.0 to 1.0
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// New creates a new client for the Claude API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(pandora.ErrInvalidParameter, "API key is required")
	}

	client := newClient(options...)
	newClient := anthropic.NewClient(option.WithAPIKey(apiKey))
	client.api = &realAPIClient{client: &newClient}

	return client, nil
}

func newClient(options ...Option) *Client {
	client := &Client{
		model:       DefaultModel,
		maxTokens:   DefaultMaxTokens,
		temperature: -1,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Model returns the model name.
func (c *Client) Model() string { return c.model }

// Generate implements pandora.LLMClient.
func (c *Client) Generate(ctx context.Context, messages []pandora.Message, tools []pandora.ToolSpec) (pandora.Reply, error) {
	logger := pandora.LoggerFromContext(ctx).With("llm", "claude", "model", c.model)

	if len(tools) == 0 {
		// Tool blocks are only accepted together with tool definitions.
		messages = pandora.FlattenToolTurns(messages)
	}

	system, msgs, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  msgs,
		Tools:     convertTools(tools),
	}
	if c.temperature >= 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}

	logger.Debug("sending message", "messages", len(msgs), "tools", len(params.Tools))

	resp, err := c.api.MessagesNew(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V("model", c.model))
	}

	reply, err := convertResponse(resp)
	if err != nil {
		return nil, err
	}

	logger.Debug("received message",
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return reply, nil
}

package gemini

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"google.golang.org/api/option"
)

const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultEmbeddingModel = "text-embedding-004"
)

// Client is a reasoning engine adapter for Google's Gemini API.
type Client struct {
	api apiClient

	// model is the model to use for content generation.
	model string

	embeddingModel string

	temperature *float32

	// newCallID assigns IDs to function calls; Gemini does not return any.
	newCallID func() string
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model. Default: [DefaultModel]
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.model = modelName
	}
}

// WithEmbeddingModel sets the model used by Embed. Default: [DefaultEmbeddingModel]
func WithEmbeddingModel(modelName string) Option {
	return func(c *Client) {
		c.embeddingModel = modelName
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// New creates a client for the Gemini API authenticated by API key.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(pandora.ErrInvalidParameter, "API key is required")
	}

	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	client := newClient(options...)
	client.api = &realAPIClient{client: gc}
	return client, nil
}

func newClient(options ...Option) *Client {
	client := &Client{
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		newCallID:      newCallID,
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
	logger := pandora.LoggerFromContext(ctx).With("llm", "gemini", "model", c.model)

	if len(tools) == 0 {
		// Tool blocks are only accepted together with tool definitions.
		messages = pandora.FlattenToolTurns(messages)
	}

	system, contents, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 || contents[len(contents)-1].Role != roleUser {
		return nil, goerr.Wrap(pandora.ErrInvalidMessage, "conversation must end with a user turn")
	}

	last := contents[len(contents)-1]
	req := &request{
		Model:       c.model,
		System:      system,
		Tools:       convertTools(tools),
		History:     contents[:len(contents)-1],
		Parts:       last.Parts,
		Temperature: c.temperature,
	}

	logger.Debug("sending content", "history", len(req.History), "tools", len(tools))

	resp, err := c.api.GenerateContent(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", c.model))
	}

	reply, err := convertResponse(resp, c.newCallID)
	if err != nil {
		return nil, err
	}

	usage := reply.TokenUsage()
	logger.Debug("received content", "input_tokens", usage.InputTokens, "output_tokens", usage.OutputTokens)
	return reply, nil
}

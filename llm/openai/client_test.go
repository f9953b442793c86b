package openai_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/llm/openai"
	openaiapi "github.com/sashabaranov/go-openai"
)

type fakeAPI struct {
	requests []openaiapi.ChatCompletionRequest
	resp     openaiapi.ChatCompletionResponse
	err      error

	embedResp openaiapi.EmbeddingResponse
}

func (x *fakeAPI) CreateChatCompletion(ctx context.Context, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
	x.requests = append(x.requests, req)
	return x.resp, x.err
}

func (x *fakeAPI) CreateEmbeddings(ctx context.Context, conv openaiapi.EmbeddingRequestConverter) (openaiapi.EmbeddingResponse, error) {
	return x.embedResp, x.err
}

var _ openai.APIClient = &fakeAPI{}

var marketTool = pandora.ToolSpec{
	Name:        "get_market_data",
	Description: "Get the latest quote",
	Parameters: map[string]*pandora.Parameter{
		"ticker": {Type: pandora.TypeString, Description: "Stock ticker", Required: true},
	},
}

func TestGenerateToolCalls(t *testing.T) {
	api := &fakeAPI{
		resp: openaiapi.ChatCompletionResponse{
			Choices: []openaiapi.ChatCompletionChoice{
				{
					Message: openaiapi.ChatCompletionMessage{
						Role: openaiapi.ChatMessageRoleAssistant,
						ToolCalls: []openaiapi.ToolCall{
							{ID: "call_1", Type: openaiapi.ToolTypeFunction, Function: openaiapi.FunctionCall{Name: "get_market_data", Arguments: `{"ticker":"AAPL"}`}},
							{ID: "call_2", Type: openaiapi.ToolTypeFunction, Function: openaiapi.FunctionCall{Name: "list_available_companies", Arguments: ""}},
						},
					},
					FinishReason: openaiapi.FinishReasonToolCalls,
				},
			},
			Usage: openaiapi.Usage{PromptTokens: 120, CompletionTokens: 30},
		},
	}
	client := openai.NewWithAPIClient(api, openai.WithModel("gpt-test"))

	messages := []pandora.Message{
		pandora.SystemMessage{Text: "system"},
		pandora.UserMessage{Text: "What is the price of Apple?"},
	}
	reply, err := client.Generate(context.Background(), messages, []pandora.ToolSpec{marketTool})
	gt.NoError(t, err)

	calls, ok := reply.(*pandora.ToolCallReply)
	gt.True(t, ok)
	gt.A(t, calls.Calls).Length(2)
	gt.Equal(t, calls.Calls[0].ID, "call_1")
	gt.Equal(t, calls.Calls[0].Arguments, map[string]any{"ticker": "AAPL"})
	gt.Equal(t, calls.Calls[1].Arguments, map[string]any{})
	gt.Equal(t, reply.TokenUsage(), pandora.Usage{InputTokens: 120, OutputTokens: 30})

	gt.A(t, api.requests).Length(1)
	req := api.requests[0]
	gt.Equal(t, req.Model, "gpt-test")
	gt.A(t, req.Messages).Length(2)
	gt.A(t, req.Tools).Length(1)
	gt.Equal(t, req.Tools[0].Function.Name, "get_market_data")
}

func TestGenerateText(t *testing.T) {
	api := &fakeAPI{
		resp: openaiapi.ChatCompletionResponse{
			Choices: []openaiapi.ChatCompletionChoice{
				{Message: openaiapi.ChatCompletionMessage{Role: openaiapi.ChatMessageRoleAssistant, Content: "Apple trades at 190 USD."}},
			},
		},
	}
	client := openai.NewWithAPIClient(api)

	reply, err := client.Generate(context.Background(), []pandora.Message{pandora.UserMessage{Text: "q"}}, nil)
	gt.NoError(t, err)
	text, ok := reply.(*pandora.TextReply)
	gt.True(t, ok)
	gt.Equal(t, text.Text, "Apple trades at 190 USD.")

	// no tools declared when none are given
	gt.Nil(t, api.requests[0].Tools)
	gt.Equal(t, api.requests[0].Model, openai.DefaultModel)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		client := openai.NewWithAPIClient(&fakeAPI{err: errors.New("rate limited")})
		_, err := client.Generate(context.Background(), []pandora.Message{pandora.UserMessage{Text: "q"}}, nil)
		gt.Error(t, err)
	})

	t.Run("no choices", func(t *testing.T) {
		client := openai.NewWithAPIClient(&fakeAPI{})
		_, err := client.Generate(context.Background(), []pandora.Message{pandora.UserMessage{Text: "q"}}, nil)
		gt.Error(t, err)
	})

	t.Run("broken arguments", func(t *testing.T) {
		client := openai.NewWithAPIClient(&fakeAPI{
			resp: openaiapi.ChatCompletionResponse{
				Choices: []openaiapi.ChatCompletionChoice{
					{Message: openaiapi.ChatCompletionMessage{ToolCalls: []openaiapi.ToolCall{
						{ID: "c", Function: openaiapi.FunctionCall{Name: "x", Arguments: "{broken"}},
					}}},
				},
			},
		})
		_, err := client.Generate(context.Background(), []pandora.Message{pandora.UserMessage{Text: "q"}}, nil)
		gt.Error(t, err)
	})
}

func TestEmbed(t *testing.T) {
	api := &fakeAPI{
		embedResp: openaiapi.EmbeddingResponse{
			Data: []openaiapi.Embedding{
				{Index: 1, Embedding: []float32{0, 1}},
				{Index: 0, Embedding: []float32{1, 0}},
			},
		},
	}
	client := openai.NewWithAPIClient(api)

	vectors, err := client.Embed(context.Background(), []string{"revenue", "risk"})
	gt.NoError(t, err)
	gt.Equal(t, vectors, [][]float64{{1, 0}, {0, 1}})

	empty, err := client.Embed(context.Background(), nil)
	gt.NoError(t, err)
	gt.Nil(t, empty)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := openai.New(context.Background(), "")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, pandora.ErrInvalidParameter))

	client, err := openai.NewDeepSeek(context.Background(), "dummy")
	gt.NoError(t, err)
	gt.Equal(t, client.Model(), openai.DeepSeekModel)
}

func TestOpenAIGenerateLive(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_OPENAI_API_KEY")
	if !ok {
		t.Skip("TEST_OPENAI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := openai.New(ctx, apiKey, openai.WithModel("gpt-4o-mini"))
	gt.NoError(t, err)

	messages := []pandora.Message{
		pandora.SystemMessage{Text: "Use tools to look up stock prices."},
		pandora.UserMessage{Text: "What is the latest price of AAPL?"},
	}
	reply, err := client.Generate(ctx, messages, []pandora.ToolSpec{marketTool})
	gt.NoError(t, err)

	calls, ok := reply.(*pandora.ToolCallReply)
	gt.True(t, ok)
	gt.Equal(t, calls.Calls[0].Name, "get_market_data")
}

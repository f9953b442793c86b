package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/llm/claude"
)

type fakeAPI struct {
	params []anthropic.MessageNewParams
	resp   string
	err    error
}

func (x *fakeAPI) MessagesNew(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	x.params = append(x.params, params)
	if x.err != nil {
		return nil, x.err
	}
	var msg anthropic.Message
	if err := json.Unmarshal([]byte(x.resp), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

var _ claude.APIClient = &fakeAPI{}

var marketTool = pandora.ToolSpec{
	Name:        "get_market_data",
	Description: "Get the latest quote",
	Parameters: map[string]*pandora.Parameter{
		"ticker": {Type: pandora.TypeString, Description: "Stock ticker", Required: true},
	},
}

const toolUseResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "content": [
    {"type": "text", "text": "Let me check the quote."},
    {"type": "tool_use", "id": "toolu_01", "name": "get_market_data", "input": {"ticker": "AAPL"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 200, "output_tokens": 40}
}`

const textResponse = `{
  "id": "msg_02",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "content": [{"type": "text", "text": "Apple trades at 190 USD."}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 300, "output_tokens": 12}
}`

func TestGenerateToolUse(t *testing.T) {
	api := &fakeAPI{resp: toolUseResponse}
	client := claude.NewWithAPIClient(api)

	messages := []pandora.Message{
		pandora.SystemMessage{Text: "You are an analyst."},
		pandora.UserMessage{Text: "Price of Apple?"},
	}
	reply, err := client.Generate(context.Background(), messages, []pandora.ToolSpec{marketTool})
	gt.NoError(t, err)

	calls, ok := reply.(*pandora.ToolCallReply)
	gt.True(t, ok)
	gt.Equal(t, calls.Text, "Let me check the quote.")
	gt.A(t, calls.Calls).Length(1)
	gt.Equal(t, calls.Calls[0].ID, "toolu_01")
	gt.Equal(t, calls.Calls[0].Arguments, map[string]any{"ticker": "AAPL"})
	gt.Equal(t, reply.TokenUsage(), pandora.Usage{InputTokens: 200, OutputTokens: 40})

	params := api.params[0]
	gt.A(t, params.System).Length(1)
	gt.Equal(t, params.System[0].Text, "You are an analyst.")
	gt.A(t, params.Messages).Length(1)
	gt.A(t, params.Tools).Length(1)
	gt.Equal(t, params.Tools[0].OfTool.Name, "get_market_data")
	gt.Equal(t, params.MaxTokens, int64(claude.DefaultMaxTokens))
}

func TestGenerateText(t *testing.T) {
	api := &fakeAPI{resp: textResponse}
	client := claude.NewWithAPIClient(api, claude.WithModel("claude-test"))

	reply, err := client.Generate(context.Background(), []pandora.Message{pandora.UserMessage{Text: "q"}}, nil)
	gt.NoError(t, err)

	text, ok := reply.(*pandora.TextReply)
	gt.True(t, ok)
	gt.Equal(t, text.Text, "Apple trades at 190 USD.")
	gt.A(t, api.params[0].Tools).Length(0)
	gt.Equal(t, string(api.params[0].Model), "claude-test")
}

func TestGenerateWithoutToolsFlattensToolTurns(t *testing.T) {
	api := &fakeAPI{resp: textResponse}
	client := claude.NewWithAPIClient(api)

	_, err := client.Generate(context.Background(), []pandora.Message{
		pandora.SystemMessage{Text: "You are an analyst."},
		pandora.UserMessage{Text: "Price of Apple?"},
		pandora.AssistantMessage{Calls: []*pandora.FunctionCall{
			{ID: "toolu_01", Name: "get_market_data", Arguments: map[string]any{"ticker": "AAPL"}},
		}},
		pandora.ToolMessage{CallID: "toolu_01", Name: "get_market_data", Content: `{"price":190}`},
		pandora.UserMessage{Text: pandora.ForceFinalizePrompt},
	}, nil)
	gt.NoError(t, err)

	params := api.params[0]
	gt.A(t, params.Tools).Length(0)
	gt.A(t, params.Messages).Length(3)
	for _, msg := range params.Messages {
		for _, block := range msg.Content {
			gt.Nil(t, block.OfToolUse)
			gt.Nil(t, block.OfToolResult)
		}
	}
	gt.Equal(t, params.Messages[2].Role, anthropic.MessageParamRoleUser)
	gt.S(t, params.Messages[2].Content[0].OfText.Text).Contains(pandora.ForceFinalizePrompt)
}

func TestGenerateAPIError(t *testing.T) {
	client := claude.NewWithAPIClient(&fakeAPI{err: errors.New("overloaded")})
	_, err := client.Generate(context.Background(), []pandora.Message{pandora.UserMessage{Text: "q"}}, nil)
	gt.Error(t, err)
}

func TestConvertMessagesMergesToolResults(t *testing.T) {
	messages := []pandora.Message{
		pandora.SystemMessage{Text: "system"},
		pandora.UserMessage{Text: "Compare AAPL and MSFT"},
		pandora.AssistantMessage{Calls: []*pandora.FunctionCall{
			{ID: "a", Name: "get_market_data", Arguments: map[string]any{"ticker": "AAPL"}},
			{ID: "b", Name: "get_market_data", Arguments: map[string]any{"ticker": "MSFT"}},
		}},
		pandora.ToolMessage{CallID: "a", Content: "190"},
		pandora.ToolMessage{CallID: "b", Content: "Error: get_market_data failed: timeout", IsError: true},
		pandora.UserMessage{Text: "Answer now."},
	}

	system, msgs, err := claude.ConvertMessages(messages)
	gt.NoError(t, err)
	gt.A(t, system).Length(1)
	gt.A(t, msgs).Length(4)

	gt.Equal(t, msgs[1].Role, anthropic.MessageParamRoleAssistant)
	gt.A(t, msgs[1].Content).Length(2)

	gt.Equal(t, msgs[2].Role, anthropic.MessageParamRoleUser)
	gt.A(t, msgs[2].Content).Length(2)
	gt.NotNil(t, msgs[2].Content[0].OfToolResult)
	gt.Equal(t, msgs[2].Content[0].OfToolResult.ToolUseID, "a")
	gt.Equal(t, msgs[2].Content[1].OfToolResult.ToolUseID, "b")
}

func TestConvertTools(t *testing.T) {
	gt.A(t, claude.ConvertTools(nil)).Length(0)

	tools := claude.ConvertTools([]pandora.ToolSpec{marketTool})
	gt.A(t, tools).Length(1)
	gt.Equal(t, tools[0].OfTool.InputSchema.Required, []string{"ticker"})
	gt.Equal(t, tools[0].OfTool.Description.Value, "Get the latest quote")
}

func TestClaudeGenerateLive(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_CLAUDE_API_KEY")
	if !ok {
		t.Skip("TEST_CLAUDE_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := claude.New(ctx, apiKey)
	gt.NoError(t, err)

	reply, err := client.Generate(ctx, []pandora.Message{
		pandora.SystemMessage{Text: "Use tools to look up stock prices."},
		pandora.UserMessage{Text: "What is the latest price of AAPL?"},
	}, []pandora.ToolSpec{marketTool})
	gt.NoError(t, err)

	calls, ok := reply.(*pandora.ToolCallReply)
	gt.True(t, ok)
	gt.Equal(t, calls.Calls[0].Name, "get_market_data")
}

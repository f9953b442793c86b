package openai_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/llm/openai"
	openaiapi "github.com/sashabaranov/go-openai"
)

func TestConvertMessages(t *testing.T) {
	messages := []pandora.Message{
		pandora.SystemMessage{Text: "system"},
		pandora.UserMessage{Text: "price?"},
		pandora.AssistantMessage{Calls: []*pandora.FunctionCall{
			{ID: "call_1", Name: "get_market_data", Arguments: map[string]any{"ticker": "AAPL"}},
		}},
		pandora.ToolMessage{CallID: "call_1", Name: "get_market_data", Content: `{"price":190}`},
		pandora.AssistantMessage{Text: "190 USD"},
	}

	out, err := openai.ConvertMessages(messages)
	gt.NoError(t, err)
	gt.A(t, out).Length(5)

	gt.Equal(t, out[0].Role, openaiapi.ChatMessageRoleSystem)
	gt.Equal(t, out[1].Role, openaiapi.ChatMessageRoleUser)
	gt.Equal(t, out[2].Role, openaiapi.ChatMessageRoleAssistant)
	gt.A(t, out[2].ToolCalls).Length(1)
	gt.Equal(t, out[2].ToolCalls[0].Function.Arguments, `{"ticker":"AAPL"}`)
	gt.Equal(t, out[3].Role, openaiapi.ChatMessageRoleTool)
	gt.Equal(t, out[3].ToolCallID, "call_1")
	gt.Equal(t, out[4].Content, "190 USD")
}

func TestConvertTools(t *testing.T) {
	gt.Nil(t, openai.ConvertTools(nil))

	tools := openai.ConvertTools([]pandora.ToolSpec{marketTool})
	gt.A(t, tools).Length(1)
	gt.Equal(t, tools[0].Type, openaiapi.ToolTypeFunction)

	params, ok := tools[0].Function.Parameters.(map[string]any)
	gt.True(t, ok)
	gt.Equal(t, params["type"], "object")
	gt.Equal(t, params["required"], any([]string{"ticker"}))
}

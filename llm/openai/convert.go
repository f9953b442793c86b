package openai

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/sashabaranov/go-openai"
)

func convertMessages(messages []pandora.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		switch v := msg.(type) {
		case pandora.SystemMessage:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: v.Text,
			})

		case pandora.UserMessage:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: v.Text,
			})

		case pandora.AssistantMessage:
			m := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: v.Text,
			}
			for _, call := range v.Calls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, goerr.Wrap(err, "failed to marshal function call arguments", goerr.V("name", call.Name))
				}
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, m)

		case pandora.ToolMessage:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    v.Content,
				ToolCallID: v.CallID,
			})

		default:
			return nil, goerr.Wrap(pandora.ErrInvalidMessage, "unsupported message type", goerr.V("role", msg.Role()))
		}
	}

	return out, nil
}

// convertTools returns nil for no tools so the request declares none.
func convertTools(specs []pandora.ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}

	tools := make([]openai.Tool, len(specs))
	for i := range specs {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        specs[i].Name,
				Description: specs[i].Description,
				Parameters:  specs[i].JSONSchema(),
			},
		}
	}
	return tools
}

func convertResponse(resp openai.ChatCompletionResponse) (pandora.Reply, error) {
	msg := resp.Choices[0].Message

	var calls []*pandora.FunctionCall
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, goerr.Wrap(err, "failed to unmarshal function arguments",
					goerr.V("name", tc.Function.Name),
					goerr.V("arguments", tc.Function.Arguments))
			}
		}
		calls = append(calls, &pandora.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	usage := pandora.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	return pandora.NewReply(msg.Content, calls, usage), nil
}

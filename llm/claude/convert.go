package claude

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
)

// convertMessages splits out the system prompt and merges consecutive tool results into one
// user turn, as the Messages API expects every tool_result of a round in a single message.
func convertMessages(messages []pandora.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam, error) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range messages {
		if v, ok := msg.(pandora.ToolMessage); ok {
			results = append(results, anthropic.NewToolResultBlock(v.CallID, v.Content, v.IsError))
			continue
		}
		flush()

		switch v := msg.(type) {
		case pandora.SystemMessage:
			if v.Text != "" {
				system = append(system, anthropic.TextBlockParam{Text: v.Text})
			}

		case pandora.UserMessage:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(v.Text)))

		case pandora.AssistantMessage:
			var blocks []anthropic.ContentBlockParamUnion
			if v.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(v.Text))
			}
			for _, call := range v.Calls {
				args := call.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, args, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

		default:
			return nil, nil, goerr.Wrap(pandora.ErrInvalidMessage, "unsupported message type", goerr.V("role", msg.Role()))
		}
	}
	flush()

	return system, out, nil
}

func convertTools(specs []pandora.ToolSpec) []anthropic.ToolUnionParam {
	if len(specs) == 0 {
		return nil
	}

	tools := make([]anthropic.ToolUnionParam, len(specs))
	for i := range specs {
		schema := specs[i].JSONSchema()
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: schema["properties"],
		}
		if required, ok := schema["required"].([]string); ok {
			inputSchema.Required = required
		}

		tool := anthropic.ToolUnionParamOfTool(inputSchema, specs[i].Name)
		if specs[i].Description != "" {
			tool.OfTool.Description = anthropic.String(specs[i].Description)
		}
		tools[i] = tool
	}
	return tools
}

func convertResponse(resp *anthropic.Message) (pandora.Reply, error) {
	var texts []string
	var calls []*pandora.FunctionCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if text := block.AsText().Text; text != "" {
				texts = append(texts, text)
			}

		case "tool_use":
			toolUse := block.AsToolUse()
			raw, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to marshal tool input", goerr.V("name", toolUse.Name))
			}
			args := map[string]any{}
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, goerr.Wrap(err, "failed to unmarshal tool input",
					goerr.V("name", toolUse.Name),
					goerr.V("input", string(raw)))
			}
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, &pandora.FunctionCall{
				ID:        toolUse.ID,
				Name:      toolUse.Name,
				Arguments: args,
			})
		}
	}

	usage := pandora.Usage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return pandora.NewReply(strings.Join(texts, "\n"), calls, usage), nil
}

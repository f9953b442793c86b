package gemini

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

func newCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// convertMessages returns the system instruction and the turn list. Consecutive tool results
// are merged into one user turn of FunctionResponse parts.
func convertMessages(messages []pandora.Message) (*genai.Content, []*genai.Content, error) {
	var system *genai.Content
	var contents []*genai.Content
	var responses []genai.Part

	flush := func() {
		if len(responses) > 0 {
			contents = append(contents, &genai.Content{Role: roleUser, Parts: responses})
			responses = nil
		}
	}

	for _, msg := range messages {
		if v, ok := msg.(pandora.ToolMessage); ok {
			key := "result"
			if v.IsError {
				key = "error"
			}
			responses = append(responses, genai.FunctionResponse{
				Name:     v.Name,
				Response: map[string]any{key: v.Content},
			})
			continue
		}
		flush()

		switch v := msg.(type) {
		case pandora.SystemMessage:
			if v.Text != "" {
				system = &genai.Content{Parts: []genai.Part{genai.Text(v.Text)}}
			}

		case pandora.UserMessage:
			contents = append(contents, &genai.Content{
				Role:  roleUser,
				Parts: []genai.Part{genai.Text(v.Text)},
			})

		case pandora.AssistantMessage:
			var parts []genai.Part
			if v.Text != "" {
				parts = append(parts, genai.Text(v.Text))
			}
			for _, call := range v.Calls {
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Arguments})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: roleModel, Parts: parts})
			}

		default:
			return nil, nil, goerr.Wrap(pandora.ErrInvalidMessage, "unsupported message type", goerr.V("role", msg.Role()))
		}
	}
	flush()

	return system, contents, nil
}

func convertTools(specs []pandora.ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, len(specs))
	for i := range specs {
		decl := &genai.FunctionDeclaration{
			Name:        specs[i].Name,
			Description: specs[i].Description,
		}
		if len(specs[i].Parameters) > 0 {
			decl.Parameters = &genai.Schema{
				Type:       genai.TypeObject,
				Properties: convertProperties(specs[i].Parameters),
				Required:   specs[i].RequiredFields(),
			}
		}
		decls[i] = decl
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertProperties(params map[string]*pandora.Parameter) map[string]*genai.Schema {
	props := make(map[string]*genai.Schema, len(params))
	for name, param := range params {
		props[name] = convertParameter(param)
	}
	return props
}

func convertParameter(param *pandora.Parameter) *genai.Schema {
	schema := &genai.Schema{
		Type:        convertType(param.Type),
		Description: param.Description,
	}

	for _, v := range param.Enum {
		schema.Enum = append(schema.Enum, fmt.Sprint(v))
	}

	if param.Type == pandora.TypeObject && param.Properties != nil {
		schema.Properties = convertProperties(param.Properties)
		for name, p := range param.Properties {
			if p.Required {
				schema.Required = append(schema.Required, name)
			}
		}
	}

	if param.Type == pandora.TypeArray && param.Items != nil {
		schema.Items = convertParameter(param.Items)
	}

	return schema
}

func convertType(t pandora.ParameterType) genai.Type {
	switch t {
	case pandora.TypeString:
		return genai.TypeString
	case pandora.TypeNumber:
		return genai.TypeNumber
	case pandora.TypeInteger:
		return genai.TypeInteger
	case pandora.TypeBoolean:
		return genai.TypeBoolean
	case pandora.TypeArray:
		return genai.TypeArray
	case pandora.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func convertResponse(resp *genai.GenerateContentResponse, newID func() string) (pandora.Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, goerr.New("no content returned from Gemini")
	}

	var texts []string
	var calls []*pandora.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			if v != "" {
				texts = append(texts, string(v))
			}
		case genai.FunctionCall:
			args := v.Args
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, &pandora.FunctionCall{
				ID:        newID(),
				Name:      v.Name,
				Arguments: args,
			})
		}
	}

	var usage pandora.Usage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return pandora.NewReply(strings.Join(texts, ""), calls, usage), nil
}

package pandora

import (
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a Conversation. It is a closed set: SystemMessage, UserMessage,
// AssistantMessage and ToolMessage.
type Message interface {
	Role() Role
	message() restrictedValue
}

type restrictedValue struct{}

// SystemMessage carries the instruction set of the conversation.
type SystemMessage struct {
	Text string
}

// UserMessage is a turn authored by the user, or a synthetic instruction from the loop.
type UserMessage struct {
	Text string
}

// AssistantMessage is a reasoning engine turn. Calls holds the tool calls it requested.
type AssistantMessage struct {
	Text  string
	Calls []*FunctionCall
}

// ToolMessage is the result of exactly one tool call, correlated by CallID.
type ToolMessage struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

func (SystemMessage) Role() Role    { return RoleSystem }
func (UserMessage) Role() Role      { return RoleUser }
func (AssistantMessage) Role() Role { return RoleAssistant }
func (ToolMessage) Role() Role      { return RoleTool }

func (SystemMessage) message() restrictedValue    { return restrictedValue{} }
func (UserMessage) message() restrictedValue      { return restrictedValue{} }
func (AssistantMessage) message() restrictedValue { return restrictedValue{} }
func (ToolMessage) message() restrictedValue      { return restrictedValue{} }

// FunctionCall is a tool call request emitted by the reasoning engine.
// ID is assigned by the engine and correlates the result back to the request.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Conversation is the ordered message history of one run. It is not safe for concurrent use
// and is never shared between runs.
type Conversation struct {
	messages []Message
}

// NewConversation seeds a conversation with one system message and one user message.
func NewConversation(systemPrompt, query string) *Conversation {
	return &Conversation{
		messages: []Message{
			SystemMessage{Text: systemPrompt},
			UserMessage{Text: query},
		},
	}
}

// Messages returns a copy of the history so callers cannot mutate the conversation.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// AppendUser appends a user turn.
func (c *Conversation) AppendUser(text string) {
	c.messages = append(c.messages, UserMessage{Text: text})
}

// AppendReply appends the reasoning engine reply as an assistant message.
func (c *Conversation) AppendReply(reply Reply) {
	msg := AssistantMessage{}
	switch v := reply.(type) {
	case *TextReply:
		msg.Text = v.Text
	case *ToolCallReply:
		msg.Text = v.Text
		msg.Calls = v.Calls
	}
	c.messages = append(c.messages, msg)
}

// PendingCalls returns the calls of the last message if it is an assistant message.
func (c *Conversation) PendingCalls() []*FunctionCall {
	if len(c.messages) == 0 {
		return nil
	}
	if msg, ok := c.messages[len(c.messages)-1].(AssistantMessage); ok {
		return msg.Calls
	}
	return nil
}

// AppendToolResults appends one ToolMessage per pending call. The results must answer
// exactly the calls of the immediately preceding assistant message, in the same order.
func (c *Conversation) AppendToolResults(results []ToolMessage) error {
	calls := c.PendingCalls()
	if len(calls) != len(results) {
		return goerr.Wrap(ErrUnmatchedToolResult, "result count mismatch",
			goerr.V("calls", len(calls)),
			goerr.V("results", len(results)))
	}

	for i, result := range results {
		if calls[i].ID != result.CallID {
			return goerr.Wrap(ErrUnmatchedToolResult, "call ID mismatch",
				goerr.V("expected", calls[i].ID),
				goerr.V("actual", result.CallID))
		}
	}

	for _, result := range results {
		c.messages = append(c.messages, result)
	}
	return nil
}

// FlattenToolTurns rewrites tool calls and tool results as plain text turns. Adapters use it
// when no tools are declared, since some APIs reject tool blocks without tool definitions.
// Consecutive user turns are merged.
func FlattenToolTurns(messages []Message) []Message {
	out := make([]Message, 0, len(messages))

	appendUser := func(text string) {
		if n := len(out); n > 0 {
			if prev, ok := out[n-1].(UserMessage); ok {
				out[n-1] = UserMessage{Text: prev.Text + "\n\n" + text}
				return
			}
		}
		out = append(out, UserMessage{Text: text})
	}

	for _, msg := range messages {
		switch v := msg.(type) {
		case AssistantMessage:
			if len(v.Calls) == 0 {
				out = append(out, v)
				continue
			}
			lines := make([]string, 0, len(v.Calls)+1)
			if v.Text != "" {
				lines = append(lines, v.Text)
			}
			for _, call := range v.Calls {
				args, _ := json.Marshal(call.Arguments)
				lines = append(lines, "Called "+call.Name+" with "+string(args))
			}
			out = append(out, AssistantMessage{Text: strings.Join(lines, "\n")})

		case ToolMessage:
			appendUser("Result of " + v.Name + ":\n" + v.Content)

		case UserMessage:
			appendUser(v.Text)

		default:
			out = append(out, msg)
		}
	}
	return out
}

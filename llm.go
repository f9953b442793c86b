package pandora

import "context"

// LLMClient is the reasoning engine adapter. Generate receives the full conversation and the
// tools to declare. When tools is empty the adapter must not declare any tool, so the reply is
// always a *TextReply.
type LLMClient interface {
	Generate(ctx context.Context, messages []Message, tools []ToolSpec) (Reply, error)
}

// Reply is the result of one reasoning round: either *TextReply or *ToolCallReply.
type Reply interface {
	reply() restrictedValue
	TokenUsage() Usage
}

// Usage reports token counts of one reasoning call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// TextReply is a free-form answer with no pending tool calls.
type TextReply struct {
	Text  string
	Usage Usage
}

// ToolCallReply requests one or more tool calls. Text holds any commentary the engine emitted
// alongside the calls.
type ToolCallReply struct {
	Text  string
	Calls []*FunctionCall
	Usage Usage
}

func (*TextReply) reply() restrictedValue     { return restrictedValue{} }
func (*ToolCallReply) reply() restrictedValue { return restrictedValue{} }

func (x *TextReply) TokenUsage() Usage     { return x.Usage }
func (x *ToolCallReply) TokenUsage() Usage { return x.Usage }

// NewReply builds the right Reply variant from raw adapter output.
func NewReply(text string, calls []*FunctionCall, usage Usage) Reply {
	if len(calls) == 0 {
		return &TextReply{Text: text, Usage: usage}
	}
	return &ToolCallReply{Text: text, Calls: calls, Usage: usage}
}

package trace

// LLMCallData holds data specific to an LLM call span.
type LLMCallData struct {
	Round        int    `json:"round"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model,omitempty"`

	Request  *LLMRequest  `json:"request"`
	Response *LLMResponse `json:"response,omitempty"`
}

// LLMRequest represents the request sent to the reasoning engine.
type LLMRequest struct {
	Messages []Message `json:"messages"`
	Tools    []string  `json:"tools,omitempty"`
}

// LLMResponse represents the reply of the reasoning engine.
type LLMResponse struct {
	Text          string          `json:"text,omitempty"`
	FunctionCalls []*FunctionCall `json:"function_calls,omitempty"`
}

// Message is a flattened conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FunctionCall is a flattened tool call request.
type FunctionCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolExecData holds data specific to a tool execution span.
type ToolExecData struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args"`
	Result   string         `json:"result,omitempty"`
	Failed   bool           `json:"failed,omitempty"`
}

// EventData holds data of an event span.
type EventData struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

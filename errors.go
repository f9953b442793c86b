package pandora

import "errors"

var (
	// ErrInvalidTool is returned when a tool specification is malformed.
	ErrInvalidTool = errors.New("invalid tool specification")

	// ErrInvalidParameter is returned when a tool parameter is malformed.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrToolNameConflict is returned when two tools are registered under the same name.
	ErrToolNameConflict = errors.New("tool name conflict")

	// ErrEmptyQuery is returned by Agent.Run when the query is blank.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrUnmatchedToolResult is returned when tool results do not correlate to the
	// calls of the preceding assistant message.
	ErrUnmatchedToolResult = errors.New("tool result does not match pending call")

	// ErrInvalidMessage is returned by adapters for a message type they cannot convert.
	ErrInvalidMessage = errors.New("invalid message")
)

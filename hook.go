package pandora

import "context"

// Hooks observe a run. They cannot change or abort it, and a panicking hook is recovered
// and logged. Tool hooks are called from the goroutine running the tool, so calls of one
// round may arrive concurrently.
type (
	MessageHook      func(ctx context.Context, msg string)
	ToolRequestHook  func(ctx context.Context, call FunctionCall)
	ToolResponseHook func(ctx context.Context, call FunctionCall, result ToolResult)
)

func defaultMessageHook(context.Context, string) {}

func defaultToolRequestHook(context.Context, FunctionCall) {}

func defaultToolResponseHook(context.Context, FunctionCall, ToolResult) {}

// observe runs a hook. A panicking hook is logged and the run continues.
func observe(ctx context.Context, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			LoggerFromContext(ctx).Warn("hook panicked", "hook", hook, "panic", r)
		}
	}()
	fn()
}

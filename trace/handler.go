package trace

import "context"

// Handler receives lifecycle events of one agent run. Start methods return a context that
// must be passed to the matching End method.
type Handler interface {
	StartRun(ctx context.Context, query string) context.Context
	EndRun(ctx context.Context, answer string, err error)

	StartLLMCall(ctx context.Context, round int) context.Context
	EndLLMCall(ctx context.Context, data *LLMCallData, err error)

	// StartToolExec and EndToolExec may be called from several goroutines at once for the
	// calls of one round.
	StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context
	EndToolExec(ctx context.Context, result string, failed bool)

	// AddEvent records a loop state change such as "forced_finalize".
	AddEvent(ctx context.Context, kind string, data any)

	// Finish completes the trace of the run carried by ctx.
	Finish(ctx context.Context) error
}

package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/pandora/trace"
)

// Event represents a trace event type that can be selectively enabled.
type Event int

const (
	// Run enables logging of run start/end.
	Run Event = iota
	// LLMRequest enables logging of the messages and tools sent to the reasoning engine.
	LLMRequest
	// LLMResponse enables logging of the reasoning engine reply and token usage.
	LLMResponse
	// ToolExec enables logging of tool execution (name, args, result, duration).
	ToolExec
	// LoopEvent enables logging of loop state events such as forced finalize.
	LoopEvent

	eventCount
)

type config struct {
	logger *slog.Logger
	events map[Event]bool
}

// Option configures the logger handler.
type Option func(*config)

// WithLogger sets a custom slog.Logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEvents enables only the specified event types.
// When not specified, all events are enabled.
func WithEvents(events ...Event) Option {
	return func(c *config) {
		c.events = make(map[Event]bool, len(events))
		for _, e := range events {
			c.events[e] = true
		}
	}
}

type handler struct {
	cfg config
}

// New creates a trace.Handler that writes run events to slog.
func New(opts ...Option) trace.Handler {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.events == nil {
		cfg.events = make(map[Event]bool, eventCount)
		for i := Event(0); i < eventCount; i++ {
			cfg.events[i] = true
		}
	}

	return &handler{cfg: cfg}
}

func (h *handler) logger() *slog.Logger {
	if h.cfg.logger != nil {
		return h.cfg.logger
	}
	return slog.Default()
}

func (h *handler) enabled(e Event) bool {
	return h.cfg.events[e]
}

type startTimeKey struct{}

func withStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

func startTimeFrom(ctx context.Context) time.Time {
	t, _ := ctx.Value(startTimeKey{}).(time.Time)
	return t
}

type toolInfoKey struct{}

type toolInfo struct {
	name string
	args map[string]any
}

func (h *handler) StartRun(ctx context.Context, query string) context.Context {
	if h.enabled(Run) {
		h.logger().InfoContext(ctx, "run started", slog.String("query", query))
	}
	return withStartTime(ctx, time.Now())
}

func (h *handler) EndRun(ctx context.Context, answer string, err error) {
	if !h.enabled(Run) {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
		slog.Int("answer_length", len(answer)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "run ended", attrs...)
}

func (h *handler) StartLLMCall(ctx context.Context, _ int) context.Context {
	return withStartTime(ctx, time.Now())
}

func (h *handler) EndLLMCall(ctx context.Context, data *trace.LLMCallData, err error) {
	reqEnabled := h.enabled(LLMRequest)
	respEnabled := h.enabled(LLMResponse)
	if !reqEnabled && !respEnabled {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}

	if data != nil {
		attrs = append(attrs,
			slog.Int("round", data.Round),
			slog.String("model", data.Model),
			slog.Int("input_tokens", data.InputTokens),
			slog.Int("output_tokens", data.OutputTokens),
		)
		if reqEnabled && data.Request != nil {
			attrs = append(attrs, slog.Any("request", data.Request))
		}
		if respEnabled && data.Response != nil {
			attrs = append(attrs, slog.Any("response", data.Response))
		}
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	h.logger().InfoContext(ctx, "llm call", attrs...)
}

func (h *handler) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	ctx = withStartTime(ctx, time.Now())
	return context.WithValue(ctx, toolInfoKey{}, toolInfo{name: toolName, args: args})
}

func (h *handler) EndToolExec(ctx context.Context, result string, failed bool) {
	if !h.enabled(ToolExec) {
		return
	}

	info, _ := ctx.Value(toolInfoKey{}).(toolInfo)
	attrs := []any{
		slog.String("tool", info.name),
		slog.Any("args", info.args),
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
		slog.String("result", result),
		slog.Bool("failed", failed),
	}
	h.logger().InfoContext(ctx, "tool execution", attrs...)
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	if !h.enabled(LoopEvent) {
		return
	}

	h.logger().InfoContext(ctx, "loop event",
		slog.String("kind", kind),
		slog.Any("data", data),
	)
}

// Finish is a no-op. Persistence is the Recorder's responsibility.
func (h *handler) Finish(_ context.Context) error {
	return nil
}

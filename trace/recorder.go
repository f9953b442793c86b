package trace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithRepository sets the repository for persisting trace data.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithMetadata sets the metadata attached to every recorded trace.
func WithMetadata(meta TraceMetadata) Option {
	return func(r *Recorder) {
		r.metadata = meta
	}
}

// Recorder builds an in-memory span tree per run and saves it to a Repository on Finish.
// Run state lives in the context, so one Recorder serves concurrent runs.
type Recorder struct {
	mu       sync.Mutex
	repo     Repository
	metadata TraceMetadata
	last     *Trace
}

// New creates a new Recorder with the given options.
func New(opts ...Option) *Recorder {
	r := &Recorder{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type traceKey struct{}
type currentSpanKey struct{}

func withTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFrom returns the trace of the run carried by ctx, or nil.
func TraceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

func withCurrentSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, currentSpanKey{}, span)
}

func currentSpanFrom(ctx context.Context) *Span {
	s, _ := ctx.Value(currentSpanKey{}).(*Span)
	return s
}

func (r *Recorder) StartRun(ctx context.Context, query string) context.Context {
	now := time.Now()
	span := &Span{
		SpanID:    uuid.New().String(),
		Kind:      SpanKindRun,
		Name:      "run",
		StartedAt: now,
		Status:    SpanStatusOK,
	}

	t := &Trace{
		TraceID:   uuid.Must(uuid.NewV7()).String(),
		Query:     query,
		RootSpan:  span,
		Metadata:  r.metadata,
		StartedAt: now,
	}

	r.mu.Lock()
	r.last = t
	r.mu.Unlock()

	return withCurrentSpan(withTrace(ctx, t), span)
}

func (r *Recorder) EndRun(ctx context.Context, answer string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindRun {
		return
	}
	endSpan(span, err)

	if t := TraceFrom(ctx); t != nil {
		t.Answer = answer
		t.EndedAt = span.EndedAt
	}
}

func (r *Recorder) StartLLMCall(ctx context.Context, round int) context.Context {
	return r.startChildSpan(ctx, SpanKindLLMCall, fmt.Sprintf("llm_call#%d", round), nil)
}

func (r *Recorder) EndLLMCall(ctx context.Context, data *LLMCallData, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindLLMCall {
		return
	}
	span.LLMCall = data
	endSpan(span, err)
}

func (r *Recorder) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	return r.startChildSpan(ctx, SpanKindToolExec, toolName, func(s *Span) {
		s.ToolExec = &ToolExecData{ToolName: toolName, Args: args}
	})
}

func (r *Recorder) EndToolExec(ctx context.Context, result string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindToolExec {
		return
	}

	span.ToolExec.Result = result
	span.ToolExec.Failed = failed
	var err error
	if failed {
		err = errors.New(result)
	}
	endSpan(span, err)
}

// AddEvent adds a zero-length event span under the current span.
func (r *Recorder) AddEvent(ctx context.Context, kind string, data any) {
	now := time.Now()
	r.startChildSpan(ctx, SpanKindEvent, kind, func(s *Span) {
		s.EndedAt = now
		s.Event = &EventData{Kind: kind, Data: data}
	})
}

// Finish persists the trace of the run carried by ctx. Without a repository it does nothing.
func (r *Recorder) Finish(ctx context.Context) error {
	t := TraceFrom(ctx)
	if t == nil || r.repo == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.repo.Save(ctx, t)
}

// Trace returns the most recently started trace. Returns nil if no run has started.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Recorder) startChildSpan(ctx context.Context, kind SpanKind, name string, init func(*Span)) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := currentSpanFrom(ctx)
	if parent == nil {
		return ctx
	}

	span := &Span{
		SpanID:    uuid.New().String(),
		ParentID:  parent.SpanID,
		Kind:      kind,
		Name:      name,
		StartedAt: time.Now(),
		Status:    SpanStatusOK,
	}
	if init != nil {
		init(span)
	}

	parent.Children = append(parent.Children, span)
	return withCurrentSpan(ctx, span)
}

func endSpan(span *Span, err error) {
	span.EndedAt = time.Now()
	span.Duration = span.EndedAt.Sub(span.StartedAt)
	if err != nil {
		span.Status = SpanStatusError
		span.Error = err.Error()
	}
}

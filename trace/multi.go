package trace

import (
	"context"
	"errors"
)

// multiHandler fans out events to several handlers. Each handler keeps its own context chain.
type multiHandler struct {
	handlers []Handler
}

// Multi creates a Handler that forwards all events to the given handlers.
func Multi(handlers ...Handler) Handler {
	return &multiHandler{handlers: handlers}
}

type multiCtxKey struct{}

func (m *multiHandler) contexts(ctx context.Context) []context.Context {
	if v, ok := ctx.Value(multiCtxKey{}).([]context.Context); ok && len(v) == len(m.handlers) {
		return v
	}
	ctxs := make([]context.Context, len(m.handlers))
	for i := range ctxs {
		ctxs[i] = ctx
	}
	return ctxs
}

func (m *multiHandler) start(ctx context.Context, fn func(h Handler, ctx context.Context) context.Context) context.Context {
	parents := m.contexts(ctx)
	children := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		children[i] = fn(h, parents[i])
	}
	return context.WithValue(ctx, multiCtxKey{}, children)
}

func (m *multiHandler) each(ctx context.Context, fn func(h Handler, ctx context.Context)) {
	ctxs := m.contexts(ctx)
	for i, h := range m.handlers {
		fn(h, ctxs[i])
	}
}

func (m *multiHandler) StartRun(ctx context.Context, query string) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context { return h.StartRun(c, query) })
}

func (m *multiHandler) EndRun(ctx context.Context, answer string, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndRun(c, answer, err) })
}

func (m *multiHandler) StartLLMCall(ctx context.Context, round int) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context { return h.StartLLMCall(c, round) })
}

func (m *multiHandler) EndLLMCall(ctx context.Context, data *LLMCallData, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndLLMCall(c, data, err) })
}

func (m *multiHandler) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context { return h.StartToolExec(c, toolName, args) })
}

func (m *multiHandler) EndToolExec(ctx context.Context, result string, failed bool) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndToolExec(c, result, failed) })
}

func (m *multiHandler) AddEvent(ctx context.Context, kind string, data any) {
	m.each(ctx, func(h Handler, c context.Context) { h.AddEvent(c, kind, data) })
}

func (m *multiHandler) Finish(ctx context.Context) error {
	var errs []error
	m.each(ctx, func(h Handler, c context.Context) {
		if err := h.Finish(c); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

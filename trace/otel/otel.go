// Package otel bridges agent run events to OpenTelemetry spans.
//
//	agent := pandora.New(client, registry, pandora.WithTrace(otel.New(otel.WithTracerProvider(tp))))
package otel

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/pandora/trace"
	otelAPI "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/m-mizutani/pandora"

// Option is a functional option for configuring the OTel handler.
type Option func(*handler)

// WithTracerProvider sets an explicit TracerProvider.
// If not set, the global TracerProvider is used.
func WithTracerProvider(tp otelTrace.TracerProvider) Option {
	return func(h *handler) {
		h.tracerProvider = tp
	}
}

type handler struct {
	tracerProvider otelTrace.TracerProvider
	tracer         otelTrace.Tracer
}

// New creates a new OTel trace handler.
func New(opts ...Option) trace.Handler {
	h := &handler{}
	for _, opt := range opts {
		opt(h)
	}

	if h.tracerProvider == nil {
		h.tracerProvider = otelAPI.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)

	return h
}

func (h *handler) StartRun(ctx context.Context, query string) context.Context {
	ctx, span := h.tracer.Start(ctx, "pandora.run",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	span.SetAttributes(queryAttr(query))
	return ctx
}

func (h *handler) EndRun(ctx context.Context, _ string, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (h *handler) StartLLMCall(ctx context.Context, round int) context.Context {
	ctx, span := h.tracer.Start(ctx, "llm_call",
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
	)
	span.SetAttributes(roundAttr(round))
	return ctx
}

func (h *handler) EndLLMCall(ctx context.Context, data *trace.LLMCallData, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if data != nil {
		span.SetAttributes(
			llmModelAttr(data.Model),
			llmInputTokensAttr(data.InputTokens),
			llmOutputTokensAttr(data.OutputTokens),
		)
		if data.Response != nil {
			span.SetAttributes(llmToolCallsAttr(len(data.Response.FunctionCalls)))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (h *handler) StartToolExec(ctx context.Context, toolName string, args map[string]any) context.Context {
	ctx, span := h.tracer.Start(ctx, "tool:"+toolName,
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	span.SetAttributes(toolNameAttr(toolName))
	if args != nil {
		if b, err := json.Marshal(args); err == nil {
			span.SetAttributes(toolArgsAttr(string(b)))
		}
	}
	return ctx
}

func (h *handler) EndToolExec(ctx context.Context, result string, failed bool) {
	span := otelTrace.SpanFromContext(ctx)
	span.SetAttributes(toolFailedAttr(failed))
	if failed {
		span.RecordError(errors.New(result))
		span.SetStatus(codes.Error, result)
	}
	span.End()
}

func (h *handler) AddEvent(ctx context.Context, kind string, data any) {
	span := otelTrace.SpanFromContext(ctx)
	if data == nil {
		span.AddEvent(kind)
		return
	}
	if b, err := json.Marshal(data); err == nil {
		span.AddEvent(kind, otelTrace.WithAttributes(eventDataAttr(string(b))))
		return
	}
	span.AddEvent(kind)
}

// Finish is a no-op: spans are exported by the TracerProvider's span processor.
func (h *handler) Finish(_ context.Context) error {
	return nil
}

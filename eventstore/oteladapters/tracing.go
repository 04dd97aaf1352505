package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

const (
	statusSuccess  = "success"
	statusError    = "error"
	statusConflict = "conflict"
	attrStatus     = "status"
)

// TracingCollector starts OpenTelemetry spans for engine and aggregate operations.
type TracingCollector struct {
	tracer trace.Tracer
}

func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan returns a context carrying the new span, so nested operations become child spans.
func (t *TracingCollector) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, eventstore.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))

	return spanCtx, &Span{span: span}
}

// FinishSpan ends the span. Spans not started by this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx eventstore.SpanContext, status string, attrs map[string]string) {
	s, ok := spanCtx.(*Span)
	if !ok {
		return
	}

	s.span.SetAttributes(toAttributes(attrs)...)
	s.SetStatus(status)
	s.span.End()
}

var _ eventstore.TracingCollector = (*TracingCollector)(nil)

// Span wraps a trace.Span.
type Span struct {
	span trace.Span
}

func (s *Span) SetStatus(status string) {
	switch status {
	case statusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case statusError:
		s.span.SetStatus(codes.Error, "operation failed")
	case statusConflict:
		s.span.SetStatus(codes.Error, "concurrency conflict")
	default:
		s.span.SetAttributes(attribute.String(attrStatus, status))
	}
}

func (s *Span) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ eventstore.SpanContext = (*Span)(nil)

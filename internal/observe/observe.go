// Package observe bundles the optional logger, contextual logger, metrics collector and tracing collector
// so the engines and the aggregates can report through them without nil checks at every call site.
package observe

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	AttrOperation = "operation"
	AttrStatus    = "status"
	AttrErrorType = "error_type"
	AttrDuration  = "duration_ms"

	logMsgSQLExecuted = "executed sql for: "
	logMsgOperation   = "operation: "
	logAttrError      = "error"
	logAttrQuery      = "query"
)

// Observer is a value type, the zero value observes nothing.
type Observer struct {
	Logger           eventstore.Logger
	ContextualLogger eventstore.ContextualLogger
	Metrics          eventstore.MetricsCollector
	Tracing          eventstore.TracingCollector
}

// LogSQL logs an executed SQL statement with its duration at debug level.
func (o Observer) LogSQL(ctx context.Context, action string, sqlQuery string, duration time.Duration) {
	args := []any{AttrDuration, ToMilliseconds(duration), logAttrQuery, sqlQuery}

	if o.Logger != nil {
		o.Logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if o.ContextualLogger != nil {
		o.ContextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// LogOperation logs operational information at info level.
func (o Observer) LogOperation(ctx context.Context, action string, args ...any) {
	if o.Logger != nil {
		o.Logger.Info(logMsgOperation+action, args...)
	}

	if o.ContextualLogger != nil {
		o.ContextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// LogWarn logs non-critical problems, e.g. failing to close rows.
func (o Observer) LogWarn(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if o.Logger != nil {
		o.Logger.Warn(message, allArgs...)
	}

	if o.ContextualLogger != nil {
		o.ContextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

// LogError logs failures at error level.
func (o Observer) LogError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if o.Logger != nil {
		o.Logger.Error(message, allArgs...)
	}

	if o.ContextualLogger != nil {
		o.ContextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// RecordDuration records a duration labeled with operation and status.
func (o Observer) RecordDuration(ctx context.Context, metric string, duration time.Duration, operation, status string) {
	if o.Metrics == nil {
		return
	}

	labels := map[string]string{AttrOperation: operation, AttrStatus: status}

	if contextual, ok := o.Metrics.(eventstore.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	o.Metrics.RecordDuration(metric, duration, labels)
}

// RecordValue records a value labeled with operation and status.
func (o Observer) RecordValue(ctx context.Context, metric string, value float64, operation, status string) {
	if o.Metrics == nil {
		return
	}

	labels := map[string]string{AttrOperation: operation, AttrStatus: status}

	if contextual, ok := o.Metrics.(eventstore.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	o.Metrics.RecordValue(metric, value, labels)
}

// IncrementCounter increments a counter with the given labels.
func (o Observer) IncrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if o.Metrics == nil {
		return
	}

	if contextual, ok := o.Metrics.(eventstore.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	o.Metrics.IncrementCounter(metric, labels)
}

// RecordError increments the error counter of an operation.
func (o Observer) RecordError(ctx context.Context, metric, operation, errorType string) {
	o.IncrementCounter(ctx, metric, map[string]string{
		AttrOperation: operation,
		AttrStatus:    StatusError,
		AttrErrorType: errorType,
	})
}

// Span is a started tracing span, nil-safe.
type Span struct {
	collector eventstore.TracingCollector
	span      eventstore.SpanContext
}

// StartSpan starts a span if a tracing collector is configured.
func (o Observer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, *Span) {
	if o.Tracing == nil {
		return ctx, nil
	}

	spanCtx, span := o.Tracing.StartSpan(ctx, name, attrs)

	return spanCtx, &Span{collector: o.Tracing, span: span}
}

// FinishSuccess finishes the span with status success.
func (s *Span) FinishSuccess(duration time.Duration, attrs map[string]string) {
	s.finish(StatusSuccess, duration, attrs)
}

// FinishError finishes the span with status error and the error type.
func (s *Span) FinishError(errorType string, duration time.Duration) {
	s.finish(StatusError, duration, map[string]string{AttrErrorType: errorType})
}

func (s *Span) finish(status string, duration time.Duration, attrs map[string]string) {
	if s == nil || s.span == nil {
		return
	}

	s.span.SetStatus(status)
	if duration > 0 {
		s.span.AddAttribute(AttrDuration, fmt.Sprintf("%.2f", ToMilliseconds(duration)))
	}

	for key, value := range attrs {
		s.span.AddAttribute(key, value)
	}

	s.collector.FinishSpan(s.span, status, attrs)
}

// ToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func ToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

package oteladapters

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

// SlogBridgeLogger is a *slog.Logger backed by the OpenTelemetry slog bridge.
// Records logged with a context that carries a span are correlated with that span.
type SlogBridgeLogger struct {
	*slog.Logger
}

// NewSlogBridgeLogger uses the global LoggerProvider unless otelslog.WithLoggerProvider is passed.
func NewSlogBridgeLogger(name string, options ...otelslog.Option) *SlogBridgeLogger {
	return &SlogBridgeLogger{Logger: otelslog.NewLogger(name, options...)}
}

// NewSlogLoggerWithHandler wraps a plain slog.Handler, e.g. for local development. No trace correlation.
func NewSlogLoggerWithHandler(handler slog.Handler) *SlogBridgeLogger {
	return &SlogBridgeLogger{Logger: slog.New(handler)}
}

var (
	_ eventstore.Logger           = (*SlogBridgeLogger)(nil)
	_ eventstore.ContextualLogger = (*SlogBridgeLogger)(nil)
)

// OTelLogger emits records through the OpenTelemetry log API directly.
type OTelLogger struct {
	logger log.Logger
}

func NewOTelLogger(logger log.Logger) *OTelLogger {
	return &OTelLogger{logger: logger}
}

func (l *OTelLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityDebug, msg, args)
}

func (l *OTelLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityInfo, msg, args)
}

func (l *OTelLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityWarn, msg, args)
}

func (l *OTelLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.emit(ctx, log.SeverityError, msg, args)
}

func (l *OTelLogger) emit(ctx context.Context, severity log.Severity, msg string, args []any) {
	var record log.Record
	record.SetTimestamp(time.Now())
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	record.SetBody(log.StringValue(msg))
	record.AddAttributes(toKeyValues(args)...)

	l.logger.Emit(ctx, record)
}

// toKeyValues converts slog style key/value pairs. A trailing key without a value is dropped,
// non-string keys are skipped together with their value.
func toKeyValues(args []any) []log.KeyValue {
	kvs := make([]log.KeyValue, 0, len(args)/2)

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}

		kvs = append(kvs, log.KeyValue{Key: key, Value: toValue(args[i+1])})
	}

	return kvs
}

func toValue(v any) log.Value {
	switch typed := v.(type) {
	case string:
		return log.StringValue(typed)
	case int:
		return log.IntValue(typed)
	case int64:
		return log.Int64Value(typed)
	case float64:
		return log.Float64Value(typed)
	case bool:
		return log.BoolValue(typed)
	case time.Duration:
		return log.Int64Value(typed.Nanoseconds())
	case error:
		return log.StringValue(typed.Error())
	case fmt.Stringer:
		return log.StringValue(typed.String())
	default:
		return log.StringValue(slog.AnyValue(v).String())
	}
}

var _ eventstore.ContextualLogger = (*OTelLogger)(nil)

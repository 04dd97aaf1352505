package shell

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/internal/observe"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	retryDelayMetric        = "command_retry_delay_seconds"
	retriesMetric           = "command_retries_total"
	maxRetriesReachedMetric = "command_max_retries_reached_total"

	labelCommandType    = "command_type"
	labelAttemptNumber  = "attempt_number"
	labelErrorType      = "error_type"
	labelFinalErrorType = "final_error_type"

	statusRetrying = "retrying"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithRetryMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryOption configures RetryWithExponentialBackoff.
type RetryOption func(*retryConfig) error

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	observer     observe.Observer
	commandType  string
}

// RetryWithExponentialBackoff retries fn on concurrency conflicts with exponential backoff.
//
// Retry Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms (with 30% jitter)
//
// Only conflicts are retried, all other errors fail fast. A conflict is retryable because the aggregate
// appended nothing, so the whole command can run again against the fresh history. Partial appends and
// failures of saga triggered commands are not retried, the committed events would be decided a second time.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) error {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec // math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			config.observer.RecordDuration(ctx, retryDelayMetric, backoffDelay, config.commandType, statusRetrying)

			select {
			case <-time.After(backoffDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryableError(lastErr) {
			return lastErr
		}

		if attempt < config.maxAttempts-1 {
			config.observer.IncrementCounter(ctx, retriesMetric, map[string]string{
				labelCommandType:   config.commandType,
				labelAttemptNumber: strconv.Itoa(attempt + 1),
				labelErrorType:     errorType(lastErr),
			})
		}
	}

	config.observer.IncrementCounter(ctx, maxRetriesReachedMetric, map[string]string{
		labelCommandType:    config.commandType,
		labelFinalErrorType: errorType(lastErr),
	})

	return lastErr
}

// WithMaxAttempts sets the maximum number of attempts, including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter as a fraction of the backoff delay, from 0.0 to 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryMetrics sets the metrics collector for retry instrumentation, labelled with commandType.
func WithRetryMetrics(collector eventstore.MetricsCollector, commandType string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		config.observer.Metrics = collector
		config.commandType = commandType

		return nil
	}
}

func isRetryableError(err error) bool {
	if errors.Is(err, application.ErrPartialAppend) {
		return false
	}

	// saga steps only run after the triggering command was committed
	var stepErr *application.StepError
	if errors.As(err, &stepErr) && stepErr.Step == application.StepSaga {
		return false
	}

	return errors.Is(err, eventstore.ErrConcurrencyConflict)
}

func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, application.ErrPartialAppend):
		return "partial_append"
	case errors.Is(err, eventstore.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	default:
		return "other"
	}
}

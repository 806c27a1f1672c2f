package postgresengine

import (
	"github.com/AntonStoeckl/book-service-go/bookstore"
)

// Option defines a functional option for configuring BookStore.
type Option func(*BookStore) error

// WithTableName sets the table name for the BookStore.
// The name may be schema-qualified, e.g. "library.books".
func WithTableName(tableName string) Option {
	return func(bs *BookStore) error {
		if tableName == "" {
			return bookstore.ErrEmptyTableName
		}

		bs.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the BookStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: Book counts and durations (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Failures that cause an operation to fail.
func WithLogger(logger bookstore.Logger) Option {
	return func(bs *BookStore) error {
		bs.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the BookStore.
// It receives the same messages as the Logger, together with the operation's context,
// which allows trace correlation when tracing is enabled.
func WithContextualLogger(logger bookstore.ContextualLogger) Option {
	return func(bs *BookStore) error {
		bs.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the BookStore.
// It receives create/list durations, listed book counts, created book counts and database errors.
func WithMetrics(collector bookstore.MetricsCollector) Option {
	return func(bs *BookStore) error {
		bs.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the BookStore.
// One span is started per create/list/migrate operation.
func WithTracing(collector bookstore.TracingCollector) Option {
	return func(bs *BookStore) error {
		bs.tracingCollector = collector
		return nil
	}
}

package postgresengine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/book-service-go/bookstore"
)

const (
	metricCreateDuration   = "bookstore_create_duration_seconds"
	metricListDuration     = "bookstore_list_duration_seconds"
	metricMigrateDuration  = "bookstore_migrate_duration_seconds"
	metricBooksCreated     = "bookstore_books_created_total"
	metricBooksListed      = "bookstore_books_listed"
	metricDatabaseErrors   = "bookstore_database_errors_total"
	spanNameCreate         = "bookstore.create"
	spanNameList           = "bookstore.list"
	spanNameMigrate        = "bookstore.migrate"
	spanAttrOperation      = "operation"
	spanAttrTable          = "table"
	spanAttrBookCount      = "book_count"
	spanAttrDurationMS     = "duration_ms"
	spanAttrErrorType      = "error_type"
	labelStatus            = "status"
	operationCreate        = "create"
	operationList          = "list"
	operationMigrate       = "migrate"
	statusSuccess          = "success"
	statusError            = "error"
	errorTypeBuildQuery    = "build_query"
	errorTypeDatabaseQuery = "database_query"
	errorTypeDatabaseExec  = "database_exec"
	errorTypeRowScan       = "row_scan"
	errorTypeNoRow         = "no_row_returned"
)

// === Logging ===
// Every message goes to both loggers when both are configured.

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (bs *BookStore) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if bs.logger != nil {
		bs.logger.Debug(logMsgSQLExecuted+action, args...)
	}

	if bs.contextualLogger != nil {
		bs.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (bs *BookStore) logOperation(ctx context.Context, action string, args ...any) {
	if bs.logger != nil {
		bs.logger.Info(logMsgOperation+action, args...)
	}

	if bs.contextualLogger != nil {
		bs.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical failures.
func (bs *BookStore) logWarn(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if bs.logger != nil {
		bs.logger.Warn(message, allArgs...)
	}

	if bs.contextualLogger != nil {
		bs.contextualLogger.WarnContext(ctx, message, allArgs...)
	}
}

// logError logs failures that make an operation fail.
func (bs *BookStore) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if bs.logger != nil {
		bs.logger.Error(message, allArgs...)
	}

	if bs.contextualLogger != nil {
		bs.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Tracing ===

// tracingObserver encapsulates the span lifecycle of one operation.
// A nil span (no collector configured) turns all methods into no-ops.
type tracingObserver struct {
	bs        *BookStore
	span      bookstore.SpanContext
	operation string
}

func (bs *BookStore) startTracing(ctx context.Context, operation string) (*tracingObserver, context.Context) {
	observer := &tracingObserver{bs: bs, operation: operation}

	if bs.tracingCollector == nil {
		return observer, ctx
	}

	spanAttrs := map[string]string{
		spanAttrOperation: operation,
		spanAttrTable:     bs.tableName,
	}

	newCtx, span := bs.tracingCollector.StartSpan(ctx, spanName(operation), spanAttrs)
	observer.span = span

	return observer, newCtx
}

func (to *tracingObserver) finishSuccess(bookCount int, duration time.Duration) {
	if to.span == nil {
		return
	}

	to.span.SetStatus(statusSuccess)
	to.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))

	attrs := map[string]string{}
	if to.operation != operationMigrate {
		to.span.AddAttribute(spanAttrBookCount, strconv.Itoa(bookCount))
		attrs[spanAttrBookCount] = strconv.Itoa(bookCount)
	}

	to.bs.tracingCollector.FinishSpan(to.span, statusSuccess, attrs)
}

func (to *tracingObserver) finishError(errorType string, duration time.Duration) {
	if to.span == nil {
		return
	}

	to.span.SetStatus(statusError)
	to.span.AddAttribute(spanAttrErrorType, errorType)

	if duration > 0 {
		to.span.AddAttribute(spanAttrDurationMS, formatDuration(duration))
	}

	to.bs.tracingCollector.FinishSpan(to.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

func spanName(operation string) string {
	switch operation {
	case operationCreate:
		return spanNameCreate
	case operationList:
		return spanNameList
	default:
		return spanNameMigrate
	}
}

func formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%.2f", toMilliseconds(duration))
}

// === Metrics ===

// metricsObserver encapsulates metrics recording for one create or list operation.
type metricsObserver struct {
	bs        *BookStore
	ctx       context.Context
	operation string
}

func (bs *BookStore) startMetrics(ctx context.Context, operation string) *metricsObserver {
	return &metricsObserver{bs: bs, ctx: ctx, operation: operation}
}

func (mo *metricsObserver) recordSuccess(bookCount int, duration time.Duration) {
	if mo.bs.metricsCollector == nil {
		return
	}

	mo.recordDuration(duration, statusSuccess)

	labels := map[string]string{spanAttrOperation: mo.operation, labelStatus: statusSuccess}

	switch mo.operation {
	case operationCreate:
		mo.incrementCounter(metricBooksCreated, labels)
	case operationList:
		mo.recordValue(metricBooksListed, float64(bookCount), labels)
	}
}

func (mo *metricsObserver) recordError(errorType string, duration time.Duration) {
	if mo.bs.metricsCollector == nil {
		return
	}

	mo.recordDuration(duration, statusError)
	mo.incrementCounter(metricDatabaseErrors, map[string]string{
		spanAttrOperation: mo.operation,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	})
}

func (mo *metricsObserver) recordDuration(duration time.Duration, status string) {
	metricName := metricMigrateDuration

	switch mo.operation {
	case operationCreate:
		metricName = metricCreateDuration
	case operationList:
		metricName = metricListDuration
	}

	labels := map[string]string{spanAttrOperation: mo.operation, labelStatus: status}

	if contextual, ok := mo.bs.metricsCollector.(bookstore.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(mo.ctx, metricName, duration, labels)
		return
	}

	mo.bs.metricsCollector.RecordDuration(metricName, duration, labels)
}

func (mo *metricsObserver) incrementCounter(metricName string, labels map[string]string) {
	if contextual, ok := mo.bs.metricsCollector.(bookstore.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(mo.ctx, metricName, labels)
		return
	}

	mo.bs.metricsCollector.IncrementCounter(metricName, labels)
}

func (mo *metricsObserver) recordValue(metricName string, value float64, labels map[string]string) {
	if contextual, ok := mo.bs.metricsCollector.(bookstore.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(mo.ctx, metricName, value, labels)
		return
	}

	mo.bs.metricsCollector.RecordValue(metricName, value, labels)
}

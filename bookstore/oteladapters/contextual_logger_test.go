package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/book-service-go/bookstore/oteladapters"
)

type recordingLogger struct {
	noop.Logger

	mu      sync.Mutex
	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, record)
}

func recordAttributes(record log.Record) map[string]string {
	attrs := make(map[string]string)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})

	return attrs
}

func Test_NewSlogBridgeLogger(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")

	assert.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.InfoContext(context.Background(), "book created", "book_id", 1) })
}

func Test_SlogBridgeLoggerWithHandler_AllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug message")
	logger.InfoContext(ctx, "info message", "book_count", 3)
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG","msg":"debug message"`)
	assert.Contains(t, output, `"level":"INFO","msg":"info message","book_count":3`)
	assert.Contains(t, output, `"level":"WARN","msg":"warn message"`)
	assert.Contains(t, output, `"level":"ERROR","msg":"error message"`)
}

func Test_OTelLogger_EmitsRecords(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.InfoContext(context.Background(), "book created", "book_id", int64(42), "table", "books")
	logger.ErrorContext(context.Background(), "database query execution failed", "dangling")

	// assert
	require.Len(t, recorder.records, 2)

	created := recorder.records[0]
	assert.Equal(t, log.SeverityInfo, created.Severity())
	assert.Equal(t, "book created", created.Body().AsString())
	assert.Equal(t, map[string]string{"book_id": "42", "table": "books"}, recordAttributes(created))

	failed := recorder.records[1]
	assert.Equal(t, log.SeverityError, failed.Severity())
	assert.Empty(t, recordAttributes(failed))
}

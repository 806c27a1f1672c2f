package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/book-service-go/bookstore/oteladapters"
)

func newMetricsCollector(t *testing.T) (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}

	require.Failf(t, "metric not found", "metric %q was not recorded", name)

	return nil
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	collector, reader := newMetricsCollector(t)
	labels := map[string]string{"operation": "create", "status": "success"}

	// act
	collector.RecordDuration("bookstore_create_duration_seconds", 150*time.Millisecond, labels)

	// assert
	histogram, ok := collect(t, reader, "bookstore_create_duration_seconds").(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)

	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001)

	expectedAttrs := attribute.NewSet(attribute.String("operation", "create"), attribute.String("status", "success"))
	assert.True(t, dataPoint.Attributes.Equals(&expectedAttrs))
}

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	collector, reader := newMetricsCollector(t)
	labels := map[string]string{"operation": "create"}

	collector.IncrementCounter("bookstore_books_created_total", labels)
	collector.IncrementCounterContext(context.Background(), "bookstore_books_created_total", labels)

	sum, ok := collect(t, reader, "bookstore_books_created_total").(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	assert.True(t, sum.IsMonotonic)
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	collector, reader := newMetricsCollector(t)
	labels := map[string]string{"operation": "list"}

	collector.RecordValue("bookstore_books_listed", 3, labels)
	collector.RecordValueContext(context.Background(), "bookstore_books_listed", 7, labels)

	gauge, ok := collect(t, reader, "bookstore_books_listed").(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 7.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_ConcurrentUse(t *testing.T) {
	collector, reader := newMetricsCollector(t)
	labels := map[string]string{"operation": "create"}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("bookstore_books_created_total", labels)
		}()
	}
	wg.Wait()

	sum, ok := collect(t, reader, "bookstore_books_created_total").(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(20), sum.DataPoints[0].Value)
}

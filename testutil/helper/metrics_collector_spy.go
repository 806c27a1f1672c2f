package helper

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MetricsCollectorSpy captures metrics calls for testing.
// It implements bookstore.ContextualMetricsCollector and records whether a context was passed along.
type MetricsCollectorSpy struct {
	durationRecords []SpyDurationRecord
	counterRecords  []SpyCounterRecord
	valueRecords    []SpyValueRecord
	mu              sync.Mutex
}

// SpyDurationRecord represents a recorded duration.
type SpyDurationRecord struct {
	Metric      string
	Duration    time.Duration
	Labels      map[string]string
	WithContext bool
}

// SpyCounterRecord represents a recorded counter increment.
type SpyCounterRecord struct {
	Metric      string
	Labels      map[string]string
	WithContext bool
}

// SpyValueRecord represents a recorded value.
type SpyValueRecord struct {
	Metric      string
	Value       float64
	Labels      map[string]string
	WithContext bool
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.recordDuration(metric, duration, labels, false)
}

func (s *MetricsCollectorSpy) RecordDurationContext(
	_ context.Context,
	metric string,
	duration time.Duration,
	labels map[string]string,
) {

	s.recordDuration(metric, duration, labels, true)
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.incrementCounter(metric, labels, false)
}

func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.incrementCounter(metric, labels, true)
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.recordValue(metric, value, labels, false)
}

func (s *MetricsCollectorSpy) RecordValueContext(
	_ context.Context,
	metric string,
	value float64,
	labels map[string]string,
) {

	s.recordValue(metric, value, labels, true)
}

func (s *MetricsCollectorSpy) recordDuration(metric string, duration time.Duration, labels map[string]string, withCtx bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durationRecords = append(s.durationRecords, SpyDurationRecord{
		Metric:      metric,
		Duration:    duration,
		Labels:      maps.Clone(labels),
		WithContext: withCtx,
	})
}

func (s *MetricsCollectorSpy) incrementCounter(metric string, labels map[string]string, withCtx bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counterRecords = append(s.counterRecords, SpyCounterRecord{
		Metric:      metric,
		Labels:      maps.Clone(labels),
		WithContext: withCtx,
	})
}

func (s *MetricsCollectorSpy) recordValue(metric string, value float64, labels map[string]string, withCtx bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.valueRecords = append(s.valueRecords, SpyValueRecord{
		Metric:      metric,
		Value:       value,
		Labels:      maps.Clone(labels),
		WithContext: withCtx,
	})
}

// DurationRecords returns a copy of all captured duration records.
func (s *MetricsCollectorSpy) DurationRecords() []SpyDurationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyDurationRecord(nil), s.durationRecords...)
}

// CounterRecords returns a copy of all captured counter records.
func (s *MetricsCollectorSpy) CounterRecords() []SpyCounterRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyCounterRecord(nil), s.counterRecords...)
}

// ValueRecords returns a copy of all captured value records.
func (s *MetricsCollectorSpy) ValueRecords() []SpyValueRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyValueRecord(nil), s.valueRecords...)
}

// Reset clears all captured records.
func (s *MetricsCollectorSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durationRecords = nil
	s.counterRecords = nil
	s.valueRecords = nil
}

// MetricRecordMatcher checks the labels of a captured record in a fluent chain.
type MetricRecordMatcher struct {
	found  bool
	labels map[string]string
}

// HasDurationRecordForMetric starts a chain on the first duration record for metric.
func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	for _, record := range s.DurationRecords() {
		if record.Metric == metric {
			return &MetricRecordMatcher{found: true, labels: record.Labels}
		}
	}

	return &MetricRecordMatcher{}
}

// HasCounterRecordForMetric starts a chain on the first counter record for metric.
func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	for _, record := range s.CounterRecords() {
		if record.Metric == metric {
			return &MetricRecordMatcher{found: true, labels: record.Labels}
		}
	}

	return &MetricRecordMatcher{}
}

// HasValueRecordForMetric starts a chain on the first value record for metric.
func (s *MetricsCollectorSpy) HasValueRecordForMetric(metric string) *MetricRecordMatcher {
	for _, record := range s.ValueRecords() {
		if record.Metric == metric {
			return &MetricRecordMatcher{found: true, labels: record.Labels}
		}
	}

	return &MetricRecordMatcher{}
}

func (m *MetricRecordMatcher) WithOperation(operation string) *MetricRecordMatcher {
	return m.WithLabel("operation", operation)
}

func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel("status", status)
}

func (m *MetricRecordMatcher) WithErrorType(errorType string) *MetricRecordMatcher {
	return m.WithLabel("error_type", errorType)
}

// WithLabel requires the label to have exactly value.
func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	if m.found && m.labels[key] != value {
		m.found = false
	}

	return m
}

// Assert returns true if all conditions in the chain were met.
func (m *MetricRecordMatcher) Assert() bool {
	return m.found
}

package spies

import (
	"maps"
	"sync"
	"time"
)

// MetricsCollectorSpy captures calls to eventstore.MetricsCollector.
type MetricsCollectorSpy struct {
	mu        sync.Mutex
	durations []DurationRecord
	counters  []CounterRecord
	values    []ValueRecord
}

type DurationRecord struct {
	Metric   string
	Duration time.Duration
	Labels   map[string]string
}

type CounterRecord struct {
	Metric string
	Labels map[string]string
}

type ValueRecord struct {
	Metric string
	Value  float64
	Labels map[string]string
}

func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = append(s.durations, DurationRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = append(s.counters, CounterRecord{Metric: metric, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = append(s.values, ValueRecord{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

func (s *MetricsCollectorSpy) DurationRecords() []DurationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]DurationRecord(nil), s.durations...)
}

func (s *MetricsCollectorSpy) CounterRecords() []CounterRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]CounterRecord(nil), s.counters...)
}

func (s *MetricsCollectorSpy) ValueRecords() []ValueRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]ValueRecord(nil), s.values...)
}

// HasDuration reports whether a duration for metric with the label value was recorded.
func (s *MetricsCollectorSpy) HasDuration(metric, labelKey, labelValue string) bool {
	for _, record := range s.DurationRecords() {
		if record.Metric == metric && record.Labels[labelKey] == labelValue {
			return true
		}
	}

	return false
}

// CounterCount returns how often the counter metric was incremented.
func (s *MetricsCollectorSpy) CounterCount(metric string) int {
	count := 0
	for _, record := range s.CounterRecords() {
		if record.Metric == metric {
			count++
		}
	}

	return count
}

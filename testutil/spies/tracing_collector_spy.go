package spies

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
)

// SpySpanContext is the eventstore.SpanContext handed out by TracingCollectorSpy.
type SpySpanContext struct {
	mu         sync.Mutex
	status     string
	attributes map[string]string
}

func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}
	c.attributes[key] = value
}

func (c *SpySpanContext) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

func (c *SpySpanContext) Attributes() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.attributes)
}

// SpanRecord is one started (and maybe finished) span.
type SpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string
	SpanContext     *SpySpanContext
}

// TracingCollectorSpy captures calls to eventstore.TracingCollector.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []SpanRecord
}

func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, eventstore.SpanContext) {

	s.mu.Lock()
	defer s.mu.Unlock()

	spanCtx := &SpySpanContext{}
	s.spans = append(s.spans, SpanRecord{Name: name, StartAttributes: maps.Clone(attrs), SpanContext: spanCtx})

	return ctx, spanCtx
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx eventstore.SpanContext, status string, attrs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spy, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	for i := range s.spans {
		if s.spans[i].SpanContext == spy {
			s.spans[i].Status = status
			s.spans[i].EndAttributes = maps.Clone(attrs)
			return
		}
	}
}

func (s *TracingCollectorSpy) SpanRecords() []SpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpanRecord(nil), s.spans...)
}

// FinishedSpan returns the first finished span with the name.
func (s *TracingCollectorSpy) FinishedSpan(name string) (SpanRecord, bool) {
	for _, record := range s.SpanRecords() {
		if record.Name == name && record.Status != "" {
			return record, true
		}
	}

	return SpanRecord{}, false
}

package eventstore

import (
	"slices"
	"time"
)

// Filter selects events for store-wide reads (QueryAll), e.g. to catch up projections.
// An empty filter matches every event.
type Filter struct {
	eventTypes    []string
	occurredFrom  time.Time
	occurredUntil time.Time
}

func (f Filter) EventTypes() []string {
	return f.eventTypes
}

// OccurredFrom is the inclusive lower bound, the zero time means unbounded.
func (f Filter) OccurredFrom() time.Time {
	return f.occurredFrom
}

// OccurredUntil is the inclusive upper bound, the zero time means unbounded.
func (f Filter) OccurredUntil() time.Time {
	return f.occurredUntil
}

// Matches evaluates the filter in memory.
func (f Filter) Matches(event StorableEvent) bool {
	if len(f.eventTypes) > 0 && !slices.Contains(f.eventTypes, event.EventType) {
		return false
	}

	if !f.occurredFrom.IsZero() && event.OccurredAt.Before(f.occurredFrom) {
		return false
	}

	if !f.occurredUntil.IsZero() && event.OccurredAt.After(f.occurredUntil) {
		return false
	}

	return true
}

// FilterBuilder builds a Filter:
//
//	filter := eventstore.BuildEventFilter().
//		AnyEventTypeOf(core.RestaurantCreatedEventType, core.RestaurantMenuChangedEventType).
//		OccurredFrom(since).
//		Finalize()
type FilterBuilder struct {
	filter Filter
}

func BuildEventFilter() FilterBuilder {
	return FilterBuilder{}
}

// MatchingAnyEvent directly creates an empty Filter.
func MatchingAnyEvent() Filter {
	return Filter{}
}

// AnyEventTypeOf adds one or multiple event types.
//
// It sanitizes the input:
//   - removing empty event types ("")
//   - sorting the event types
//   - removing duplicate event types
func (b FilterBuilder) AnyEventTypeOf(eventType string, eventTypes ...string) FilterBuilder {
	all := append([]string{eventType}, eventTypes...)
	all = append(all, b.filter.eventTypes...)

	all = slices.DeleteFunc(all, func(t string) bool { return t == "" })
	slices.Sort(all)
	b.filter.eventTypes = slices.Compact(all)

	return b
}

func (b FilterBuilder) OccurredFrom(from time.Time) FilterBuilder {
	b.filter.occurredFrom = from
	return b
}

func (b FilterBuilder) OccurredUntil(until time.Time) FilterBuilder {
	b.filter.occurredUntil = until
	return b
}

func (b FilterBuilder) Finalize() Filter {
	return b.filter
}

// Package spies provides test doubles that capture log records, metrics and spans.
package spies

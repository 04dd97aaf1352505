// Package oteladapters implements the eventstore observability interfaces on top of OpenTelemetry,
// so engines and aggregates can report logs, metrics and spans without depending on OpenTelemetry themselves.
package oteladapters

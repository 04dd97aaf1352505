package oteladapters

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func Test_toKeyValues(t *testing.T) {
	// act
	kvs := toKeyValues([]any{
		"stream_id", "restaurant-1",
		"event_count", 2,
		"duration", 1500 * time.Millisecond,
		"ok", true,
		"ratio", 0.5,
		"error", errors.New("boom"),
		7, "skipped",
		"dangling",
	})

	// assert
	require.Len(t, kvs, 6)
	assert.Equal(t, log.String("stream_id", "restaurant-1"), kvs[0])
	assert.Equal(t, log.Int("event_count", 2), kvs[1])
	assert.Equal(t, log.Int64("duration", 1_500_000_000), kvs[2])
	assert.Equal(t, log.Bool("ok", true), kvs[3])
	assert.Equal(t, log.Float64("ratio", 0.5), kvs[4])
	assert.Equal(t, log.String("error", "boom"), kvs[5])
}

func Test_describe(t *testing.T) {
	assert.Equal(t, "eventstore append duration seconds", describe("eventstore_append_duration_seconds"))
}

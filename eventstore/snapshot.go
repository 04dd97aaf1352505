package eventstore

import (
	"encoding/json"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrInvalidSnapshotJSON is returned when snapshot JSON data is malformed or invalid.
	ErrInvalidSnapshotJSON = errors.New("snapshot json is not valid")

	// ErrEmptyProjectionType is returned when an empty projection type is provided.
	ErrEmptyProjectionType = errors.New("projection type must not be empty")

	// ErrEmptyProjectionID is returned when an empty projection id is provided.
	ErrEmptyProjectionID = errors.New("projection id must not be empty")

	ErrSavingSnapshotFailed   = errors.New("saving snapshot failed")
	ErrLoadingSnapshotFailed  = errors.New("loading snapshot failed")
	ErrDeletingSnapshotFailed = errors.New("deleting snapshot failed")
)

// Snapshot is a persisted projection state, e.g. one row of a materialized view.
// Position is the store-wide position of the last event folded into Data.
type Snapshot struct {
	ProjectionType string          // e.g. "RestaurantView"
	ProjectionID   string          // e.g. the restaurant id
	Position       Position        // last processed event position
	Data           json.RawMessage // serialized projection state
	CreatedAt      time.Time
}

// Validate ensures the snapshot has valid data for storage operations.
func (s Snapshot) Validate() error {
	if s.ProjectionType == "" {
		return ErrEmptyProjectionType
	}

	if s.ProjectionID == "" {
		return ErrEmptyProjectionID
	}

	if !jsoniter.ConfigFastest.Valid(s.Data) {
		return ErrInvalidSnapshotJSON
	}

	return nil
}

// BuildSnapshot creates a new Snapshot with validation.
func BuildSnapshot(
	projectionType string,
	projectionID string,
	position Position,
	data json.RawMessage,
) (Snapshot, error) {

	snapshot := Snapshot{
		ProjectionType: projectionType,
		ProjectionID:   projectionID,
		Position:       position,
		Data:           data,
		CreatedAt:      time.Now(),
	}

	if err := snapshot.Validate(); err != nil {
		return Snapshot{}, err
	}

	return snapshot, nil
}

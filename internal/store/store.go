// Package store persists readings and the per-machine simulation state.
package store

import (
	"context"
	"errors"

	"motorsync/internal/telemetry"
)

// ErrUnavailable reports that the backing store could not be reached or
// rejected the write. It is distinct from ErrNotFound so callers can tell
// "storage down" apart from "no data".
var ErrUnavailable = errors.New("store unavailable")

// ErrNotFound reports an absent row.
var ErrNotFound = errors.New("not found")

// SampleStore is the single source of truth for persisted readings.
//
// Append assigns the identifier; ids are unique and monotonically
// increasing in insertion order. The motor state snapshot is committed in
// the same transaction as the reading so a restart resumes the wear
// accumulators (a fresh database reports ErrNotFound from LoadState).
type SampleStore interface {
	Append(ctx context.Context, r telemetry.Reading, st telemetry.MotorState) (telemetry.Reading, error)
	ListRecent(ctx context.Context, limit int) ([]telemetry.Reading, error)
	DeleteAll(ctx context.Context) (int64, error)
	LoadState(ctx context.Context, machineID string) (telemetry.MotorState, error)
}

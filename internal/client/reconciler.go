// Package client keeps a subscriber's local view consistent across
// reconnects and duplicate deliveries.
package client

import (
	"sort"
	"sync"

	"motorsync/internal/telemetry"
)

// Reconciler maintains an ordered, duplicate-free, most-recent-first view
// of readings merged from an initial bulk fetch and the push stream. The
// view is display-only and never authoritative; the store remains the
// source of truth.
type Reconciler struct {
	mu    sync.Mutex
	cap   int
	rows  []telemetry.Reading
	index map[int64]int // id -> position in rows
}

// NewReconciler creates a reconciler holding at most capacity readings.
func NewReconciler(capacity int) *Reconciler {
	if capacity <= 0 {
		capacity = 100
	}
	return &Reconciler{cap: capacity, index: make(map[int64]int)}
}

// Apply merges one pushed reading. A known id replaces the existing entry
// in place; a new id is inserted at its recency position — for live
// pushes that is the front, and identifiers are monotonic, so a reading
// that arrived late still lands without regressing the order of anything
// already held. Insertion past the cap evicts the oldest entries.
func (rc *Reconciler) Apply(r telemetry.Reading) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.apply(r)
}

func (rc *Reconciler) apply(r telemetry.Reading) {
	if pos, ok := rc.index[r.ID]; ok {
		rc.rows[pos] = r
		return
	}
	pos := sort.Search(len(rc.rows), func(i int) bool { return rc.rows[i].ID < r.ID })
	rc.rows = append(rc.rows, telemetry.Reading{})
	copy(rc.rows[pos+1:], rc.rows[pos:])
	rc.rows[pos] = r
	for len(rc.rows) > rc.cap {
		evicted := rc.rows[len(rc.rows)-1]
		delete(rc.index, evicted.ID)
		rc.rows = rc.rows[:len(rc.rows)-1]
	}
	rc.reindex()
}

func (rc *Reconciler) reindex() {
	for i, row := range rc.rows {
		rc.index[row.ID] = i
	}
}

// Seed merges a bulk fetch (most-recent-first, as returned by the list
// endpoint) under the same rules as pushed readings, so pushes that
// raced the fetch deduplicate instead of doubling up.
func (rc *Reconciler) Seed(rows []telemetry.Reading) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for i := len(rows) - 1; i >= 0; i-- {
		rc.apply(rows[i])
	}
}

// Snapshot returns a copy of the current view, most recent first.
func (rc *Reconciler) Snapshot() []telemetry.Reading {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]telemetry.Reading, len(rc.rows))
	copy(out, rc.rows)
	return out
}

// Len returns the number of held readings.
func (rc *Reconciler) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.rows)
}

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"motorsync/internal/telemetry"
)

func reading(machine string) telemetry.Reading {
	return telemetry.Reading{
		MachineID:   machine,
		Speed:       1200,
		Temperature: 55,
		Status:      telemetry.StatusNormal,
		Timestamp:   time.Now().UTC(),
	}
}

func TestMemoryAppendAssignsMonotonicIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		saved, err := s.Append(ctx, reading("motor-001"), telemetry.MotorState{})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if saved.ID <= prev {
			t.Fatalf("id %d not greater than previous %d", saved.ID, prev)
		}
		prev = saved.ID
	}
	if prev != 5 {
		t.Errorf("expected final id 5, got %d", prev)
	}
}

func TestMemoryListRecentOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := s.Append(ctx, reading("motor-001"), telemetry.MotorState{}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListRecent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got))
	}
	if got[0].ID != 4 || got[1].ID != 3 || got[2].ID != 2 {
		t.Errorf("expected ids [4 3 2], got [%d %d %d]", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestMemoryDeleteAllReturnsCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, reading("motor-001"), telemetry.MotorState{}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.DeleteAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 deleted, got %d", n)
	}
	rows, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty store after delete, got %d rows", len(rows))
	}
}

func TestMemoryStateRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.LoadState(ctx, "motor-001"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on fresh store, got %v", err)
	}

	st := telemetry.MotorState{OperatingSecs: 90, BearingWear: 1.5}
	if _, err := s.Append(ctx, reading("motor-001"), st); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadState(ctx, "motor-001")
	if err != nil {
		t.Fatal(err)
	}
	if got != st {
		t.Errorf("state round trip mismatch: %+v vs %+v", got, st)
	}
}

func TestMemoryConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Append(ctx, reading("motor-001"), telemetry.MotorState{}); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	rows, err := s.ListRecent(ctx, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(rows))
	}
	seen := map[int64]bool{}
	for _, r := range rows {
		if seen[r.ID] {
			t.Fatalf("duplicate id %d", r.ID)
		}
		seen[r.ID] = true
	}
}

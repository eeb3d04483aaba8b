package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"motorsync/internal/hub"
	"motorsync/internal/logging"
	"motorsync/internal/telemetry"
)

func TestStreamAppliesReadingsAndDropsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: ready\ndata: {}\n\n"))
		w.Write([]byte("event: reading\ndata: {\"type\":\"reading\",\"reading\":{\"id\":1,\"machineId\":\"motor-001\",\"speed\":900,\"temperature\":50,\"status\":\"normal\",\"timestamp\":\"2026-03-01T12:00:00Z\"}}\n\n"))
		w.Write([]byte("data: {not json}\n\n"))
		w.Write([]byte("event: reading\ndata: {\"type\":\"reading\",\"reading\":{\"id\":2,\"machineId\":\"motor-001\",\"speed\":950,\"temperature\":51,\"status\":\"normal\",\"timestamp\":\"2026-03-01T12:00:01Z\"}}\n\n"))
	}))
	defer srv.Close()

	rec := NewReconciler(10)
	var mu sync.Mutex
	var states []ConnState
	s := NewStream(srv.URL, "motor-001", rec, logging.New(),
		WithStateHook(func(st ConnState) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for rec.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	rows := rec.Snapshot()
	if len(rows) != 2 {
		t.Fatalf("expected 2 readings merged, got %d", len(rows))
	}
	if rows[0].ID != 2 || rows[1].ID != 1 {
		t.Errorf("wrong order: %v", []int64{rows[0].ID, rows[1].ID})
	}

	mu.Lock()
	defer mu.Unlock()
	sawConnected := false
	for _, st := range states {
		if st == StateConnected {
			sawConnected = true
		}
	}
	if !sawConnected {
		t.Errorf("state machine never reported connected: %v", states)
	}
}

func TestStreamReconnectsWithBackoff(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		// Refuse the stream: every attempt fails before connecting.
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var states []ConnState
	s := NewStream(srv.URL, "", NewReconciler(10), logging.New(),
		WithBackoff(NewBackoff(time.Millisecond, 4*time.Millisecond)),
		WithStateHook(func(st ConnState) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		}))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if attempts < 2 {
		t.Fatalf("expected repeated reconnect attempts, got %d", attempts)
	}
	sawBackoff := false
	for _, st := range states {
		if st == StateBackoffWait {
			sawBackoff = true
		}
	}
	if !sawBackoff {
		t.Errorf("backoff-wait state never observed: %v", states)
	}
	if states[len(states)-1] != StateDisconnected {
		t.Errorf("final state must be disconnected, got %v", states[len(states)-1])
	}
}

func TestStreamRoutesAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: alert\ndata: {\"type\":\"alert\",\"alert\":{\"id\":\"a1\",\"machineId\":\"motor-001\",\"severity\":\"critical\",\"message\":\"status changed to critical\",\"timestamp\":\"2026-03-01T12:00:00Z\"}}\n\n"))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var alerts []telemetry.Alert
	s := NewStream(srv.URL, "", NewReconciler(10), logging.New(),
		WithAlertHook(func(msg hub.Message) {
			mu.Lock()
			alerts = append(alerts, *msg.Alert)
			mu.Unlock()
		}))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(alerts) == 0 {
		t.Fatal("alert hook never fired")
	}
	if alerts[0].Severity != telemetry.SeverityCritical {
		t.Errorf("unexpected alert: %+v", alerts[0])
	}
}

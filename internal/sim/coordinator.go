// Sampling coordinator: synthesize, persist, broadcast.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"motorsync/internal/store"
	"motorsync/internal/telemetry"
)

// ReadingWriter is a secondary sink mirroring persisted readings. Mirrors
// are best-effort: failures are logged, never surfaced to Sample callers.
type ReadingWriter interface {
	Write(telemetry.Reading) error
}

// AlertWriter mirrors alerts the same way.
type AlertWriter interface {
	WriteAlert(telemetry.Alert) error
}

// Optional: writers can support batch mode.
type batchWriter interface {
	WriteBatch([]telemetry.Reading) error
}

// Broadcaster is the slice of the hub the coordinator needs.
type Broadcaster interface {
	PublishReading(telemetry.Reading)
	PublishAlert(telemetry.Alert)
}

// Coordinator owns one machine's simulation state and runs the sample
// operation end to end: synthesize, persist, then broadcast. State
// mutation and persistence form a single critical section, so overlapping
// triggers serialize instead of corrupting the accumulators.
type Coordinator struct {
	machineID string
	synth     *telemetry.Synthesizer
	store     store.SampleStore
	bus       Broadcaster
	mirror    ReadingWriter // optional
	alerts    AlertWriter   // optional

	persistTimeout time.Duration
	now            func() time.Time

	mu         sync.Mutex
	state      telemetry.MotorState
	lastSample time.Time
	lastStatus telemetry.Status

	onSample func(err error, elapsed time.Duration) // metric hook, may be nil
	log      *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMirror attaches a best-effort secondary sink.
func WithMirror(w ReadingWriter) CoordinatorOption {
	return func(c *Coordinator) { c.mirror = w }
}

// WithAlertMirror attaches a best-effort alert sink.
func WithAlertMirror(w AlertWriter) CoordinatorOption {
	return func(c *Coordinator) { c.alerts = w }
}

// WithPersistTimeout bounds how long one persistence attempt may take.
func WithPersistTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.persistTimeout = d }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// WithSampleHook registers a callback fired after every sample attempt.
func WithSampleHook(fn func(err error, elapsed time.Duration)) CoordinatorOption {
	return func(c *Coordinator) { c.onSample = fn }
}

// NewCoordinator builds a coordinator and seeds its state from the store
// so wear and operating hours survive a process restart. A fresh store
// starts the accumulators at zero.
func NewCoordinator(ctx context.Context, synth *telemetry.Synthesizer, st store.SampleStore, bus Broadcaster, log *slog.Logger, opts ...CoordinatorOption) (*Coordinator, error) {
	c := &Coordinator{
		machineID:      synth.MachineID,
		synth:          synth,
		store:          st,
		bus:            bus,
		persistTimeout: 5 * time.Second,
		now:            time.Now,
		lastStatus:     telemetry.StatusNormal,
		log:            log.With("machine", synth.MachineID),
	}
	for _, o := range opts {
		o(c)
	}

	state, err := st.LoadState(ctx, c.machineID)
	switch {
	case err == nil:
		c.state = state
		c.log.Info("resumed motor state", "operating_secs", state.OperatingSecs, "bearing_wear", state.BearingWear)
	case errors.Is(err, store.ErrNotFound):
		c.state = telemetry.MotorState{Temperature: telemetry.AmbientTempC}
		c.log.Info("starting with fresh motor state")
	default:
		return nil, fmt.Errorf("load motor state: %w", err)
	}
	return c, nil
}

// Sample runs one sampling operation and returns the persisted reading.
// On synthesis or persistence failure nothing is broadcast, the in-memory
// state does not advance, and the error carries the failure kind
// (telemetry.SynthesisError or store.ErrUnavailable) for the caller.
func (c *Coordinator) Sample(ctx context.Context) (telemetry.Reading, error) {
	start := c.now()
	r, err := c.sample(ctx, start)
	if c.onSample != nil {
		c.onSample(err, c.now().Sub(start))
	}
	return r, err
}

func (c *Coordinator) sample(ctx context.Context, now time.Time) (telemetry.Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dt := time.Second
	if !c.lastSample.IsZero() {
		if d := now.Sub(c.lastSample); d > 0 {
			dt = d
		}
	}

	reading, next, err := c.synth.Next(c.state, dt, now)
	if err != nil {
		c.log.Error("synthesis failed", "err", err)
		return telemetry.Reading{}, fmt.Errorf("synthesize reading: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	defer cancel()
	saved, err := c.store.Append(pctx, reading, next)
	if err != nil {
		c.log.Error("persist failed", "err", err)
		return telemetry.Reading{}, fmt.Errorf("persist reading: %w", err)
	}

	c.state = next
	c.lastSample = now

	// Broadcast inside the critical section so readings leave in persist
	// order; the hub never blocks on subscribers.
	c.bus.PublishReading(saved)

	if alert, ok := c.deriveAlert(saved); ok {
		c.bus.PublishAlert(alert)
		if c.alerts != nil {
			if err := c.alerts.WriteAlert(alert); err != nil {
				c.log.Warn("alert mirror write failed", "err", err)
			}
		}
	}
	c.lastStatus = saved.Status

	if c.mirror != nil {
		if err := c.mirror.Write(saved); err != nil {
			c.log.Warn("mirror write failed", "err", err)
		}
	}
	return saved, nil
}

// statusRank orders statuses by severity for escalation detection.
var statusRank = map[telemetry.Status]int{
	telemetry.StatusNormal:      0,
	telemetry.StatusWarning:     1,
	telemetry.StatusMaintenance: 2,
	telemetry.StatusCritical:    3,
}

// deriveAlert emits an alert only when the status worsens; recovery
// transitions are visible through the reading stream, not alerts.
func (c *Coordinator) deriveAlert(r telemetry.Reading) (telemetry.Alert, bool) {
	if statusRank[r.Status] <= statusRank[c.lastStatus] {
		return telemetry.Alert{}, false
	}
	severity := telemetry.SeverityWarning
	if r.Status == telemetry.StatusCritical {
		severity = telemetry.SeverityCritical
	}
	return telemetry.Alert{
		ID:        uuid.New().String(),
		MachineID: r.MachineID,
		Severity:  severity,
		Message:   fmt.Sprintf("status changed to %s (temperature %d°C, speed %d RPM)", r.Status, r.Temperature, r.Speed),
		Timestamp: r.Timestamp,
	}, true
}

// MachineID returns the machine this coordinator samples.
func (c *Coordinator) MachineID() string {
	return c.machineID
}

// State returns a copy of the current carry-over state.
func (c *Coordinator) State() telemetry.MotorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastStatus returns the most recently broadcast status.
func (c *Coordinator) LastStatus() telemetry.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

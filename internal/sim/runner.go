package sim

import (
	"context"
	"time"

	"motorsync/internal/logging"
	"motorsync/internal/telemetry"
)

// Runner drives periodic sampling across all configured machines. Each
// machine keeps its own coordinator; no cross-machine ordering exists.
type Runner struct {
	coords       []*Coordinator
	tickInterval time.Duration
}

// NewRunner creates a runner over a set of coordinators.
func NewRunner(coords []*Coordinator, tickInterval time.Duration) *Runner {
	return &Runner{coords: coords, tickInterval: tickInterval}
}

// Run samples every machine once per tick until ctx is done. A failed
// sample is logged and the loop continues; the next tick retries.
func (r *Runner) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting sampler", "tick_interval", r.tickInterval, "machines", len(r.coords))
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range r.coords {
				if _, err := c.Sample(ctx); err != nil {
					log.Error("sample failed", "machine", c.MachineID(), "err", err)
				}
			}
		case <-ctx.Done():
			log.Info("stopping sampler")
			return
		}
	}
}

// Coordinator returns the coordinator for a machine id, or nil.
func (r *Runner) Coordinator(machineID string) *Coordinator {
	for _, c := range r.coords {
		if c.MachineID() == machineID {
			return c
		}
	}
	return nil
}

// Coordinators returns all coordinators.
func (r *Runner) Coordinators() []*Coordinator {
	return r.coords
}

// MachineHealth summarizes the latest per-machine status.
type MachineHealth struct {
	MachineID     string           `json:"machineId"`
	Status        telemetry.Status `json:"status"`
	BearingWear   float64          `json:"bearingWear"`
	OperatingSecs float64          `json:"operatingSecs"`
}

// Health returns the latest status snapshot for every machine.
func (r *Runner) Health() []MachineHealth {
	out := make([]MachineHealth, 0, len(r.coords))
	for _, c := range r.coords {
		st := c.State()
		out = append(out, MachineHealth{
			MachineID:     c.MachineID(),
			Status:        c.LastStatus(),
			BearingWear:   st.BearingWear,
			OperatingSecs: st.OperatingSecs,
		})
	}
	return out
}

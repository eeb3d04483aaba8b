package sim

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"motorsync/internal/telemetry"
)

// GreptimeDBWriter mirrors readings into GreptimeDB for long-horizon
// analytics. The SQLite store stays the source of truth; this sink is
// best-effort.
type GreptimeDBWriter struct {
	client *greptime.Client
	table  string
	log    *slog.Logger
}

// NewGreptimeDBWriter creates the writer. The table itself is
// auto-created by GreptimeDB on first write, with a 30d TTL hint.
func NewGreptimeDBWriter(endpoint, database, tableName string, log *slog.Logger) (*GreptimeDBWriter, error) {
	if tableName == "" {
		tableName = "motor_readings"
	}
	cfg := greptime.NewConfig(hostOf(endpoint)).WithDatabase(database)
	if _, portStr, err := net.SplitHostPort(endpoint); err == nil {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg = cfg.WithPort(port)
		}
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &GreptimeDBWriter{client: client, table: tableName, log: log}, nil
}

func hostOf(endpoint string) string {
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}
	return endpoint
}

// Write inserts a single reading.
func (w *GreptimeDBWriter) Write(r telemetry.Reading) error {
	return w.WriteBatch([]telemetry.Reading{r})
}

// WriteBatch inserts multiple readings.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.Reading) error {
	if len(rows) == 0 {
		return nil
	}

	// The ingester client is write-only: tables are auto-created on
	// first write, and the ttl hint carries the 30d retention.
	ctx := ingesterContext.New(context.Background(),
		ingesterContext.WithHint([]*ingesterContext.Hint{{Key: "ttl", Value: "30d"}}))

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("machine_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("speed", types.INT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("temperature", types.INT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("status", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("efficiency", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("vibration_x", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("bearing_wear", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("oil_degradation", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	for _, r := range rows {
		if err := tbl.AddRow(
			r.MachineID,
			int64(r.Speed),
			int64(r.Temperature),
			string(r.Status),
			deref(r.Efficiency),
			deref(r.VibrationX),
			100-deref(r.BearingHealth),
			deref(r.OilDegradation),
			r.Timestamp,
		); err != nil {
			return err
		}
	}

	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.log.Error("greptime write failed", "err", err)
		return err
	}
	w.log.Debug("greptime wrote rows", "count", len(rows))
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

package main

import (
	"log/slog"

	"motorsync/internal/bridge"
	"motorsync/internal/config"
	"motorsync/internal/sim"
)

// newMirrorWriters sets up the optional best-effort mirrors: GreptimeDB,
// MQTT bridge, JSONL log export, or STDOUT. Returns nil mirrors when
// nothing is configured, plus a cleanup to close any resources.
func newMirrorWriters(cfg *config.Config, printOnly bool, log *slog.Logger) (sim.ReadingWriter, sim.AlertWriter, func(), error) {
	cleanup := func() {}

	if printOnly {
		sw := sim.NewStdoutWriter()
		return sw, sw, cleanup, nil
	}

	var readers []sim.ReadingWriter
	var alerters []sim.AlertWriter
	var closers []func()

	if cfg.Greptime != nil && cfg.Greptime.Endpoint != "" {
		gw, err := sim.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database, "motor_readings", log)
		if err != nil {
			return nil, nil, nil, err
		}
		readers = append(readers, gw)
	}
	if cfg.MQTT.Enabled {
		mb, err := bridge.NewMQTTBridge(cfg.MQTT.Addr, log)
		if err != nil {
			return nil, nil, nil, err
		}
		readers = append(readers, mb)
		alerters = append(alerters, mb)
		closers = append(closers, func() { mb.Close() })
	}
	if cfg.LogFile != "" {
		fw, err := sim.NewFileWriter(cfg.LogFile, cfg.LogFile+".alerts")
		if err != nil {
			return nil, nil, nil, err
		}
		readers = append(readers, fw)
		alerters = append(alerters, fw)
		closers = append(closers, func() { fw.Close() })
	}

	if len(closers) > 0 {
		cleanup = func() {
			for _, fn := range closers {
				fn()
			}
		}
	}

	switch {
	case len(readers) == 0:
		return nil, nil, cleanup, nil
	case len(readers) == 1 && len(alerters) <= 1:
		var aw sim.AlertWriter
		if len(alerters) == 1 {
			aw = alerters[0]
		}
		return readers[0], aw, cleanup, nil
	default:
		mw := sim.NewMultiWriter(readers, alerters)
		return mw, mw, cleanup, nil
	}
}

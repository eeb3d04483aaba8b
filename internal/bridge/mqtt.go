// Package bridge republishes finalized readings to external consumers
// over an embedded MQTT broker.
package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"

	"motorsync/internal/telemetry"
)

// Topic layout under the broker.
const (
	readingTopicFmt = "motorsync/%s/readings"
	alertTopicFmt   = "motorsync/%s/alerts"
)

// MQTTBridge runs an embedded broker and mirrors every persisted reading
// and alert onto per-machine topics. It plugs into a coordinator as a
// best-effort mirror writer.
type MQTTBridge struct {
	server *mqtt.Server
	log    *slog.Logger
}

// NewMQTTBridge starts a broker listening on addr (host:port).
func NewMQTTBridge(addr string, log *slog.Logger) (*MQTTBridge, error) {
	server := mqtt.New(&mqtt.Options{InlineClient: true})
	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "motorsync", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("add tcp listener: %w", err)
	}

	b := &MQTTBridge{server: server, log: log}
	go func() {
		if err := server.Serve(); err != nil {
			log.Error("mqtt broker stopped", "err", err)
		}
	}()
	log.Info("mqtt bridge listening", "addr", addr)
	return b, nil
}

// Write republishes one reading on motorsync/<machine>/readings.
func (b *MQTTBridge) Write(r telemetry.Reading) error {
	return b.publish(fmt.Sprintf(readingTopicFmt, r.MachineID), r)
}

// WriteBatch republishes a replay batch reading by reading.
func (b *MQTTBridge) WriteBatch(rows []telemetry.Reading) error {
	for _, r := range rows {
		if err := b.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert republishes one alert on motorsync/<machine>/alerts. Alerts
// are retained so a late subscriber sees the most recent condition.
func (b *MQTTBridge) WriteAlert(a telemetry.Alert) error {
	topic := fmt.Sprintf(alertTopicFmt, a.MachineID)
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	return b.server.Publish(topic, payload, true, 0)
}

func (b *MQTTBridge) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return b.server.Publish(topic, payload, false, 0)
}

// Close shuts the broker down.
func (b *MQTTBridge) Close() error {
	return b.server.Close()
}

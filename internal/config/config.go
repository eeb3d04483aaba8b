// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"motorsync/internal/telemetry"
)

// Duration wraps time.Duration so YAML values like "500ms" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Machine defines one simulated motor and which optional sensor groups
// it reports.
type Machine struct {
	ID      string   `yaml:"id"`
	Seed    int64    `yaml:"seed"`
	Sensors []string `yaml:"sensors"`
}

// Profile maps the configured sensor group names onto a SensorProfile.
func (m Machine) Profile() telemetry.SensorProfile {
	var p telemetry.SensorProfile
	for _, s := range m.Sensors {
		switch s {
		case "electrical":
			p.Electrical = true
		case "hydraulic":
			p.Hydraulic = true
		case "environmental":
			p.Environmental = true
		case "strain":
			p.Strain = true
		case "acoustic":
			p.Acoustic = true
		}
	}
	return p
}

// Store configures the sample store.
type Store struct {
	Path string `yaml:"path"` // empty selects the in-memory store
}

// Server configures the HTTP surface.
type Server struct {
	Addr         string `yaml:"addr"`
	AdminToken   string `yaml:"admin_token"`
	HistoryLimit int    `yaml:"history_limit"`
}

// Client configures reconnect behavior of stream consumers.
type Client struct {
	Cap            int      `yaml:"cap"`
	BackoffInitial Duration `yaml:"backoff_initial"`
	BackoffMax     Duration `yaml:"backoff_max"`
}

// Greptime configures the optional time-series mirror.
type Greptime struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
}

// MQTT configures the optional embedded broker bridge.
type MQTT struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	Machines  []Machine `yaml:"machines"`
	Tick      Duration  `yaml:"tick"`
	Heartbeat Duration  `yaml:"heartbeat"`
	Store     Store     `yaml:"store"`
	Server    Server    `yaml:"server"`
	Client    Client    `yaml:"client"`
	Greptime  *Greptime `yaml:"greptime,omitempty"`
	MQTT      MQTT      `yaml:"mqtt"`
	LogFile   string    `yaml:"log_file"`
}

// Load loads YAML config and validates it against a CUE schema.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if len(cfg.Machines) == 0 {
		return nil, fmt.Errorf("config defines no machines")
	}
	seen := map[string]bool{}
	for _, m := range cfg.Machines {
		if m.ID == "" {
			return nil, fmt.Errorf("machine with empty id")
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate machine id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Tick == 0 {
		c.Tick = Duration(time.Second)
	}
	if c.Heartbeat == 0 {
		c.Heartbeat = Duration(15 * time.Second)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.HistoryLimit == 0 {
		c.Server.HistoryLimit = 50
	}
	if c.Client.Cap == 0 {
		c.Client.Cap = 200
	}
	if c.Client.BackoffInitial == 0 {
		c.Client.BackoffInitial = Duration(time.Second)
	}
	if c.Client.BackoffMax == 0 {
		c.Client.BackoffMax = Duration(30 * time.Second)
	}
	if c.MQTT.Enabled && c.MQTT.Addr == "" {
		c.MQTT.Addr = ":1883"
	}
}

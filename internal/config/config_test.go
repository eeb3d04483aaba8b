package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSchema = `
machines: [...{
	id:      string & !=""
	seed?:   int
	sensors?: [...("electrical" | "hydraulic" | "environmental" | "strain" | "acoustic")]
}]
tick?:      string
heartbeat?: string
`

func writeFiles(t *testing.T, yamlBody string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "motorsync.yaml")
	cuePath := filepath.Join(dir, "motorsync.cue")
	if err := os.WriteFile(cfgPath, []byte(yamlBody), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	if err := os.WriteFile(cuePath, []byte(testSchema), 0644); err != nil {
		t.Fatalf("failed to write temp schema: %v", err)
	}
	return cfgPath, cuePath
}

func TestLoadConfig_Valid(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `
machines:
  - id: motor-001
    seed: 42
    sensors: [electrical, hydraulic]
  - id: motor-002
tick: 500ms
server:
  addr: ":9090"
  admin_token: sekrit
mqtt:
  enabled: true
`)

	cfg, err := Load(cfgPath, cuePath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(cfg.Machines) != 2 || cfg.Machines[0].ID != "motor-001" {
		t.Errorf("unexpected machines: %+v", cfg.Machines)
	}
	if cfg.Tick.Std() != 500*time.Millisecond {
		t.Errorf("tick = %v, want 500ms", cfg.Tick.Std())
	}
	p := cfg.Machines[0].Profile()
	if !p.Electrical || !p.Hydraulic || p.Acoustic {
		t.Errorf("unexpected profile: %+v", p)
	}
	// Defaults fill in everything the file omits.
	if cfg.Client.Cap != 200 || cfg.Client.BackoffMax.Std() != 30*time.Second {
		t.Errorf("client defaults not applied: %+v", cfg.Client)
	}
	if cfg.MQTT.Addr != ":1883" {
		t.Errorf("mqtt addr default not applied: %q", cfg.MQTT.Addr)
	}
}

func TestLoadConfig_SchemaRejectsUnknownSensor(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `
machines:
  - id: motor-001
    sensors: [telepathy]
`)
	if _, err := Load(cfgPath, cuePath); err == nil {
		t.Fatal("expected schema validation error for unknown sensor group")
	}
}

func TestLoadConfig_DuplicateMachineID(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `
machines:
  - id: motor-001
  - id: motor-001
`)
	if _, err := Load(cfgPath, cuePath); err == nil {
		t.Fatal("expected error for duplicate machine id")
	}
}

func TestLoadConfig_NoMachines(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `
tick: 1s
`)
	if _, err := Load(cfgPath, cuePath); err == nil {
		t.Fatal("expected error for empty machine list")
	}
}

func TestLoadConfig_BadDuration(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `
machines:
  - id: motor-001
tick: fast
`)
	if _, err := Load(cfgPath, cuePath); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `reassign:
  min_observer_distance: 500
scheduler:
  interval: 45s
  crash_dir: /tmp/crashes
metrics:
  prometheus_addr: ":9102"
  sinks:
    - type: "nop"
logging:
  level: debug
  cycle_log:
    backend: sqlite
    path: cycles.db
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  use_tls: false
sentry:
  dsn: ""
  server_name: yard-1
world:
  path: world.yaml
  named_track_radius: 80
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"min_observer_distance", cfg.Reassign.MinObserverDistance, 500.0},
		{"car_separation default", cfg.Reassign.CarSeparation, 0.3},
		{"interval", cfg.Scheduler.Interval, 45 * time.Second},
		{"crash_dir", cfg.Scheduler.CrashDir, "/tmp/crashes"},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9102"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"level", cfg.Logging.Level, "debug"},
		{"cycle_log backend", cfg.Logging.CycleLog.Backend, "sqlite"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"request_topic default", cfg.MQTT.RequestTopic, "railjobs/tasks/request"},
		{"remote builder", cfg.RemoteBuilder(), true},
		{"server_name", cfg.Sentry.ServerName, "yard-1"},
		{"named_track_radius", cfg.World.NamedTrackRadius, 80.0},
		{"world separation", cfg.World.CarSeparation, 0.3},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"world":{"path":"world.yaml"}}`)
	t.Setenv("K_SCHEDULER__CRON", "*/10 * * * *")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Scheduler.Cron != "*/10 * * * *" {
		t.Fatalf("env override not applied: %q", cfg.Scheduler.Cron)
	}
	if cfg.RemoteBuilder() {
		t.Fatalf("no broker configured, expected local builder")
	}
	if cfg.Logging.CycleLog.Backend != "rotating" {
		t.Fatalf("unexpected cycle log backend %q", cfg.Logging.CycleLog.Backend)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"missing world":  `scheduler: {interval: 30s}`,
		"bad level":      "world: {path: w.yaml}\nlogging: {level: loud}",
		"bad cron":       "world: {path: w.yaml}\nscheduler: {cron: sometimes}",
		"bad backend":    "world: {path: w.yaml}\nlogging: {cycle_log: {backend: bolt}}",
		"negative range": "world: {path: w.yaml}\nreassign: {min_observer_distance: -1}",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, "config.yaml", data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := Load(writeConfig(t, "config.toml", "")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if cfg.RemoteBuilder() {
		t.Fatal("example config should build tasks in memory")
	}
	if cfg.Logging.CycleLog.Backend != "rotating" {
		t.Fatalf("unexpected cycle log backend %q", cfg.Logging.CycleLog.Backend)
	}
}

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/core/reassign"
	"github.com/kilianp07/railjobs/core/scheduler"
	"github.com/kilianp07/railjobs/infra/mqtt"
	"github.com/kilianp07/railjobs/simulator"
)

type Config struct {
	Reassign  reassign.Config  `json:"reassign"`
	Scheduler scheduler.Config `json:"scheduler"`
	Metrics   metrics.Config   `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
	API       APIConfig        `json:"api"`
	// MQTT hands proposals to a remote host when Broker is set. Tasks are
	// built inside the simulated world otherwise.
	MQTT   mqtt.Config      `json:"mqtt"`
	Sentry SentryConfig     `json:"sentry"`
	World  simulator.Config `json:"world"`
}

// RemoteBuilder reports whether tasks are built over MQTT.
func (c Config) RemoteBuilder() bool { return c.MQTT.Broker != "" }

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Reassign.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Logging.SetDefaults()
	c.World.SetDefaults()
	if c.World.CarSeparation == 0 {
		c.World.CarSeparation = c.Reassign.CarSeparation
	}
	if c.RemoteBuilder() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"reassign", c.Reassign.Validate},
		{"scheduler", c.Scheduler.Validate},
		{"logging", c.Logging.Validate},
		{"world", c.World.Validate},
	}
	if c.RemoteBuilder() {
		checks = append(checks, struct {
			name string
			fn   func() error
		}{"mqtt", c.MQTT.Validate})
	}
	for _, ck := range checks {
		if err := ck.fn(); err != nil {
			return fmt.Errorf("config %s: %w", ck.name, err)
		}
	}
	return nil
}

// Load reads a YAML or JSON file, applies K_ environment overrides
// (K_SCHEDULER__INTERVAL=30s sets scheduler.interval), then defaults and
// validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

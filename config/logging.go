package config

import (
	"fmt"
	"strings"

	"github.com/kilianp07/railjobs/core/cyclelog"
)

// LoggingConfig covers application logs and the cycle log store.
type LoggingConfig struct {
	// Level is a zerolog level name. LOG_LEVEL applies when empty.
	Level string `json:"level"`
	// Console switches to human readable output.
	Console  bool            `json:"console"`
	CycleLog cyclelog.Config `json:"cycle_log"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	c.CycleLog.SetDefaults()
}

// Validate checks the level name and the cycle log store.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Level)
	}
	return c.CycleLog.Validate()
}

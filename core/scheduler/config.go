package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config controls when cycles run.
type Config struct {
	// Interval between cycles. Ignored when Cron is set.
	Interval time.Duration `json:"interval"`
	// Cron is a standard five-field cron expression.
	Cron string `json:"cron"`
	// CrashDir receives crash reports of aborted cycles.
	CrashDir string `json:"crash_dir"`
	// CrashMaxSizeMB rotates the crash report file.
	CrashMaxSizeMB int `json:"crash_max_size_mb"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Interval <= 0 && c.Cron == "" {
		c.Interval = 60 * time.Second
	}
	if c.CrashDir == "" {
		c.CrashDir = "crashes"
	}
	if c.CrashMaxSizeMB <= 0 {
		c.CrashMaxSizeMB = 5
	}
}

// Validate checks that a schedule can be built.
func (c Config) Validate() error {
	_, err := c.schedule()
	return err
}

func (c Config) schedule() (cron.Schedule, error) {
	if c.Cron != "" {
		s, err := cron.ParseStandard(c.Cron)
		if err != nil {
			return nil, fmt.Errorf("scheduler.cron: %w", err)
		}
		return s, nil
	}
	if c.Interval < time.Second {
		return nil, fmt.Errorf("scheduler.interval must be at least 1s, got %s", c.Interval)
	}
	return cron.Every(c.Interval), nil
}

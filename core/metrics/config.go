package metrics

import "github.com/kilianp07/railjobs/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr serves /metrics when set, e.g. ":9102".
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
}

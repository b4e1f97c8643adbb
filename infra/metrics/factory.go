package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/railjobs/auth"
	"github.com/kilianp07/railjobs/core/factory"
	coremetrics "github.com/kilianp07/railjobs/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.CycleSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.CycleSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.CycleSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})

	_ = coremetrics.RegisterMetricsSink("webhook", func(conf map[string]any) (coremetrics.CycleSink, error) {
		var c struct {
			URL     string        `json:"url"`
			Timeout time.Duration `json:"timeout"`
			Auth    auth.Conf     `json:"auth"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, fmt.Errorf("webhook: url is required")
		}
		if err := c.Auth.Validate(); err != nil {
			return nil, err
		}
		return NewWebhookSink(c.URL, c.Auth, c.Timeout), nil
	})
}

package metrics_test

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/railjobs/core/factory"
	metrics "github.com/kilianp07/railjobs/core/metrics"
	_ "github.com/kilianp07/railjobs/infra/metrics"
)

type labelled struct {
	metrics.NopSink
	Label string
}

func init() {
	_ = metrics.RegisterMetricsSink("labelled", func(conf map[string]any) (metrics.CycleSink, error) {
		var c struct {
			Label string `json:"label"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return labelled{Label: c.Label}, nil
	})
}

func TestNewMetricsSinkDefaultsToNop(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	if _, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestMetricsConfigDecodeYAML(t *testing.T) {
	data := `prometheus_addr: ":9102"
sinks:
  - type: nop
  - type: labelled
    conf:
      label: yard
`
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}
	if l, ok := m.Sinks[1].(labelled); !ok || l.Label != "yard" {
		t.Fatalf("conf not decoded: %#v", m.Sinks[1])
	}
}

func TestMetricsConfigDecodeJSONSingle(t *testing.T) {
	data := `{"sinks":[{"type":"labelled","conf":{"label":"x"}}]}`
	var cfg metrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(labelled); !ok {
		t.Fatalf("single sink should not be wrapped, got %T", s)
	}
}

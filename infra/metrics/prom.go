package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/railjobs/core/metrics"
)

// PromSink exposes per-route task and per-station drop counters. Engine
// internals such as phase durations are registered by core/reassign itself.
type PromSink struct {
	lastCycle *prometheus.GaugeVec
	tasks     *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// NewPromSink registers the sink collectors on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the sink collectors on reg. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	lastCycle := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "railjobs_last_cycle",
		Help: "Figures of the most recent reassignment cycle",
	}, []string{"figure"})
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "railjobs_route_tasks_total",
		Help: "Proposals handed to the task builder per route",
	}, []string{"kind", "source", "destination", "declined"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "railjobs_station_dropped_cars_total",
		Help: "Cars left idle per station and reason",
	}, []string{"station", "reason"})

	var err error
	if lastCycle, err = register(reg, lastCycle); err != nil {
		return nil, err
	}
	if tasks, err = register(reg, tasks); err != nil {
		return nil, err
	}
	if dropped, err = register(reg, dropped); err != nil {
		return nil, err
	}
	return &PromSink{lastCycle: lastCycle, tasks: tasks, dropped: dropped}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle publishes the figures of the last cycle.
func (s *PromSink) RecordCycle(r coremetrics.CycleReport) error {
	s.lastCycle.WithLabelValues("timestamp_seconds").Set(float64(r.Time.Unix()))
	s.lastCycle.WithLabelValues("consumed_cars").Set(float64(r.Consumed))
	s.lastCycle.WithLabelValues("deleted_cars").Set(float64(r.Deleted))
	s.lastCycle.WithLabelValues("tasks").Set(float64(r.Tasks))
	s.lastCycle.WithLabelValues("duration_seconds").Set(r.Duration.Seconds())
	return nil
}

// RecordTask counts a task on its route.
func (s *PromSink) RecordTask(r coremetrics.TaskRecord) error {
	s.tasks.WithLabelValues(r.Kind.String(), string(r.Source), string(r.Destination), strconv.FormatBool(r.Declined)).Inc()
	return nil
}

// RecordDroppedRun counts cars left idle at a station.
func (s *PromSink) RecordDroppedRun(r coremetrics.DroppedRunRecord) error {
	station := string(r.Station)
	if station == "" {
		station = "none"
	}
	s.dropped.WithLabelValues(station, r.Reason).Add(float64(r.Cars))
	return nil
}

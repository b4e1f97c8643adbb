package reassign

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cyclesTotal    *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	phaseDuration  *prometheus.HistogramVec
	proposalsTotal *prometheus.CounterVec
	tasksTotal     *prometheus.CounterVec
	droppedRuns    *prometheus.CounterVec
	carsConsumed   prometheus.Counter
	carsDeleted    prometheus.Counter
)

type collectors struct {
	cycles    *prometheus.CounterVec
	duration  prometheus.Histogram
	phases    *prometheus.HistogramVec
	proposals *prometheus.CounterVec
	tasks     *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	consumed  prometheus.Counter
	deleted   prometheus.Counter
}

// newCollectors creates new metric collectors.
func newCollectors() collectors {
	return collectors{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reassign_cycles_total",
			Help: "Number of reassignment cycles by outcome",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reassign_cycle_duration_seconds",
			Help:    "Wall-clock duration of reassignment cycles",
			Buckets: prometheus.DefBuckets,
		}),
		phases: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reassign_phase_duration_seconds",
			Help:    "Duration of each cycle phase",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reassign_proposals_total",
			Help: "Number of task proposals emitted by kind",
		}, []string{"kind"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reassign_tasks_total",
			Help: "Number of proposals handed to the task builder by kind and result",
		}, []string{"kind", "result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reassign_dropped_runs_total",
			Help: "Number of runs left idle by reason",
		}, []string{"reason"}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reassign_cars_consumed_total",
			Help: "Number of idle cars assigned to new tasks",
		}),
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reassign_cars_deleted_total",
			Help: "Number of idle non-regular cars deleted",
		}),
	}
}

func (c collectors) install() {
	cyclesTotal, cycleDuration, phaseDuration = c.cycles, c.duration, c.phases
	proposalsTotal, tasksTotal, droppedRuns = c.proposals, c.tasks, c.dropped
	carsConsumed, carsDeleted = c.consumed, c.deleted
}

func init() {
	newCollectors().install()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers reassignment metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cyclesTotal, cycleDuration, phaseDuration, proposalsTotal, tasksTotal, droppedRuns, carsConsumed, carsDeleted)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	newCollectors().install()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

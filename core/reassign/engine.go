package reassign

import (
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/logger"
	"github.com/kilianp07/railjobs/internal/eventbus"
)

// Phase is the state of a reassignment cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFiltering
	PhaseGrouping
	PhaseClassifying
	PhaseBatching
	PhaseFinalizing
)

func (p Phase) String() string {
	switch p {
	case PhaseFiltering:
		return "filtering"
	case PhaseGrouping:
		return "grouping"
	case PhaseClassifying:
		return "classifying"
	case PhaseBatching:
		return "batching"
	case PhaseFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// Yielder is invoked between phases to hand control back to the host loop.
type Yielder interface {
	Yield(p Phase)
}

// YieldFunc adapts a function to Yielder.
type YieldFunc func(Phase)

func (f YieldFunc) Yield(p Phase) { f(p) }

// GoschedYielder yields the processor between phases.
var GoschedYielder Yielder = YieldFunc(func(Phase) { runtime.Gosched() })

// Deps groups the host collaborators required by the engine.
type Deps struct {
	World    host.World
	Idle     host.IdleList
	Consists host.Consists
	Observer host.Observer
	Builder  host.TaskBuilder
	// Owner is optional.
	Owner host.OwnershipConverter
}

// Engine runs reassignment cycles. Cycles must not overlap; the scheduler
// owns the single goroutine that calls RunCycle or ReassignIdleCars.
type Engine struct {
	cfg        Config
	deps       Deps
	classifier Classifier
	logger     logger.Logger
	bus        eventbus.EventBus
	yield      Yielder
	newID      func() uuid.UUID
}

// Option configures an Engine.
type Option func(*Engine)

// WithSpecialCars installs the optional special-car strategy. It is resolved
// once here and never per cycle.
func WithSpecialCars(s host.SpecialCarStrategy) Option {
	return func(e *Engine) { e.classifier.Special = s }
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEventBus publishes cycle events on b.
func WithEventBus(b eventbus.EventBus) Option {
	return func(e *Engine) { e.bus = b }
}

// WithYielder replaces the default GoschedYielder.
func WithYielder(y Yielder) Option {
	return func(e *Engine) {
		if y != nil {
			e.yield = y
		}
	}
}

// WithIDGenerator overrides proposal ID generation.
func WithIDGenerator(f func() uuid.UUID) Option {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

// New creates an engine. World, Idle, Consists, Observer and Builder are required.
func New(cfg Config, deps Deps, opts ...Option) (*Engine, error) {
	if deps.World == nil || deps.Idle == nil || deps.Consists == nil || deps.Observer == nil || deps.Builder == nil {
		return nil, fmt.Errorf("reassign: nil dependency provided to New")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:    cfg,
		deps:   deps,
		logger: logger.NopLogger{},
		yield:  GoschedYielder,
		newID:  uuid.New,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Classifier returns the classifier used by the engine.
func (e *Engine) Classifier() Classifier { return e.classifier }

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/railjobs/api/cars"
	"github.com/kilianp07/railjobs/api/cycles"
	"github.com/kilianp07/railjobs/app/plugins"
	"github.com/kilianp07/railjobs/config"
	"github.com/kilianp07/railjobs/core/cyclelog"
	coremetrics "github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/core/monitoring"
	"github.com/kilianp07/railjobs/core/reassign"
	"github.com/kilianp07/railjobs/core/scheduler"
	"github.com/kilianp07/railjobs/infra/logger"
	"github.com/kilianp07/railjobs/infra/metrics"
	inframon "github.com/kilianp07/railjobs/infra/monitoring"
	"github.com/kilianp07/railjobs/internal/eventbus"
	"github.com/kilianp07/railjobs/simulator"
)

// Service wires the engine, its simulated host and the ambient stack.
type Service struct {
	cfg       *config.Config
	World     *simulator.World
	Engine    *reassign.Engine
	Scheduler *scheduler.Scheduler
	bus       *eventbus.Bus
	sink      coremetrics.CycleSink
	store     cyclelog.Store
	release   func()
	log       logger.Logger
}

func (s *Service) componentLogger(component string) logger.Logger {
	return logger.NewWithOptions(component, logger.Options{Level: s.cfg.Logging.Level, Console: s.cfg.Logging.Console})
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	s := &Service{cfg: cfg}
	s.log = s.componentLogger("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	monitoring.Init(mon)

	if s.World, err = simulator.Load(cfg.World); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	name := "memory"
	if cfg.RemoteBuilder() {
		name = "mqtt"
	}
	factory, err := plugins.Builder(name)
	if err != nil {
		return nil, err
	}
	builder, release, err := factory(cfg, s.World)
	if err != nil {
		return nil, fmt.Errorf("%s task builder: %w", name, err)
	}
	s.release = release

	s.bus = eventbus.New()
	s.Engine, err = reassign.New(cfg.Reassign, reassign.Deps{
		World:    s.World,
		Idle:     s.World,
		Consists: s.World,
		Observer: s.World,
		Builder:  builder,
		Owner:    s.World,
	},
		reassign.WithSpecialCars(plugins.Specials["platform"](cfg, s.World)),
		reassign.WithLogger(s.componentLogger("reassign")),
		reassign.WithEventBus(s.bus),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		s.Close()
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	if s.store, err = cyclelog.Open(cfg.Logging.CycleLog); err != nil {
		s.Close()
		return nil, fmt.Errorf("cycle log: %w", err)
	}
	s.Scheduler, err = scheduler.New(cfg.Scheduler, s.Engine, s.World,
		scheduler.WithLogger(s.componentLogger("scheduler")),
		scheduler.WithCycleLog(s.store),
		scheduler.WithMonitor(mon),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	s.log.Infof("service ready with %s task builder", name)
	return s, nil
}

// Run starts the metrics pipeline and the scheduler and blocks until the
// context is canceled. A disabled scheduler keeps the process alive so
// metrics stay reachable.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink, s.componentLogger("metrics"))
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			err := monitoring.Safe("prometheus", func() error {
				return metrics.StartPromServer(ctx, addr, s.componentLogger("prometheus"), s.Routes()...)
			})
			if err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	err := s.Scheduler.Run(ctx)
	if errors.Is(err, scheduler.ErrDisabled) {
		s.log.Errorf("reassignment stopped until restart")
		<-ctx.Done()
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Routes returns the HTTP API mounted next to /metrics.
func (s *Service) Routes() []metrics.Route {
	if s.cfg.API.Disabled {
		return nil
	}
	token := s.cfg.API.Token
	return []metrics.Route{
		{Pattern: "/api/cycles", Handler: cycles.NewHistoryHandler(s.store, token)},
		{Pattern: "/api/cycles/regenerate", Handler: cycles.NewRegenerateHandler(s.Regenerate, token)},
		{Pattern: "/api/cars/idle", Handler: cars.NewIdleHandler(s.World, s.Engine.Classifier())},
	}
}

// Regenerate runs a cycle now. Distance checks are skipped, as for a
// console-triggered regeneration.
func (s *Service) Regenerate(ctx context.Context, seed int64, ignore []model.CarID) (reassign.CycleResult, error) {
	return s.Scheduler.Trigger(ctx, reassign.CycleOptions{
		Seed:              seed,
		SkipDistanceCheck: true,
		Ignore:            ignore,
		Trigger:           "manual",
	})
}

// RegenerateConsist reassigns the consist of one car. A zero seed is drawn
// by the scheduler.
func (s *Service) RegenerateConsist(ctx context.Context, id model.CarID, seed int64) ([]model.Car, error) {
	cs, ok := s.World.ConsistOf(id)
	if !ok {
		return nil, fmt.Errorf("car %s not found", id)
	}
	res, err := s.Scheduler.TriggerConsists(ctx, []model.Consist{cs}, reassign.CycleOptions{Seed: seed})
	return res.Consumed, err
}

// Classify returns the reassign status of one car.
func (s *Service) Classify(id model.CarID) (model.ReassignStatus, error) {
	car, ok := s.World.Car(id)
	if !ok {
		return 0, fmt.Errorf("car %s not found", id)
	}
	return s.Engine.Classifier().Classify(car), nil
}

// History queries the cycle log.
func (s *Service) History(ctx context.Context, q cyclelog.Query) ([]cyclelog.Record, error) {
	return s.store.Query(ctx, q)
}

// SaveWorld writes the current world state back to path.
func (s *Service) SaveWorld(path string) error {
	return simulator.WriteFile(path, s.World.File())
}

// Close releases resources held by the service.
func (s *Service) Close() {
	if s.release != nil {
		s.release()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Warnf("close cycle log: %v", err)
		}
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}
	monitoring.Flush(2 * time.Second)
}

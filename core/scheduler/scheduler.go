package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/railjobs/core/cyclelog"
	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/logger"
	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/core/monitoring"
	"github.com/kilianp07/railjobs/core/reassign"
)

// ErrDisabled is returned once a fatal cycle failure stopped the scheduler.
var ErrDisabled = errors.New("scheduler: disabled after a fatal cycle error")

// ErrSkipped is returned by Tick when the observer state forbids a cycle.
var ErrSkipped = errors.New("scheduler: tick skipped")

// Runner runs reassignment cycles. It is implemented by *reassign.Engine.
type Runner interface {
	RunCycle(ctx context.Context, opts reassign.CycleOptions) (reassign.CycleResult, error)
	ReassignConsists(ctx context.Context, consists []model.Consist, opts reassign.CycleOptions) (reassign.CycleResult, error)
}

// Scheduler owns the only goroutine that runs cycles.
type Scheduler struct {
	cfg      Config
	schedule cron.Schedule
	runner   Runner
	observer host.Observer
	log      logger.Logger
	store    cyclelog.Store
	crash    io.Writer
	monitor  monitoring.Monitor
	seed     func() int64
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time

	mu       sync.Mutex
	disabled atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCycleLog appends every cycle to store.
func WithCycleLog(store cyclelog.Store) Option {
	return func(s *Scheduler) { s.store = store }
}

// WithCrashWriter replaces the rotating crash report file.
func WithCrashWriter(w io.Writer) Option {
	return func(s *Scheduler) { s.crash = w }
}

// WithMonitor replaces the global monitor.
func WithMonitor(m monitoring.Monitor) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.monitor = m
		}
	}
}

// WithSeedSource overrides the per-cycle seed generator.
func WithSeedSource(f func() int64) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.seed = f
		}
	}
}

// WithClock overrides the time source and timer used by Run.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
		if after != nil {
			s.after = after
		}
	}
}

// New creates a scheduler running cycles on runner.
func New(cfg Config, runner Runner, observer host.Observer, opts ...Option) (*Scheduler, error) {
	if runner == nil || observer == nil {
		return nil, fmt.Errorf("scheduler: nil dependency provided to New")
	}
	cfg.SetDefaults()
	sched, err := cfg.schedule()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		cfg:      cfg,
		schedule: sched,
		runner:   runner,
		observer: observer,
		log:      logger.NopLogger{},
		monitor:  monitoring.Current(),
		seed:     func() int64 { return time.Now().UnixNano() },
		now:      time.Now,
		after:    time.After,
	}
	for _, o := range opts {
		o(s)
	}
	if s.crash == nil {
		s.crash = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.CrashDir, "crash.log"),
			MaxSize:    cfg.CrashMaxSizeMB,
			MaxBackups: 3,
		}
	}
	return s, nil
}

// Run ticks on the configured schedule until ctx is done or the scheduler
// is disabled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(s.schedule.Next(now).Sub(now)):
		}
		_, err := s.Tick(ctx)
		if s.Disabled() {
			return ErrDisabled
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Tick runs one scheduled cycle unless the observer is absent or fast
// travelling.
func (s *Scheduler) Tick(ctx context.Context) (reassign.CycleResult, error) {
	if _, present := s.observer.Position(); !present {
		s.log.Debugf("no observer, skipping cycle")
		return reassign.CycleResult{}, ErrSkipped
	}
	if s.observer.FastTravelling() {
		s.log.Debugf("fast travel in progress, skipping cycle")
		return reassign.CycleResult{}, ErrSkipped
	}
	return s.Trigger(ctx, reassign.CycleOptions{Trigger: "schedule"})
}

// Trigger runs one cycle now with opts. Seed is drawn when zero. Calls never
// overlap with each other or with scheduled ticks.
func (s *Scheduler) Trigger(ctx context.Context, opts reassign.CycleOptions) (reassign.CycleResult, error) {
	return s.guard(ctx, opts, s.runner.RunCycle)
}

// TriggerConsists reassigns the given consists now, under the same lock and
// failure handling as Trigger. Trigger defaults to "consist".
func (s *Scheduler) TriggerConsists(ctx context.Context, consists []model.Consist, opts reassign.CycleOptions) (reassign.CycleResult, error) {
	if opts.Trigger == "" {
		opts.Trigger = "consist"
	}
	return s.guard(ctx, opts, func(ctx context.Context, opts reassign.CycleOptions) (reassign.CycleResult, error) {
		return s.runner.ReassignConsists(ctx, consists, opts)
	})
}

func (s *Scheduler) guard(ctx context.Context, opts reassign.CycleOptions, run func(context.Context, reassign.CycleOptions) (reassign.CycleResult, error)) (res reassign.CycleResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled.Load() {
		return reassign.CycleResult{}, ErrDisabled
	}
	if opts.Seed == 0 {
		opts.Seed = s.seed()
	}
	if opts.Trigger == "" {
		opts.Trigger = "manual"
	}
	defer func() {
		if r := recover(); r != nil {
			err = &reassign.CycleError{Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
			s.fail(opts, err)
		}
	}()
	res, err = run(ctx, opts)
	s.record(ctx, res, err)
	if err == nil || errors.Is(err, context.Canceled) {
		return res, err
	}
	s.fail(opts, err)
	return res, err
}

// Disabled reports whether a fatal error stopped the scheduler.
func (s *Scheduler) Disabled() bool { return s.disabled.Load() }

func (s *Scheduler) record(ctx context.Context, res reassign.CycleResult, err error) {
	if s.store == nil {
		return
	}
	// The cycle already ran; a cancelled parent must not lose its record.
	if aerr := s.store.Append(context.WithoutCancel(ctx), cyclelog.FromResult(res, err)); aerr != nil {
		s.log.Warnf("append cycle log: %v", aerr)
	}
}

func (s *Scheduler) fail(opts reassign.CycleOptions, err error) {
	s.disabled.Store(true)
	phase := "unknown"
	var stack []byte
	var ce *reassign.CycleError
	if errors.As(err, &ce) {
		phase = ce.Phase.String()
		stack = ce.Stack
	}
	s.log.Errorf("cycle %d aborted in %s, scheduler disabled until restart: %v", opts.Seed, phase, err)
	s.monitor.CaptureException(err,
		map[string]string{"module": "scheduler", "phase": phase, "trigger": opts.Trigger},
		map[string]any{"seed": strconv.FormatInt(opts.Seed, 10), "stack": string(stack)},
	)
	report := fmt.Sprintf("=== %s seed=%d trigger=%s phase=%s\n%v\n%s\n",
		s.now().UTC().Format(time.RFC3339), opts.Seed, opts.Trigger, phase, err, stack)
	if _, werr := io.WriteString(s.crash, report); werr != nil {
		s.log.Errorf("write crash report: %v", werr)
	}
}

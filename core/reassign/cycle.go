package reassign

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/railjobs/core/events"
	"github.com/kilianp07/railjobs/core/model"
)

// CycleOptions controls a cycle started from the idle list.
type CycleOptions struct {
	Seed int64
	// SkipDistanceCheck reassigns regular cars regardless of the observer.
	SkipDistanceCheck bool
	// Ignore skips every consist containing one of these cars.
	Ignore  []model.CarID
	Trigger string
}

// CycleResult summarises one cycle.
type CycleResult struct {
	Seed      int64                `json:"seed"`
	Trigger   string               `json:"trigger"`
	Started   time.Time            `json:"started"`
	Duration  time.Duration        `json:"duration"`
	Deleted   []model.Car          `json:"deleted,omitempty"`
	Proposals []model.TaskProposal `json:"proposals,omitempty"`
	Tasks     []model.Task         `json:"tasks,omitempty"`
	Consumed  []model.Car          `json:"consumed,omitempty"`
	Dropped   []DroppedRun         `json:"-"`
}

type stationBatch struct {
	station  model.Station
	consists []model.Consist
}

type stationWork struct {
	station   model.Station
	loadable  [][]loadableRun
	emptyHaul [][]CarRelations
	transport [][]CarRelations
	unload    [][]CarRelations
	special   [][]model.Car
}

// cycleState is owned by exactly one phase at a time. Each phase receives it
// and returns the state it produced.
type cycleState struct {
	phase      Phase
	seed       int64
	rng        *rand.Rand
	opts       CycleOptions
	fromIdle   bool
	index      *CargoIndex
	candidates []model.Car
	deleted    []model.Car
	consists   []model.Consist
	stations   []stationBatch
	work       []stationWork
	proposals  []model.TaskProposal
	tasks      []model.Task
	consumed   []model.Car
	dropped    []DroppedRun
}

func newCycleState(seed int64, opts CycleOptions) cycleState {
	opts.Seed = seed
	return cycleState{seed: seed, rng: rand.New(rand.NewSource(seed)), opts: opts}
}

type step struct {
	phase Phase
	run   func(context.Context, cycleState) (cycleState, error)
}

// RunCycle filters the idle list, deletes abandoned non-regular cars and
// reassigns the remaining consists.
func (e *Engine) RunCycle(ctx context.Context, opts CycleOptions) (CycleResult, error) {
	started := time.Now()
	st := newCycleState(opts.Seed, opts)
	st.fromIdle = true
	st, err := e.execute(ctx, st, []step{
		{PhaseFiltering, e.filter},
		{PhaseGrouping, e.group},
		{PhaseClassifying, e.classify},
		{PhaseBatching, e.batch},
		{PhaseFinalizing, e.finalize},
	})
	return e.report(st, started, err), err
}

// ReassignIdleCars runs one cycle over the given consists and returns the
// cars handed to new tasks.
func (e *Engine) ReassignIdleCars(ctx context.Context, consists []model.Consist, seed int64) ([]model.Car, error) {
	res, err := e.ReassignConsists(ctx, consists, CycleOptions{Seed: seed, Trigger: "direct"})
	return res.Consumed, err
}

// ReassignConsists is ReassignIdleCars with the full cycle report. The idle
// list is not consulted and no car is deleted.
func (e *Engine) ReassignConsists(ctx context.Context, consists []model.Consist, opts CycleOptions) (CycleResult, error) {
	started := time.Now()
	st := newCycleState(opts.Seed, opts)
	st.consists = consists
	st, err := e.execute(ctx, st, []step{
		{PhaseGrouping, e.group},
		{PhaseClassifying, e.classify},
		{PhaseBatching, e.batch},
		{PhaseFinalizing, e.finalize},
	})
	return e.report(st, started, err), err
}

func (e *Engine) execute(ctx context.Context, st cycleState, steps []step) (out cycleState, err error) {
	out = st
	defer func() {
		if r := recover(); r != nil {
			err = &CycleError{Phase: out.phase, Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()
	for _, s := range steps {
		out.phase = s.phase
		e.publish(events.PhaseEvent{Phase: s.phase.String(), Seed: out.seed})
		e.yield.Yield(s.phase)
		start := time.Now()
		next, perr := s.run(ctx, out)
		phaseDuration.WithLabelValues(s.phase.String()).Observe(time.Since(start).Seconds())
		out = next
		if perr != nil {
			return out, &CycleError{Phase: s.phase, Err: perr, Stack: debug.Stack()}
		}
	}
	out.phase = PhaseIdle
	return out, nil
}

func (e *Engine) farEnough(cars []model.Car) bool {
	pos, present := e.deps.Observer.Position()
	if !present {
		return true
	}
	limit := e.cfg.MinObserverDistance * e.cfg.MinObserverDistance
	for _, c := range cars {
		if r3.Norm2(r3.Sub(c.Position, pos)) < limit {
			return false
		}
	}
	return true
}

func (e *Engine) filter(_ context.Context, st cycleState) (cycleState, error) {
	ignore := idSet(st.opts.Ignore)
	var regular, doomed []model.Car
	for _, c := range e.deps.Idle.Snapshot() {
		if ignore[c.ID] {
			continue
		}
		if c.Regular {
			if !c.Derailed && (st.opts.SkipDistanceCheck || e.farEnough([]model.Car{c})) {
				regular = append(regular, c)
			}
			continue
		}
		if !c.ExternallyOwned && e.farEnough([]model.Car{c}) {
			doomed = append(doomed, c)
		}
	}
	e.logger.Infof("found %d regular cars to reassign and %d other cars to delete", len(regular), len(doomed))
	if len(doomed) > 0 {
		if err := e.deps.Idle.Delete(doomed); err != nil {
			return st, fmt.Errorf("delete non-regular cars: %w", err)
		}
		carsDeleted.Add(float64(len(doomed)))
		st.deleted = doomed
	}
	st.candidates = regular
	return st, nil
}

// consistsOfCandidates resolves the consists of filtered cars after deletion,
// so consists split by removed cars are seen as they are now.
func (e *Engine) consistsOfCandidates(st cycleState) []model.Consist {
	ignore := idSet(st.opts.Ignore)
	seen := map[model.ConsistID]bool{}
	var out []model.Consist
	for _, c := range st.candidates {
		cs, ok := e.deps.Consists.ConsistOf(c.ID)
		if !ok || seen[cs.ID] {
			continue
		}
		seen[cs.ID] = true
		if containsAny(cs.Cars, ignore) {
			continue
		}
		if !st.opts.SkipDistanceCheck && !e.farEnough(cs.Cars) {
			continue
		}
		out = append(out, cs)
	}
	e.logger.Infof("found %d consists to reassign", len(out))
	return out
}

func (e *Engine) group(_ context.Context, st cycleState) (cycleState, error) {
	st.index = NewCargoIndex(e.deps.World)
	if st.fromIdle {
		st.consists = e.consistsOfCandidates(st)
	}
	at := map[model.StationID]int{}
	for _, cs := range st.consists {
		var station model.Station
		track, ok := e.deps.World.NearestNamedTrack(cs.Cars)
		if ok {
			station, ok = st.index.Station(track.ID.Yard)
		}
		if !ok {
			e.abandon(&st, cs)
			continue
		}
		i, seen := at[station.ID]
		if !seen {
			i = len(st.stations)
			at[station.ID] = i
			st.stations = append(st.stations, stationBatch{station: station})
		}
		st.stations[i].consists = append(st.stations[i].consists, cs)
	}
	return st, nil
}

// abandon records the reassignable cars of a consist without a station.
func (e *Engine) abandon(st *cycleState, cs model.Consist) {
	var cars []model.Car
	for _, c := range cs.Cars {
		if s := e.classifier.Classify(c); s == model.StatusEmpty || s == model.StatusLoaded {
			cars = append(cars, c)
		}
	}
	if len(cars) == 0 {
		return
	}
	st.dropped = append(st.dropped, DroppedRun{
		Cars: cars,
		Err:  fmt.Errorf("%w: no named station track close to consist %s", ErrNoTrack, cs.ID),
	})
}

func (e *Engine) classify(_ context.Context, st cycleState) (cycleState, error) {
	for _, b := range st.stations {
		var empty, loaded, special [][]model.Car
		total := 0
		for _, cs := range b.consists {
			total += len(cs.Cars)
			for _, run := range e.classifier.PartitionByStatus(cs.Cars) {
				switch run.Key {
				case model.StatusEmpty:
					empty = append(empty, run.Items)
				case model.StatusLoaded:
					loaded = append(loaded, run.Items)
				case model.StatusSpecialCar:
					special = append(special, run.Items)
				}
			}
		}
		e.logger.Infof("station %s: %d cars in %d consists, %d empty runs, %d loaded runs, %d special runs",
			b.station.ID, total, len(b.consists), len(empty), len(loaded), len(special))
		w := stationWork{station: b.station, special: special}
		var droppedEmpty, droppedLoaded []DroppedRun
		w.loadable, w.emptyHaul, droppedEmpty = st.index.divideEmptyRuns(b.station, empty)
		w.unload, w.transport, droppedLoaded = st.index.divideLoadedRuns(b.station, loaded)
		st.dropped = append(st.dropped, droppedEmpty...)
		st.dropped = append(st.dropped, droppedLoaded...)
		st.work = append(st.work, w)
	}
	return st, nil
}

func (e *Engine) batch(_ context.Context, st cycleState) (cycleState, error) {
	for _, w := range st.work {
		var res batchResult
		if e.classifier.Special != nil {
			for _, run := range w.special {
				res.merge(e.specialCars(st.index, w.station, run, st.rng))
			}
		}
		for _, run := range w.emptyHaul {
			res.merge(e.emptyHaul(st.index, w.station, run, nil, st.rng))
		}
		for _, run := range w.transport {
			res.merge(e.transport(st.index, w.station, run, st.rng))
		}
		for _, run := range w.unload {
			res.merge(e.shuntingUnload(w.station, run, st.rng))
		}
		res.merge(e.shuntingLoads(st.index, w.station, w.loadable, st.rng))
		for _, p := range res.proposals {
			proposalsTotal.WithLabelValues(p.Kind.String()).Inc()
			e.publish(events.ProposalEvent{Proposal: p})
		}
		st.proposals = append(st.proposals, res.proposals...)
		st.dropped = append(st.dropped, res.dropped...)
	}
	return st, nil
}

func (e *Engine) report(st cycleState, started time.Time, err error) CycleResult {
	res := CycleResult{
		Seed:      st.seed,
		Trigger:   st.opts.Trigger,
		Started:   started,
		Duration:  time.Since(started),
		Deleted:   st.deleted,
		Proposals: st.proposals,
		Tasks:     st.tasks,
		Consumed:  st.consumed,
		Dropped:   st.dropped,
	}
	for _, d := range st.dropped {
		e.logger.Infof("left %d cars idle at %q: %v", len(d.Cars), d.Station, d.Err)
		droppedRuns.WithLabelValues(d.Reason()).Inc()
		e.publish(events.DroppedRunEvent{Station: d.Station, Cars: model.CarIDs(d.Cars), Reason: d.Reason()})
	}
	outcome := "completed"
	if err != nil {
		outcome = "aborted"
	}
	cyclesTotal.WithLabelValues(outcome).Inc()
	cycleDuration.Observe(res.Duration.Seconds())
	carsConsumed.Add(float64(len(res.Consumed)))
	e.publish(events.CycleEvent{
		Seed:     res.Seed,
		Trigger:  res.Trigger,
		Consumed: len(res.Consumed),
		Deleted:  len(res.Deleted),
		Tasks:    len(res.Tasks),
		Duration: res.Duration,
		Err:      err,
	})
	e.logger.Infof("assigned %d cars to %d tasks", len(res.Consumed), len(res.Tasks))
	return res
}

func idSet(ids []model.CarID) map[model.CarID]bool {
	out := make(map[model.CarID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func containsAny(cars []model.Car, ids map[model.CarID]bool) bool {
	if len(ids) == 0 {
		return false
	}
	for _, c := range cars {
		if ids[c.ID] {
			return true
		}
	}
	return false
}

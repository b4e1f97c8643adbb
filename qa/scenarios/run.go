package scenarios

import (
	"context"
	"fmt"
	"slices"

	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/core/reassign"
	"github.com/kilianp07/railjobs/infra/logger"
	"github.com/kilianp07/railjobs/simulator"
)

// Outcome aggregates every cycle of a scenario run.
type Outcome struct {
	Results []reassign.CycleResult
	Kinds   map[string]int
	Dropped map[string]int
	Deleted []model.CarID
	Idle    []model.CarID
	Err     error
}

// Run plays the scenario against a fresh copy of its world. A cycle error
// ends the run and is reported in Outcome.Err.
func Run(ctx context.Context, sc *Scenario, cfg reassign.Config) (Outcome, error) {
	cfg.SetDefaults()
	w, err := simulator.Load(simulator.Config{Path: sc.WorldPath(), CarSeparation: cfg.CarSeparation})
	if err != nil {
		return Outcome{}, err
	}
	builder := simulator.NewBuilder(w, cfg.CarSeparation)
	eng, err := reassign.New(cfg, reassign.Deps{
		World: w, Idle: w, Consists: w, Observer: w, Owner: w, Builder: builder,
	},
		reassign.WithSpecialCars(simulator.NewPlatformStrategy(w, cfg.CarSeparation)),
		reassign.WithLogger(logger.NopLogger{}),
	)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Kinds: map[string]int{}, Dropped: map[string]int{}}
	for i, c := range sc.Cycles {
		if c.Observer != nil {
			pos := c.Observer.R3()
			w.MoveObserver(&pos)
		}
		builder.Decline = func(p model.TaskProposal) bool { return slices.Contains(c.Decline, p.Kind) }
		res, err := eng.RunCycle(ctx, reassign.CycleOptions{
			Seed:              c.Seed,
			SkipDistanceCheck: c.SkipDistanceCheck,
			Ignore:            c.Ignore,
			Trigger:           fmt.Sprintf("scenario-%d", i+1),
		})
		out.Results = append(out.Results, res)
		for _, t := range res.Tasks {
			out.Kinds[t.Kind.String()]++
		}
		for _, d := range res.Dropped {
			out.Dropped[d.Reason()]++
		}
		out.Deleted = append(out.Deleted, model.CarIDs(res.Deleted)...)
		if err != nil {
			out.Err = err
			break
		}
	}
	out.Idle = model.CarIDs(w.Snapshot())
	return out, nil
}

// Check compares an outcome with the expectations and returns one message
// per mismatch.
func Check(sc *Scenario, out Outcome) []string {
	var diffs []string
	exp := sc.Expected
	if exp.Aborted != (out.Err != nil) {
		diffs = append(diffs, fmt.Sprintf("aborted: want %v, got err %v", exp.Aborted, out.Err))
	}
	if exp.Tasks != nil {
		var n int
		for _, v := range out.Kinds {
			n += v
		}
		if n != *exp.Tasks {
			diffs = append(diffs, fmt.Sprintf("tasks: want %d, got %d", *exp.Tasks, n))
		}
	}
	for k, want := range exp.Kinds {
		if got := out.Kinds[k]; got < want {
			diffs = append(diffs, fmt.Sprintf("kind %s: want at least %d, got %d", k, want, got))
		}
	}
	for r, want := range exp.Dropped {
		if got := out.Dropped[r]; got < want {
			diffs = append(diffs, fmt.Sprintf("dropped %s: want at least %d, got %d", r, want, got))
		}
	}
	if exp.Deleted != nil && !sameIDs(exp.Deleted, out.Deleted) {
		diffs = append(diffs, fmt.Sprintf("deleted: want %v, got %v", exp.Deleted, out.Deleted))
	}
	if exp.Idle != nil && !sameIDs(exp.Idle, out.Idle) {
		diffs = append(diffs, fmt.Sprintf("idle: want %v, got %v", exp.Idle, out.Idle))
	}
	return diffs
}

func sameIDs(a, b []model.CarID) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

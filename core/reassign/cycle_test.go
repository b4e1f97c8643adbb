package reassign

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
)

func at(cs []model.Car, x float64) []model.Car {
	for i := range cs {
		cs[i].Position = r3.Vec{X: x}
	}
	return cs
}

func TestRunCycleFiltersIdleList(t *testing.T) {
	w := emptyHaulWorld()
	far := consist("far", at(cars("f", 2, "flat", 10, model.NoCargo), 5000))
	near := consist("near", at(cars("n", 2, "flat", 10, model.NoCargo), 100))
	derailed := consist("derailed", at(cars("d", 1, "flat", 10, model.NoCargo), 5000))
	derailed.Cars[0].Derailed = true
	loco := model.Car{ID: "loco", Type: "de2", Position: r3.Vec{X: 5000}}
	owned := model.Car{ID: "owned", Type: "de2", ExternallyOwned: true, Position: r3.Vec{X: 5000}}
	w.place(track("A", "S1", model.TrackStorage, 200), far, near, derailed)

	f := newFixture(w, far, near, derailed)
	f.idle.cars = append(f.idle.cars, loco, owned)
	f.observer = fakeObserver{present: true}
	e := f.engine(noSep)

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 1, Trigger: "test"})
	require.NoError(t, err)
	assert.Equal(t, []model.CarID{"loco"}, model.CarIDs(res.Deleted))
	assert.ElementsMatch(t, []model.CarID{"f1", "f2"}, model.CarIDs(res.Consumed))
	assert.True(t, f.idle.contains("n1"))
	assert.True(t, f.idle.contains("d1"))
	assert.True(t, f.idle.contains("owned"))
	assert.False(t, f.idle.contains("loco"))
	assert.Equal(t, "test", res.Trigger)
	assert.Equal(t, int64(1), res.Seed)
}

func TestRunCycleSkipDistanceAndIgnore(t *testing.T) {
	w := emptyHaulWorld()
	a := consist("a", at(cars("a", 2, "flat", 10, model.NoCargo), 10))
	b := consist("b", at(cars("b", 2, "flat", 10, model.NoCargo), 10))
	w.place(track("A", "S1", model.TrackStorage, 200), a, b)
	f := newFixture(w, a, b)
	f.observer = fakeObserver{present: true}
	e := f.engine(noSep)

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 2, SkipDistanceCheck: true, Ignore: []model.CarID{"b2"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.CarID{"a1", "a2"}, model.CarIDs(res.Consumed))
	assert.True(t, f.idle.contains("b1"))
}

func TestRunCycleConvertsOwnership(t *testing.T) {
	w := emptyHaulWorld()
	cs := consist("k", cars("f", 2, "flat", 10, model.NoCargo))
	cs.Cars[0].ExternallyOwned = true
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	e := f.engine(noSep)

	_, err := e.RunCycle(context.Background(), CycleOptions{Seed: 3})
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.CarID{"f1", "f2"}, f.owner.converted)
}

func TestNoNamedTrackLeavesConsistIdle(t *testing.T) {
	w := emptyHaulWorld()
	cs := consist("k", cars("f", 2, "flat", 10, model.NoCargo))
	f := newFixture(w, cs)
	e := f.engine(noSep)

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 4})
	require.NoError(t, err)
	require.Empty(t, res.Proposals)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "no_track", res.Dropped[0].Reason())
	assert.True(t, f.idle.contains("f1"))
}

func TestDeclinedTaskKeepsCarsIdle(t *testing.T) {
	w := emptyHaulWorld()
	cs := consist("k", cars("f", 2, "flat", 10, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	f.builder.fail = func(model.TaskProposal) error { return fmt.Errorf("licence missing: %w", host.ErrTaskDeclined) }
	e := f.engine(noSep)

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Tasks)
	assert.True(t, f.idle.contains("f1"))
	require.NotEmpty(t, res.Dropped)
	assert.Equal(t, "declined", res.Dropped[0].Reason())
}

func TestBuilderFailureAbortsCycleKeepingBuiltTasks(t *testing.T) {
	w := emptyHaulWorld()
	c1 := consist("k1", cars("p", 2, "flat", 10, model.NoCargo))
	c2 := consist("k2", cars("q", 2, "flat", 10, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), c1, c2)
	f := newFixture(w, c1, c2)
	calls := 0
	boom := errors.New("host unreachable")
	f.builder.fail = func(model.TaskProposal) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}
	e := f.engine(noSep)

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 6})
	require.Error(t, err)
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, PhaseFinalizing, ce.Phase)
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, ce.Stack)
	require.Len(t, res.Tasks, 1)
	for _, c := range res.Consumed {
		assert.False(t, f.idle.contains(c.ID))
	}
}

type panickingBuilder struct{}

func (panickingBuilder) Build(context.Context, model.TaskProposal) (model.Task, error) {
	panic("nil task definition")
}

func TestPanicBecomesCycleError(t *testing.T) {
	w := emptyHaulWorld()
	cs := consist("k", cars("f", 2, "flat", 10, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	e, err := New(noSep, Deps{World: w, Idle: f.idle, Consists: f.consists, Observer: f.observer, Builder: panickingBuilder{}})
	require.NoError(t, err)

	_, err = e.RunCycle(context.Background(), CycleOptions{Seed: 7})
	var ce *CycleError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, PhaseFinalizing, ce.Phase)
	assert.Contains(t, ce.Error(), "nil task definition")
}

func TestTrackStationMismatchDropsProposal(t *testing.T) {
	w := emptyHaulWorld()
	// B's storage track claims to belong to yard Z.
	w.stations[1].Tracks[0] = track("Z", "S1", model.TrackStorage, 200)
	cs := consist("k", cars("f", 2, "flat", 10, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	e := f.engine(noSep)

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 8})
	require.NoError(t, err)
	assert.Empty(t, res.Proposals)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "mismatch", res.Dropped[0].Reason())
	assert.ErrorIs(t, res.Dropped[0].Err, ErrTrackStationMismatch)
}

func TestNoStorageTrackIsLookupFailure(t *testing.T) {
	w := emptyHaulWorld()
	w.stations[1].Tracks[0].Length = 5
	cs := consist("k", cars("f", 2, "flat", 10, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	e := f.engine(noSep)

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 9})
	require.NoError(t, err)
	require.Len(t, res.Dropped, 1)
	assert.True(t, IsLookupFailure(res.Dropped[0].Err))
}

func TestPickTrackPrefersFreeSpace(t *testing.T) {
	w := emptyHaulWorld()
	full := track("B", "S1", model.TrackStorage, 200)
	empty := track("B", "S2", model.TrackStorage, 200)
	w.free = map[model.TrackID]float64{empty.ID: 150}
	f := newFixture(w)
	e := f.engine(noSep)
	for seed := int64(0); seed < 20; seed++ {
		got, ok := e.pickTrack([]model.Track{full, empty}, 50, newCycleState(seed, CycleOptions{}).rng)
		require.True(t, ok)
		require.Equal(t, empty.ID, got.ID)
	}
}

func TestSpecialCarsSplitUntilPlaced(t *testing.T) {
	w := emptyHaulWorld()
	platform := track("B", "P1", model.TrackPlatform, 100)
	w.stations[1].Tracks = append(w.stations[1].Tracks, platform)
	cs := consist("k", cars("c", 4, "coach", 20, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	special := &fakeSpecial{target: host.SpecialTarget{Destination: "B", Track: platform}, maxCars: 2}
	e := f.engine(noSep, WithSpecialCars(special))

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 10})
	require.NoError(t, err)
	require.Len(t, res.Proposals, 2)
	for _, p := range res.Proposals {
		assert.Equal(t, model.TaskEmptyHaul, p.Kind)
		assert.Equal(t, platform.ID, p.DestinationTrack)
		assert.Len(t, p.Cars(), 2)
	}
	assert.Equal(t, [][]model.CarID{{"c1", "c2", "c3", "c4"}, {"c1", "c2"}, {"c3", "c4"}}, special.asked)
}

func TestUnplaceableSpecialCarsStayIdle(t *testing.T) {
	w := emptyHaulWorld()
	cs := consist("k", cars("c", 3, "coach", 20, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	e := f.engine(noSep, WithSpecialCars(&fakeSpecial{maxCars: 0}))

	res, err := e.RunCycle(context.Background(), CycleOptions{Seed: 11})
	require.NoError(t, err)
	assert.Empty(t, res.Proposals)
	require.Len(t, res.Dropped, 3)
	for _, d := range res.Dropped {
		assert.Equal(t, "special_unplaced", d.Reason())
	}
}

func TestYielderSeesEveryPhase(t *testing.T) {
	w := emptyHaulWorld()
	f := newFixture(w)
	var seen []Phase
	e := f.engine(noSep, WithYielder(YieldFunc(func(p Phase) { seen = append(seen, p) })))
	_, err := e.RunCycle(context.Background(), CycleOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseFiltering, PhaseGrouping, PhaseClassifying, PhaseBatching, PhaseFinalizing}, seen)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	if _, err := New(noSep, Deps{}); err == nil {
		t.Fatalf("expected error for missing dependencies")
	}
	f := newFixture(emptyHaulWorld())
	if _, err := New(Config{CarSeparation: -1}, Deps{World: f.world, Idle: f.idle, Consists: f.consists, Observer: f.observer, Builder: f.builder}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCycleMetrics(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)

	w := emptyHaulWorld()
	cs := consist("k", cars("f", 5, "flat", 10, model.NoCargo))
	w.place(track("A", "S1", model.TrackStorage, 200), cs)
	f := newFixture(w, cs)
	e := f.engine(noSep)
	_, err := e.RunCycle(context.Background(), CycleOptions{Seed: 12})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(proposalsTotal.WithLabelValues("empty_haul")))
	assert.Equal(t, 2.0, testutil.ToFloat64(tasksTotal.WithLabelValues("empty_haul", "built")))
	assert.Equal(t, 5.0, testutil.ToFloat64(carsConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(cyclesTotal.WithLabelValues("completed")))
	count, err := testutil.GatherAndCount(reg, "reassign_phase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

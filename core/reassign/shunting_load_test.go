package reassign

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kilianp07/railjobs/core/model"
)

func group(id string, maxLen float64) model.CargoGroup {
	return model.CargoGroup{
		ID:         id,
		CargoTypes: []model.CargoType{"x"},
		Relations:  []model.Relation{{Group: id, Station: "D", MaxTrainLength: maxLen}},
	}
}

func countCars(loads []shuntingLoad) int {
	n := 0
	for _, l := range loads {
		n += len(l.cars())
	}
	return n
}

func TestPackerRespectsPickupTrackLimit(t *testing.T) {
	g := group("G1", 1000)
	var sets [][]loadableRun
	for i := 0; i < 4; i++ {
		cs := cars(string(rune('a'+i)), 1, "A", 10, model.NoCargo)
		sets = append(sets, []loadableRun{{carType: "A", cars: cs, groups: []model.CargoGroup{g}}})
	}
	e := &Engine{cfg: noSep}
	rules := model.Ruleset{MaxCarsPerJob: 8, MaxShuntingStorageTracks: 2}
	for seed := int64(0); seed < 20; seed++ {
		loads := e.packShuntingLoads(sets, rules, rand.New(rand.NewSource(seed)))
		if len(loads) != 2 {
			t.Fatalf("seed %d: expected 2 loads got %d", seed, len(loads))
		}
		for _, l := range loads {
			if len(l.pickups) > 2 {
				t.Fatalf("seed %d: load uses %d pickup tracks", seed, len(l.pickups))
			}
		}
		if countCars(loads) != 4 {
			t.Fatalf("seed %d: expected 4 cars packed got %d", seed, countCars(loads))
		}
	}
}

func TestPackerSameTrackContinuationIgnoresLimit(t *testing.T) {
	g := group("G1", 1000)
	set := []loadableRun{
		{carType: "A", cars: cars("a", 2, "A", 10, model.NoCargo), groups: []model.CargoGroup{g}},
		{carType: "B", cars: cars("b", 2, "B", 10, model.NoCargo), groups: []model.CargoGroup{g}},
	}
	e := &Engine{cfg: noSep}
	rules := model.Ruleset{MaxCarsPerJob: 8, MaxShuntingStorageTracks: 1}
	loads := e.packShuntingLoads([][]loadableRun{set}, rules, rand.New(rand.NewSource(1)))
	if len(loads) != 1 {
		t.Fatalf("expected 1 load got %d", len(loads))
	}
	if len(loads[0].pickups) != 1 || len(loads[0].pickups[0]) != 2 {
		t.Fatalf("expected one pickup with two runs got %+v", loads[0].pickups)
	}
}

func TestPackerChopsOverlongEntryAndKeepsOrder(t *testing.T) {
	g := group("G1", 1000)
	cs := cars("c", 10, "A", 10, model.NoCargo)
	set := []loadableRun{{carType: "A", cars: cs, groups: []model.CargoGroup{g}}}
	e := &Engine{cfg: noSep}
	rules := model.Ruleset{MaxCarsPerJob: 4, MaxShuntingStorageTracks: 3}
	loads := e.packShuntingLoads([][]loadableRun{set}, rules, rand.New(rand.NewSource(5)))
	var sizes []int
	var joined []model.CarID
	for _, l := range loads {
		sizes = append(sizes, len(l.cars()))
		joined = append(joined, model.CarIDs(l.cars())...)
	}
	if diff := cmp.Diff([]int{4, 4, 2}, sizes); diff != "" {
		t.Fatalf("sizes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.CarIDs(cs), joined); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestPackerDoesNotMixCargoGroups(t *testing.T) {
	g1, g2 := group("G1", 1000), group("G2", 1000)
	sets := [][]loadableRun{
		{{carType: "A", cars: cars("a", 2, "A", 10, model.NoCargo), groups: []model.CargoGroup{g1}}},
		{{carType: "B", cars: cars("b", 2, "B", 10, model.NoCargo), groups: []model.CargoGroup{g2}}},
	}
	e := &Engine{cfg: noSep}
	loads := e.packShuntingLoads(sets, ruleset, rand.New(rand.NewSource(2)))
	if len(loads) != 2 {
		t.Fatalf("expected 2 loads got %d", len(loads))
	}
	for _, l := range loads {
		for _, pk := range l.pickups {
			for _, r := range pk {
				if !r.supports(l.group.ID) {
					t.Fatalf("run of %s packed into group %s", r.carType, l.group.ID)
				}
			}
		}
	}
}

func TestPackerMergesAcrossTracksWithinLimits(t *testing.T) {
	g := group("G1", 1000)
	sets := [][]loadableRun{
		{{carType: "A", cars: cars("a", 2, "A", 10, model.NoCargo), groups: []model.CargoGroup{g}}},
		{{carType: "A", cars: cars("b", 2, "A", 10, model.NoCargo), groups: []model.CargoGroup{g}}},
	}
	e := &Engine{cfg: noSep}
	loads := e.packShuntingLoads(sets, ruleset, rand.New(rand.NewSource(9)))
	if len(loads) != 1 || len(loads[0].pickups) != 2 {
		t.Fatalf("expected one load with two pickups got %d loads", len(loads))
	}
}

package reassign

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/railjobs/core/model"
)

// networkWorld: B loads logs towards C, C unloads logs coming from B, A only
// stores cars.
func networkWorld() *fakeWorld {
	return &fakeWorld{
		stations: []model.Station{
			{ID: "A", Rules: ruleset, Tracks: []model.Track{track("A", "S1", model.TrackStorage, 400)}},
			{ID: "B", Rules: ruleset,
				Tracks: []model.Track{track("B", "S1", model.TrackStorage, 400), track("B", "W1", model.TrackWarehouse, 300)},
				Outgoing: []model.CargoGroup{{
					ID:              "G",
					CargoTypes:      []model.CargoType{"logs"},
					Relations:       []model.Relation{{Station: "C", MaxTrainLength: 60}},
					WarehouseTracks: []model.TrackID{{Yard: "B", Name: "W1"}},
				}}},
			{ID: "C", Rules: ruleset,
				Tracks: []model.Track{
					track("C", "S1", model.TrackStorage, 400),
					track("C", "T1", model.TrackTransferIn, 300),
					track("C", "W1", model.TrackWarehouse, 300),
				},
				Incoming: []model.CargoGroup{{
					ID:              "GI",
					CargoTypes:      []model.CargoType{"logs"},
					Relations:       []model.Relation{{Station: "B", MaxTrainLength: 60}},
					WarehouseTracks: []model.TrackID{{Yard: "C", Name: "W1"}},
				}}},
		},
		cargo: map[model.CarTypeID][]model.CargoType{"flat": {"logs"}},
	}
}

func randomConsist(rng *rand.Rand, id string) model.Consist {
	n := 1 + rng.Intn(14)
	out := make([]model.Car, n)
	for i := range out {
		c := model.Car{
			ID:      model.CarID(fmt.Sprintf("%s-%d", id, i)),
			Type:    "flat",
			Length:  8 + rng.Float64()*6,
			Regular: true,
			Consist: model.ConsistID(id),
		}
		if rng.Intn(2) == 0 {
			c.Cargo, c.CargoAmount = "logs", 1
		}
		out[i] = c
	}
	return model.Consist{ID: model.ConsistID(id), Cars: out}
}

func TestCycleProperties(t *testing.T) {
	cfg := Config{MinObserverDistance: 800, CarSeparation: 0.3}
	yards := []model.StationID{"A", "B", "C"}
	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		w := networkWorld()
		var consists []model.Consist
		for i := 0; i < 1+rng.Intn(5); i++ {
			cs := randomConsist(rng, fmt.Sprintf("k%d", i))
			w.place(track(yards[rng.Intn(len(yards))], "S1", model.TrackStorage, 400), cs)
			consists = append(consists, cs)
		}
		position := map[model.CarID]int{}
		total := 0
		for _, cs := range consists {
			for i, c := range cs.Cars {
				position[c.ID] = i
			}
			total += len(cs.Cars)
		}

		f := newFixture(w, consists...)
		e := f.engine(cfg)
		res, err := e.RunCycle(context.Background(), CycleOptions{Seed: seed})
		require.NoError(t, err, "seed %d", seed)
		require.Empty(t, res.Dropped, "seed %d", seed)

		used := map[model.CarID]bool{}
		for _, p := range res.Proposals {
			cars := p.Cars()
			require.LessOrEqual(t, len(cars), ruleset.MaxCarsPerJob, "seed %d", seed)
			require.Less(t, model.TrainLength(cars, cfg.CarSeparation), p.MaxTrainLength, "seed %d", seed)
			status := ClassifyCar(cars[0])
			for _, c := range cars {
				require.False(t, used[c.ID], "seed %d: car %s reused", seed, c.ID)
				used[c.ID] = true
				require.Equal(t, status, ClassifyCar(c), "seed %d: mixed statuses", seed)
			}
			for _, pk := range p.Pickups {
				for i := 1; i < len(pk.Cars); i++ {
					prev, cur := pk.Cars[i-1], pk.Cars[i]
					require.Equal(t, prev.Consist, cur.Consist, "seed %d", seed)
					require.Less(t, position[prev.ID], position[cur.ID], "seed %d: coupling order", seed)
				}
			}
		}
		require.Len(t, res.Consumed, total, "seed %d", seed)
		require.Empty(t, f.idle.Snapshot(), "seed %d", seed)
	}
}

func TestClassificationIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		cs := randomConsist(rng, fmt.Sprintf("k%d", i))
		for _, c := range cs.Cars {
			if ClassifyCar(c) != ClassifyCar(c) {
				t.Fatalf("classification of %s changed between calls", c.ID)
			}
		}
	}
}

package reassign

import (
	"fmt"
	"math/rand"

	"github.com/kilianp07/railjobs/core/model"
)

// packEntry is a loadable run tagged with its position: set is the index of
// its set after shuffling, index its position inside the set. Consecutive
// runs of one set lie next to each other on the same track.
type packEntry struct {
	run   loadableRun
	set   int
	index int
}

// shuntingLoad is one packed task: pickups hold the car-type runs gathered
// from each starting track.
type shuntingLoad struct {
	group    model.CargoGroup
	relation model.Relation
	pickups  [][]loadableRun
}

func (l shuntingLoad) cars() []model.Car {
	var out []model.Car
	for _, pk := range l.pickups {
		for _, r := range pk {
			out = append(out, r.cars...)
		}
	}
	return out
}

// packShuntingLoads greedily merges loadable runs into shunting-load tasks.
// The sets are shuffled first; each task starts from the head of the
// work-list and folds in later entries that fit. Packing stays greedy.
func (e *Engine) packShuntingLoads(sets [][]loadableRun, rules model.Ruleset, rng *rand.Rand) []shuntingLoad {
	var work []packEntry
	for setIdx, p := range rng.Perm(len(sets)) {
		for i, r := range sets[p] {
			work = append(work, packEntry{run: r, set: setIdx, index: i})
		}
	}
	var loads []shuntingLoad
	for len(work) > 0 {
		var load shuntingLoad
		load, work = e.packFirst(work, rules, rng)
		loads = append(loads, load)
	}
	return loads
}

// packFirst builds one task from the head of work and returns the entries
// it did not take, in order.
func (e *Engine) packFirst(work []packEntry, rules model.Ruleset, rng *rand.Rand) (shuntingLoad, []packEntry) {
	maxCars := max(rules.MaxCarsPerJob, 1)
	first := work[0]
	group := randomElement(rng, first.run.groups)
	rel := randomElement(rng, group.Relations)
	sep := e.cfg.CarSeparation

	if model.TrainLength(first.run.cars, sep) < rel.MaxTrainLength && len(first.run.cars) <= maxCars {
		cars := append([]model.Car(nil), first.run.cars...)
		pickups := [][]loadableRun{{first.run}}
		curSet, curIdx := first.set, first.index
		var rest []packEntry
		for _, next := range work[1:] {
			sameTrack := next.set == curSet && next.index == curIdx+1
			extended, ok := extendLoad(cars, group.ID, next.run, maxCars, rel.MaxTrainLength, sep)
			if ok && (len(pickups) < rules.MaxShuntingStorageTracks || sameTrack) {
				cars = extended
				if sameTrack {
					pickups[len(pickups)-1] = append(pickups[len(pickups)-1], next.run)
				} else {
					pickups = append(pickups, []loadableRun{next.run})
				}
				curSet, curIdx = next.set, next.index
				continue
			}
			rest = append(rest, next)
		}
		return shuntingLoad{group: group, relation: rel, pickups: pickups}, rest
	}

	n := min(ChooseCarCountNotExceedingLength(first.run.cars, rel.MaxTrainLength, sep, rng), maxCars)
	var rest []packEntry
	if n < len(first.run.cars) {
		remainder := first
		remainder.run.cars = first.run.cars[n:]
		rest = append(rest, remainder)
	}
	rest = append(rest, work[1:]...)
	head := first.run
	head.cars = first.run.cars[:n]
	return shuntingLoad{group: group, relation: rel, pickups: [][]loadableRun{{head}}}, rest
}

func extendLoad(cars []model.Car, groupID string, next loadableRun, maxCars int, maxLength, sep float64) ([]model.Car, bool) {
	if !next.supports(groupID) {
		return nil, false
	}
	if len(cars)+len(next.cars) > maxCars {
		return nil, false
	}
	total := make([]model.Car, 0, len(cars)+len(next.cars))
	total = append(append(total, cars...), next.cars...)
	if model.TrainLength(total, sep) >= maxLength {
		return nil, false
	}
	return total, true
}

// shuntingLoadProposal assigns cargo, resolves pickup tracks and picks a
// warehouse track for a packed load. Pickups without a named track are
// dropped and reported.
func (e *Engine) shuntingLoadProposal(x *CargoIndex, s model.Station, load shuntingLoad, rng *rand.Rand) (model.TaskProposal, []DroppedRun, error) {
	var types []model.CarTypeID
	seen := map[model.CarTypeID]bool{}
	for _, pk := range load.pickups {
		for _, r := range pk {
			if !seen[r.carType] {
				seen[r.carType] = true
				types = append(types, r.carType)
			}
		}
	}
	cargo := make(map[model.CarTypeID][]model.CargoType, len(types))
	for _, t := range types {
		options := x.LoadableCargo(load.group, t)
		if len(options) == 0 {
			return model.TaskProposal{}, nil, fmt.Errorf("%w: car type %s for group %s", ErrNoCargo, t, load.group.ID)
		}
		if len(types) > 1 {
			options = []model.CargoType{randomElement(rng, options)}
		}
		cargo[t] = options
	}

	var (
		pickups  []model.Pickup
		cargoSeq []model.CargoType
		all      []model.Car
		dropped  []DroppedRun
	)
	for _, pk := range load.pickups {
		var cars []model.Car
		var ct []model.CargoType
		for _, r := range pk {
			for _, c := range r.cars {
				cars = append(cars, c)
				ct = append(ct, randomElement(rng, cargo[r.carType]))
			}
		}
		track, ok := e.deps.World.NearestNamedTrack(cars)
		if !ok {
			dropped = append(dropped, DroppedRun{Station: s.ID, Cars: cars, Err: fmt.Errorf("%w: no named track under pickup", ErrNoTrack)})
			continue
		}
		if err := checkYard(track.ID, s.ID); err != nil {
			e.logger.Errorf("%v", err)
			return model.TaskProposal{}, dropped, err
		}
		pickups = append(pickups, model.Pickup{Track: track.ID, Cars: cars})
		cargoSeq = append(cargoSeq, ct...)
		all = append(all, cars...)
	}
	if len(pickups) == 0 {
		return model.TaskProposal{}, dropped, fmt.Errorf("%w: no pickup of group %s has a named track", ErrNoTrack, load.group.ID)
	}

	length := model.TrainLength(all, e.cfg.CarSeparation)
	track, ok := pickWarehouse(s, load.group.WarehouseTracks, length, rng)
	if !ok {
		return model.TaskProposal{}, dropped, fmt.Errorf("%w: group %s at %s for %.1fm", ErrNoWarehouse, load.group.ID, s.ID, length)
	}
	if err := checkYard(track.ID, s.ID); err != nil {
		e.logger.Errorf("%v", err)
		return model.TaskProposal{}, dropped, err
	}
	p := e.proposal(model.TaskShuntingLoad, s.ID, load.relation.Station, pickups, track.ID, load.relation)
	p.Cargo = cargoSeq
	return p, dropped, nil
}

// shuntingLoads packs and builds every shunting-load proposal of a station.
func (e *Engine) shuntingLoads(x *CargoIndex, s model.Station, sets [][]loadableRun, rng *rand.Rand) batchResult {
	var res batchResult
	if len(sets) == 0 {
		return res
	}
	loads := e.packShuntingLoads(sets, s.Rules, rng)
	e.logger.Debugf("packed %d loadable sets at %s into %d shunting loads", len(sets), s.ID, len(loads))
	for _, load := range loads {
		p, dropped, err := e.shuntingLoadProposal(x, s, load, rng)
		res.dropped = append(res.dropped, dropped...)
		if err != nil {
			res.drop(s.ID, remaining(load.cars(), dropped), err)
			continue
		}
		res.proposals = append(res.proposals, p)
	}
	return res
}

// remaining returns the cars of all not listed in dropped.
func remaining(all []model.Car, dropped []DroppedRun) []model.Car {
	gone := map[model.CarID]bool{}
	for _, d := range dropped {
		for _, c := range d.Cars {
			gone[c.ID] = true
		}
	}
	var out []model.Car
	for _, c := range all {
		if !gone[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

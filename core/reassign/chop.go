package reassign

import (
	"fmt"
	"math/rand"

	"github.com/kilianp07/railjobs/core/model"
)

// chop is one bounded slice of a run bound to a relation and starting track.
type chop struct {
	cars     []model.Car
	relation model.Relation
	track    model.Track
}

// chopByRelation walks a run left to right: it takes the prefix sharing a
// relation, picks one of the shared relations at random, bounds the count by
// length and maxCars, and emits a chop when a named track lies under the
// chosen cars. Cars without a track are returned as skipped; they are
// consumed from the run either way.
func (e *Engine) chopByRelation(run []CarRelations, maxCars int, rng *rand.Rand) (chops []chop, skipped [][]model.Car) {
	if maxCars < 1 {
		maxCars = 1
	}
	remaining := run
	for len(remaining) > 0 {
		cars, rels := IntersectRelations(remaining)
		rel := randomElement(rng, rels)
		n := min(ChooseCarCountNotExceedingLength(cars, rel.MaxTrainLength, e.cfg.CarSeparation, rng), maxCars)
		taken := append([]model.Car(nil), cars[:n]...)
		if track, ok := e.deps.World.NearestNamedTrack(taken); ok {
			chops = append(chops, chop{cars: taken, relation: rel, track: track})
		} else {
			skipped = append(skipped, taken)
		}
		remaining = remaining[n:]
	}
	return chops, skipped
}

func (e *Engine) proposal(kind model.TaskKind, src, dst model.StationID, pickups []model.Pickup, dstTrack model.TrackID, rel model.Relation) model.TaskProposal {
	return model.TaskProposal{
		ID:               e.newID(),
		Kind:             kind,
		Source:           src,
		Destination:      dst,
		Pickups:          pickups,
		DestinationTrack: dstTrack,
		CargoGroup:       rel.Group,
		MaxTrainLength:   rel.MaxTrainLength,
	}
}

// batchResult collects the proposals and drops of one batcher call.
type batchResult struct {
	proposals []model.TaskProposal
	dropped   []DroppedRun
}

func (b *batchResult) drop(station model.StationID, cars []model.Car, err error) {
	b.dropped = append(b.dropped, DroppedRun{Station: station, Cars: cars, Err: err})
}

func (b *batchResult) merge(o batchResult) {
	b.proposals = append(b.proposals, o.proposals...)
	b.dropped = append(b.dropped, o.dropped...)
}

// emptyHaul produces empty-haul proposals towards stations that load the
// cars. A non-nil target skips destination track selection.
func (e *Engine) emptyHaul(x *CargoIndex, s model.Station, run []CarRelations, target *model.Track, rng *rand.Rand) batchResult {
	var res batchResult
	chops, skipped := e.chopByRelation(run, s.Rules.MaxCarsPerJob, rng)
	for _, cars := range skipped {
		res.drop(s.ID, cars, fmt.Errorf("%w: no named track under empty cars", ErrNoTrack))
	}
	for _, c := range chops {
		dest, ok := x.Station(c.relation.Station)
		if !ok {
			res.drop(s.ID, c.cars, fmt.Errorf("%w: unknown station %s", ErrNoDestination, c.relation.Station))
			continue
		}
		var track model.Track
		if target != nil {
			track = *target
		} else {
			length := model.TrainLength(c.cars, e.cfg.CarSeparation)
			if track, ok = e.pickTrack(dest.TracksOf(model.TrackStorage), length, rng); !ok {
				res.drop(s.ID, c.cars, fmt.Errorf("%w: no storage track at %s for %.1fm", ErrNoTrack, dest.ID, length))
				continue
			}
		}
		if err := e.checkYards(c.track.ID, s.ID, track.ID, dest.ID); err != nil {
			res.drop(s.ID, c.cars, err)
			continue
		}
		p := e.proposal(model.TaskEmptyHaul, s.ID, dest.ID, []model.Pickup{{Track: c.track.ID, Cars: c.cars}}, track.ID, c.relation)
		res.proposals = append(res.proposals, p)
	}
	return res
}

// transport produces transport proposals for loaded cars the station cannot
// unload.
func (e *Engine) transport(x *CargoIndex, s model.Station, run []CarRelations, rng *rand.Rand) batchResult {
	var res batchResult
	chops, skipped := e.chopByRelation(run, s.Rules.MaxCarsPerJob, rng)
	for _, cars := range skipped {
		res.drop(s.ID, cars, fmt.Errorf("%w: no named track under loaded cars", ErrNoTrack))
	}
	for _, c := range chops {
		dest, ok := x.Station(c.relation.Station)
		if !ok {
			res.drop(s.ID, c.cars, fmt.Errorf("%w: unknown station %s", ErrNoDestination, c.relation.Station))
			continue
		}
		length := model.TrainLength(c.cars, e.cfg.CarSeparation)
		track, ok := e.pickTrack(dest.TracksOf(model.TrackTransferIn), length, rng)
		if !ok {
			res.drop(s.ID, c.cars, fmt.Errorf("%w: no transfer-in track at %s for %.1fm", ErrNoTrack, dest.ID, length))
			continue
		}
		if err := e.checkYards(c.track.ID, s.ID, track.ID, dest.ID); err != nil {
			res.drop(s.ID, c.cars, err)
			continue
		}
		p := e.proposal(model.TaskTransport, s.ID, dest.ID, []model.Pickup{{Track: c.track.ID, Cars: c.cars}}, track.ID, c.relation)
		p.Cargo = cargoOf(c.cars)
		res.proposals = append(res.proposals, p)
	}
	return res
}

// shuntingUnload produces unload proposals at s. The relation's station is
// the source the cargo came from.
func (e *Engine) shuntingUnload(s model.Station, run []CarRelations, rng *rand.Rand) batchResult {
	var res batchResult
	chops, skipped := e.chopByRelation(run, s.Rules.MaxCarsPerJob, rng)
	for _, cars := range skipped {
		res.drop(s.ID, cars, fmt.Errorf("%w: no named track under unloadable cars", ErrNoTrack))
	}
	for _, c := range chops {
		group, ok := incomingGroup(s, c.relation.Group)
		if !ok {
			res.drop(s.ID, c.cars, fmt.Errorf("%w: unknown incoming group %q", ErrNoDestination, c.relation.Group))
			continue
		}
		length := model.TrainLength(c.cars, e.cfg.CarSeparation)
		track, ok := pickWarehouse(s, group.WarehouseTracks, length, rng)
		if !ok {
			res.drop(s.ID, c.cars, fmt.Errorf("%w: group %s at %s for %.1fm", ErrNoWarehouse, group.ID, s.ID, length))
			continue
		}
		if err := e.checkYards(c.track.ID, s.ID, track.ID, s.ID); err != nil {
			res.drop(s.ID, c.cars, err)
			continue
		}
		p := e.proposal(model.TaskShuntingUnload, c.relation.Station, s.ID, []model.Pickup{{Track: c.track.ID, Cars: c.cars}}, track.ID, c.relation)
		p.Cargo = cargoOf(c.cars)
		res.proposals = append(res.proposals, p)
	}
	return res
}

func (e *Engine) checkYards(start model.TrackID, startStation model.StationID, dest model.TrackID, destStation model.StationID) error {
	if err := checkYard(start, startStation); err != nil {
		e.logger.Errorf("%v", err)
		return err
	}
	if err := checkYard(dest, destStation); err != nil {
		e.logger.Errorf("%v", err)
		return err
	}
	return nil
}

func cargoOf(cars []model.Car) []model.CargoType {
	out := make([]model.CargoType, len(cars))
	for i, c := range cars {
		out[i] = c.Cargo
	}
	return out
}

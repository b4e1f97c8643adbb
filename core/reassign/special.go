package reassign

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/kilianp07/railjobs/core/model"
)

var errSpecialUnplaced = errors.New("reassign: special cars could not be placed")

// specialCars asks the strategy for an explicit destination and sends the
// run there as an empty haul. Runs the strategy cannot place are split in
// half and retried until single cars remain.
func (e *Engine) specialCars(x *CargoIndex, s model.Station, cars []model.Car, rng *rand.Rand) batchResult {
	var res batchResult
	if target, ok := e.classifier.Special.Resolve(s, cars); ok {
		rel := model.Relation{Station: target.Destination, MaxTrainLength: target.Track.Length}
		run := make([]CarRelations, len(cars))
		for i, c := range cars {
			run[i] = CarRelations{Car: c, Relations: []model.Relation{rel}}
		}
		track := target.Track
		return e.emptyHaul(x, s, run, &track, rng)
	}
	if len(cars) < 2 {
		e.logger.Warnf("special car %s cannot be reassigned", cars[0].ID)
		res.drop(s.ID, cars, fmt.Errorf("%w: car %s", errSpecialUnplaced, cars[0].ID))
		return res
	}
	e.logger.Debugf("splitting special run of %d cars starting with %s", len(cars), cars[0].ID)
	half := len(cars) / 2
	res.merge(e.specialCars(x, s, cars[:half], rng))
	res.merge(e.specialCars(x, s, cars[half:], rng))
	return res
}

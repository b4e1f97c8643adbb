package reassign

import (
	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
)

// Classifier derives reassign statuses. Special is optional; without it
// StatusSpecialCar is never produced.
type Classifier struct {
	Special host.SpecialCarStrategy
}

// Classify is a pure function of the car snapshot and the strategy.
func (c Classifier) Classify(car model.Car) model.ReassignStatus {
	switch {
	case car.HasTask:
		return model.StatusHasTask
	case c.Special != nil && c.Special.IsSpecial(car):
		return model.StatusSpecialCar
	case !car.Regular:
		return model.StatusNonRegular
	case car.Empty():
		return model.StatusEmpty
	default:
		return model.StatusLoaded
	}
}

// ClassifyCar classifies a car without a special-car strategy.
func ClassifyCar(car model.Car) model.ReassignStatus {
	return Classifier{}.Classify(car)
}

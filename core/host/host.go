package host

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/railjobs/core/model"
)

// ErrTaskDeclined is returned by a TaskBuilder that refuses a proposal for a
// recoverable reason. The cars involved stay idle.
var ErrTaskDeclined = errors.New("host: task declined")

// World exposes read-only station, track and car-type information.
type World interface {
	Stations() []model.Station
	// LoadableCargo returns the cargo types a car type can carry.
	LoadableCargo(t model.CarTypeID) []model.CargoType
	// NearestNamedTrack returns the closest named track under the cars,
	// or false when none is in reach.
	NearestNamedTrack(cars []model.Car) (model.Track, bool)
	FreeSpace(id model.TrackID) float64
}

// Observer is the entity whose proximity keeps cars from being reassigned.
type Observer interface {
	// Position returns false when no observer is present.
	Position() (r3.Vec, bool)
	FastTravelling() bool
}

// Consists resolves the current coupled group of a car.
type Consists interface {
	ConsistOf(id model.CarID) (model.Consist, bool)
}

// IdleList is the externally owned list of cars marked for deletion.
type IdleList interface {
	Snapshot() []model.Car
	Remove(ids ...model.CarID)
	// Delete removes the cars from the simulation and from the list.
	Delete(cars []model.Car) error
}

// TaskBuilder constructs concrete task objects from proposals.
type TaskBuilder interface {
	Build(ctx context.Context, p model.TaskProposal) (model.Task, error)
}

// OwnershipConverter clears the externally owned flag of cars handed to a task.
type OwnershipConverter interface {
	ConvertToManaged(cars []model.Car) error
}

// SpecialTarget is an explicit empty-haul destination chosen by a
// SpecialCarStrategy.
type SpecialTarget struct {
	Destination model.StationID
	Track       model.Track
}

// SpecialCarStrategy is an optional extension handling cars that the regular
// cargo tables do not describe.
type SpecialCarStrategy interface {
	IsSpecial(car model.Car) bool
	// Resolve returns a destination for the whole run or false when the run
	// cannot be placed as is.
	Resolve(station model.Station, cars []model.Car) (SpecialTarget, bool)
}

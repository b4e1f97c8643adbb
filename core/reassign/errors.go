package reassign

import (
	"errors"
	"fmt"

	"github.com/kilianp07/railjobs/core/host"
)

var (
	// ErrNoTrack is returned when no named or fitting track exists.
	ErrNoTrack = errors.New("reassign: no fitting track")
	// ErrNoDestination is returned when no station can take the cars.
	ErrNoDestination = errors.New("reassign: no destination")
	// ErrNoWarehouse is returned when no warehouse track fits the train.
	ErrNoWarehouse = errors.New("reassign: no warehouse track")
	// ErrNoCargo is returned when a car type carries none of a group's cargo.
	ErrNoCargo = errors.New("reassign: no loadable cargo")
	// ErrTrackStationMismatch signals a track owned by another yard than the
	// station it was selected for.
	ErrTrackStationMismatch = errors.New("reassign: track does not belong to station")
)

// CycleError aborts a cycle. Tasks finalized before it remain valid.
type CycleError struct {
	Phase Phase
	Err   error
	Stack []byte
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reassign: cycle aborted during %s: %v", e.Phase, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// IsLookupFailure reports whether err only means that cars stay idle.
func IsLookupFailure(err error) bool {
	return errors.Is(err, ErrNoTrack) ||
		errors.Is(err, ErrNoDestination) ||
		errors.Is(err, ErrNoWarehouse) ||
		errors.Is(err, ErrNoCargo) ||
		errors.Is(err, errSpecialUnplaced) ||
		errors.Is(err, host.ErrTaskDeclined)
}

// reason maps a drop cause to the label used in events and metrics.
func reason(err error) string {
	switch {
	case errors.Is(err, ErrTrackStationMismatch):
		return "mismatch"
	case errors.Is(err, ErrNoWarehouse):
		return "no_warehouse"
	case errors.Is(err, ErrNoTrack):
		return "no_track"
	case errors.Is(err, ErrNoCargo):
		return "no_cargo"
	case errors.Is(err, host.ErrTaskDeclined):
		return "declined"
	case errors.Is(err, errSpecialUnplaced):
		return "special_unplaced"
	default:
		return "no_destination"
	}
}

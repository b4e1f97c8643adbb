package model

// ReassignStatus is derived from a car snapshot on every call; it is never
// stored on the car.
type ReassignStatus int

const (
	StatusHasTask ReassignStatus = iota
	StatusEmpty
	StatusLoaded
	StatusNonRegular
	StatusSpecialCar
)

func (s ReassignStatus) String() string {
	switch s {
	case StatusHasTask:
		return "has_task"
	case StatusEmpty:
		return "empty"
	case StatusLoaded:
		return "loaded"
	case StatusNonRegular:
		return "non_regular"
	case StatusSpecialCar:
		return "special_car"
	default:
		return "unknown"
	}
}

package model

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// EmptyCargoThreshold is the cargo amount below which a car counts as empty.
const EmptyCargoThreshold = 0.001

type (
	CarID     string
	CarTypeID string
	CargoType string
	ConsistID string
)

// NoCargo marks a car that carries nothing.
const NoCargo CargoType = ""

// Car is a single rail unit as observed at the start of a cycle.
type Car struct {
	ID          CarID     `json:"id" yaml:"id"`
	Livery      string    `json:"livery" yaml:"livery"`
	Type        CarTypeID `json:"type" yaml:"type"`
	Cargo       CargoType `json:"cargo,omitempty" yaml:"cargo"`
	CargoAmount float64   `json:"cargo_amount,omitempty" yaml:"cargo_amount"`
	Length      float64   `json:"length" yaml:"length"`
	// Derailed is also set when the car has no track under its front bogie.
	Derailed bool `json:"derailed,omitempty" yaml:"derailed"`
	// ExternallyOwned marks cars spawned outside the regular lifecycle,
	// e.g. by the player.
	ExternallyOwned bool      `json:"externally_owned,omitempty" yaml:"externally_owned"`
	Regular         bool      `json:"regular" yaml:"regular"`
	HasTask         bool      `json:"has_task,omitempty" yaml:"has_task"`
	Consist         ConsistID `json:"consist" yaml:"consist"`
	Position        r3.Vec    `json:"position" yaml:"-"`
}

// Empty reports whether the car carries less than EmptyCargoThreshold.
func (c Car) Empty() bool {
	return c.CargoAmount < EmptyCargoThreshold
}

// Consist is an ordered sequence of coupled cars. Order is coupling order.
type Consist struct {
	ID   ConsistID `json:"id"`
	Cars []Car     `json:"cars"`
}

// CarIDs returns the identifiers of cars in order.
func CarIDs(cars []Car) []CarID {
	ids := make([]CarID, len(cars))
	for i, c := range cars {
		ids[i] = c.ID
	}
	return ids
}

// TrainLength returns the combined length of cars including the coupling
// gap between each pair and at both ends.
func TrainLength(cars []Car, separation float64) float64 {
	if len(cars) == 0 {
		return 0
	}
	total := separation * float64(len(cars)+1)
	for _, c := range cars {
		total += c.Length
	}
	return total
}

package model

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type StationID string

// TrackKind distinguishes the role a track plays in its yard.
type TrackKind int

const (
	TrackOther TrackKind = iota
	TrackStorage
	TrackTransferIn
	TrackTransferOut
	TrackWarehouse
	TrackPlatform
)

// String returns the lower-case name used in configuration files.
func (k TrackKind) String() string {
	switch k {
	case TrackStorage:
		return "storage"
	case TrackTransferIn:
		return "transfer_in"
	case TrackTransferOut:
		return "transfer_out"
	case TrackWarehouse:
		return "warehouse"
	case TrackPlatform:
		return "platform"
	default:
		return "other"
	}
}

// ParseTrackKind is the inverse of TrackKind.String.
func ParseTrackKind(s string) (TrackKind, error) {
	switch s {
	case "storage":
		return TrackStorage, nil
	case "transfer_in":
		return TrackTransferIn, nil
	case "transfer_out":
		return TrackTransferOut, nil
	case "warehouse":
		return TrackWarehouse, nil
	case "platform":
		return TrackPlatform, nil
	case "other", "":
		return TrackOther, nil
	}
	return TrackOther, fmt.Errorf("unknown track kind %q", s)
}

// TrackID identifies a named track. Yard is the owning station.
type TrackID struct {
	Yard StationID `json:"yard"`
	Name string    `json:"name"`
}

func (id TrackID) String() string {
	return fmt.Sprintf("%s-%s", id.Yard, id.Name)
}

// Track is a named track with its total usable length.
type Track struct {
	ID     TrackID   `json:"id"`
	Kind   TrackKind `json:"kind"`
	Length float64   `json:"length"`
}

// Ruleset bounds the tasks a station may generate.
type Ruleset struct {
	MaxCarsPerJob            int `json:"max_cars_per_job" yaml:"max_cars_per_job"`
	MaxShuntingStorageTracks int `json:"max_shunting_storage_tracks" yaml:"max_shunting_storage_tracks"`
}

// Relation ties a cargo group to a remote station with the maximum train
// length allowed on that route. Relations are compared by value.
type Relation struct {
	Group          string    `json:"group,omitempty"`
	Station        StationID `json:"station"`
	MaxTrainLength float64   `json:"max_train_length"`
}

// CargoGroup binds cargo types to remote stations. For outgoing groups the
// relations are destinations, for incoming groups they are sources.
type CargoGroup struct {
	ID              string      `json:"id"`
	CargoTypes      []CargoType `json:"cargo_types"`
	Relations       []Relation  `json:"relations"`
	WarehouseTracks []TrackID   `json:"warehouse_tracks"`
}

// Carries reports whether ct belongs to the group.
func (g CargoGroup) Carries(ct CargoType) bool {
	for _, c := range g.CargoTypes {
		if c == ct {
			return true
		}
	}
	return false
}

// Station is a yard with its job rules and cargo capabilities.
type Station struct {
	ID       StationID    `json:"id"`
	Name     string       `json:"name"`
	Position r3.Vec       `json:"position"`
	Rules    Ruleset      `json:"rules"`
	Tracks   []Track      `json:"tracks"`
	Outgoing []CargoGroup `json:"outgoing"`
	Incoming []CargoGroup `json:"incoming"`
}

// TracksOf returns the station tracks of the given kind in declaration order.
func (s Station) TracksOf(kind TrackKind) []Track {
	var out []Track
	for _, t := range s.Tracks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Track looks up a track by identifier.
func (s Station) Track(id TrackID) (Track, bool) {
	for _, t := range s.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

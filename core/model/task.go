package model

import (
	"fmt"

	"github.com/google/uuid"
)

// TaskKind enumerates the generated task types.
type TaskKind int

const (
	TaskEmptyHaul TaskKind = iota
	TaskTransport
	TaskShuntingLoad
	TaskShuntingUnload
)

// String returns a human-readable representation of the task kind.
func (k TaskKind) String() string {
	switch k {
	case TaskEmptyHaul:
		return "empty_haul"
	case TaskTransport:
		return "transport"
	case TaskShuntingLoad:
		return "shunting_load"
	case TaskShuntingUnload:
		return "shunting_unload"
	default:
		return "unknown"
	}
}

// ParseTaskKind is the inverse of TaskKind.String.
func ParseTaskKind(s string) (TaskKind, error) {
	for k := TaskEmptyHaul; k <= TaskShuntingUnload; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown task kind %q", s)
}

func (k TaskKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *TaskKind) UnmarshalText(b []byte) error {
	v, err := ParseTaskKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Pickup is a set of cars gathered from one starting track.
type Pickup struct {
	Track TrackID `json:"track"`
	Cars  []Car   `json:"cars"`
}

// TaskProposal is the engine's not yet finalized form of a task. Cargo holds
// one entry per car in the order returned by Cars.
type TaskProposal struct {
	ID               uuid.UUID   `json:"id"`
	Kind             TaskKind    `json:"kind"`
	Source           StationID   `json:"source"`
	Destination      StationID   `json:"destination"`
	Pickups          []Pickup    `json:"pickups"`
	DestinationTrack TrackID     `json:"destination_track"`
	Cargo            []CargoType `json:"cargo,omitempty"`
	CargoGroup       string      `json:"cargo_group,omitempty"`
	MaxTrainLength   float64     `json:"max_train_length"`
}

// Cars returns every car of the proposal in pickup order.
func (p TaskProposal) Cars() []Car {
	var out []Car
	for _, pk := range p.Pickups {
		out = append(out, pk.Cars...)
	}
	return out
}

// Task references a task object built by the host.
type Task struct {
	ID         string    `json:"id"`
	ProposalID uuid.UUID `json:"proposal_id"`
	Kind       TaskKind  `json:"kind"`
}

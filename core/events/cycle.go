package events

import (
	"time"

	"github.com/kilianp07/railjobs/core/model"
)

// PhaseEvent is published when a cycle enters a new phase.
type PhaseEvent struct {
	Phase string
	Seed  int64
}

// CycleEvent summarises a finished or aborted cycle.
type CycleEvent struct {
	Seed     int64
	Trigger  string
	Consumed int
	Deleted  int
	Tasks    int
	Duration time.Duration
	Err      error
}

// DroppedRunEvent is emitted for runs left idle during classification or
// batching. Reason is one of "no_destination", "no_track", "no_warehouse",
// "no_cargo", "declined", "mismatch" or "special_unplaced".
type DroppedRunEvent struct {
	Station model.StationID
	Cars    []model.CarID
	Reason  string
}

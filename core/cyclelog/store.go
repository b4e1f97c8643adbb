package cyclelog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/core/reassign"
)

// Record captures one cycle. Seed is enough to replay the cycle against the
// same world.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Seed      int64          `json:"seed"`
	Trigger   string         `json:"trigger"`
	Duration  time.Duration  `json:"duration"`
	Error     string         `json:"error,omitempty"`
	Deleted   []model.CarID  `json:"deleted,omitempty"`
	Tasks     []TaskEntry    `json:"tasks,omitempty"`
	Dropped   []DroppedEntry `json:"dropped,omitempty"`
}

// TaskEntry is a built task and the cars it took.
type TaskEntry struct {
	TaskID      string          `json:"task_id"`
	ProposalID  string          `json:"proposal_id"`
	Kind        model.TaskKind  `json:"kind"`
	Source      model.StationID `json:"source"`
	Destination model.StationID `json:"destination"`
	Cars        []model.CarID   `json:"cars"`
}

// DroppedEntry is a run of cars left idle.
type DroppedEntry struct {
	Station model.StationID `json:"station,omitempty"`
	Cars    []model.CarID   `json:"cars"`
	Reason  string          `json:"reason"`
}

// Aborted reports whether the cycle ended with an error.
func (r Record) Aborted() bool { return r.Error != "" }

// FromResult converts a cycle result into a Record.
func FromResult(res reassign.CycleResult, err error) Record {
	rec := Record{
		Timestamp: res.Started,
		Seed:      res.Seed,
		Trigger:   res.Trigger,
		Duration:  res.Duration,
		Deleted:   model.CarIDs(res.Deleted),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	proposals := make(map[string]model.TaskProposal, len(res.Proposals))
	for _, p := range res.Proposals {
		proposals[p.ID.String()] = p
	}
	for _, t := range res.Tasks {
		p := proposals[t.ProposalID.String()]
		rec.Tasks = append(rec.Tasks, TaskEntry{
			TaskID:      t.ID,
			ProposalID:  t.ProposalID.String(),
			Kind:        t.Kind,
			Source:      p.Source,
			Destination: p.Destination,
			Cars:        model.CarIDs(p.Cars()),
		})
	}
	for _, d := range res.Dropped {
		rec.Dropped = append(rec.Dropped, DroppedEntry{Station: d.Station, Cars: model.CarIDs(d.Cars), Reason: d.Reason()})
	}
	return rec
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Start       time.Time
	End         time.Time
	Trigger     string
	CarID       model.CarID
	Station     model.StationID
	AbortedOnly bool
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Trigger != "" && r.Trigger != q.Trigger {
		return false
	}
	if q.AbortedOnly && !r.Aborted() {
		return false
	}
	if q.CarID != "" && !r.mentions(q.CarID) {
		return false
	}
	if q.Station != "" && !r.touches(q.Station) {
		return false
	}
	return true
}

func (r Record) mentions(id model.CarID) bool {
	if slices.Contains(r.Deleted, id) {
		return true
	}
	for _, t := range r.Tasks {
		if slices.Contains(t.Cars, id) {
			return true
		}
	}
	for _, d := range r.Dropped {
		if slices.Contains(d.Cars, id) {
			return true
		}
	}
	return false
}

func (r Record) touches(s model.StationID) bool {
	for _, t := range r.Tasks {
		if t.Source == s || t.Destination == s {
			return true
		}
	}
	for _, d := range r.Dropped {
		if d.Station == s {
			return true
		}
	}
	return false
}

// Store persists cycle records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and tunes the store backend.
type Config struct {
	// Backend is "jsonl", "rotating" or "sqlite".
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "rotating"
	}
	if c.Path == "" {
		c.Path = "cycles.jsonl"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "rotating", "sqlite":
	default:
		return fmt.Errorf("cyclelog: unknown backend %q", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("cyclelog: path is required")
	}
	return nil
}

// Open creates the store selected by cfg.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return nil, fmt.Errorf("cyclelog: unknown backend %q", cfg.Backend)
}

package metrics

import (
	"time"

	"github.com/kilianp07/railjobs/core/model"
)

// CycleReport summarises one reassignment cycle.
type CycleReport struct {
	Seed     int64
	Trigger  string
	Consumed int
	Deleted  int
	Tasks    int
	Duration time.Duration
	Aborted  bool
	Error    string
	Time     time.Time
}

// CycleSink records cycle reports for observability purposes.
type CycleSink interface {
	RecordCycle(r CycleReport) error
}

// TaskRecord describes a proposal handed to the task builder.
type TaskRecord struct {
	ProposalID  string
	TaskID      string
	Kind        model.TaskKind
	Source      model.StationID
	Destination model.StationID
	Cars        int
	Length      float64
	Declined    bool
	Time        time.Time
}

// TaskRecorder is implemented by sinks able to record individual tasks.
type TaskRecorder interface {
	RecordTask(r TaskRecord) error
}

// DroppedRunRecord describes cars left idle.
type DroppedRunRecord struct {
	Station model.StationID
	Cars    int
	Reason  string
	Time    time.Time
}

// DroppedRunRecorder records runs left idle.
type DroppedRunRecorder interface {
	RecordDroppedRun(r DroppedRunRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleReport) error           { return nil }
func (NopSink) RecordTask(TaskRecord) error             { return nil }
func (NopSink) RecordDroppedRun(DroppedRunRecord) error { return nil }

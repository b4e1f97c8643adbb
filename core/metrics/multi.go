package metrics

import "errors"

// MultiSink fans records out to multiple sinks. Optional recorders are
// discovered per sink.
type MultiSink struct {
	Sinks []CycleSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...CycleSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the report to every sink and joins their errors.
func (m *MultiSink) RecordCycle(r CycleReport) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordCycle(r))
	}
	return errors.Join(errs...)
}

// RecordTask forwards task records to sinks implementing TaskRecorder.
func (m *MultiSink) RecordTask(r TaskRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(TaskRecorder); ok {
			errs = append(errs, rec.RecordTask(r))
		}
	}
	return errors.Join(errs...)
}

// RecordDroppedRun forwards dropped runs to sinks implementing
// DroppedRunRecorder.
func (m *MultiSink) RecordDroppedRun(r DroppedRunRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(DroppedRunRecorder); ok {
			errs = append(errs, rec.RecordDroppedRun(r))
		}
	}
	return errors.Join(errs...)
}

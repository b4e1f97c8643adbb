// Package metrics defines the sinks that record reassignment cycles. A sink
// must record CycleReport values and may also implement TaskRecorder or
// DroppedRunRecorder. Sinks are created from configuration through a factory
// registry and combined with NewMultiSink when several are configured.
package metrics

// Package events defines the reassignment related events emitted on the event bus.
//
// Available event types:
//   - PhaseEvent: a cycle entered a new phase
//   - ProposalEvent: a batcher produced a task proposal
//   - DroppedRunEvent: a run of cars could not be classified or placed
//   - TaskEvent: the task builder accepted or declined a proposal
//   - CycleEvent: a cycle finished or aborted
package events

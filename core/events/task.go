package events

import "github.com/kilianp07/railjobs/core/model"

// ProposalEvent is published for every proposal a batcher emits.
type ProposalEvent struct {
	Proposal model.TaskProposal
}

// TaskEvent reports the outcome of handing a proposal to the task builder.
type TaskEvent struct {
	Proposal model.TaskProposal
	Task     model.Task
	Err      error
}

package mqtt

import "github.com/kilianp07/railjobs/core/model"

// ReplyStatus is the outcome the host reports for a task request.
type ReplyStatus string

const (
	StatusBuilt    ReplyStatus = "built"
	StatusDeclined ReplyStatus = "declined"
	StatusFailed   ReplyStatus = "failed"
)

// TaskRequest asks the host to build a task from a proposal.
type TaskRequest struct {
	RequestID string             `json:"request_id"`
	Proposal  model.TaskProposal `json:"proposal"`
	Timestamp int64              `json:"timestamp"`
}

// TaskReply is the host's answer to a TaskRequest.
type TaskReply struct {
	RequestID string      `json:"request_id"`
	Status    ReplyStatus `json:"status"`
	TaskID    string      `json:"task_id,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

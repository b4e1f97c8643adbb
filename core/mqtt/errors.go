package mqtt

import "errors"

// ErrReplyTimeout is returned when the host does not answer a task request
// before the timeout.
var ErrReplyTimeout = errors.New("timeout waiting for task reply")

package monitoring

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	// CaptureException reports err. Tags are indexed; context is attached
	// as free-form data under the "cycle" key.
	CaptureException(err error, tags map[string]string, context map[string]any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string, map[string]any) {}
func (NopMonitor) Flush(time.Duration)                                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// Current returns the installed monitor.
func Current() Monitor { return current }

// CaptureException records the error with optional tags and context.
func CaptureException(err error, tags map[string]string, context map[string]any) {
	current.CaptureException(err, tags, context)
}

// Safe runs fn and converts a panic into an error reported with the stack
// and a module tag.
func Safe(module string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", module, r)
			current.CaptureException(err, map[string]string{"module": module}, map[string]any{"stack": string(debug.Stack())})
		}
	}()
	return fn()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	current.Flush(d)
}

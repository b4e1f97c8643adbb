// Package scheduler drives reassignment cycles from a single goroutine. It
// skips ticks while the observer is away or fast travelling and disables
// itself after a cycle fails unexpectedly.
package scheduler

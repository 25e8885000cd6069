// Package rendergate implements the Render Gate (spec.md §4.4): a single
// idempotent boolean gate that the Silent Mutation Layer holds open while it
// drives a batch of raw edits through the low-level editor, so the host
// renderer doesn't redraw between individual element operations.
package rendergate

import "sync/atomic"

// Gate is an idempotent suspend/resume latch. Multiple Suspend calls in a
// row are harmless; so are multiple Resume calls. It is the caller's
// responsibility to pair every Suspend with exactly one Resume (the mutation
// layer does this via defer so the gate is guaranteed to release on every
// exit path, including panics).
type Gate struct {
	suspended atomic.Bool
}

// New returns a released gate.
func New() *Gate {
	return &Gate{}
}

// Suspend sets the gate to suspended. Idempotent: calling it while already
// suspended is a no-op.
func (g *Gate) Suspend() {
	g.suspended.Store(true)
}

// Resume releases the gate. Idempotent: calling it while already released is
// a no-op.
func (g *Gate) Resume() {
	g.suspended.Store(false)
}

// IsSuspended reports the gate's current state.
func (g *Gate) IsSuspended() bool {
	return g.suspended.Load()
}

// Package detect coordinates deadlock-detection rounds across all
// processes of a simulation.
//
// At most one detection round may be in flight system-wide. A process
// whose resource request has gone stale tries to claim the round; if
// another round is already running it simply skips and retries on a later
// pass. The round is released only by the process that confirms the cycle,
// i.e. the initiator receiving its own probe back.
package detect

import "golang.org/x/sync/semaphore"

// Coordinator is the process-wide single-flight gate for detection rounds.
type Coordinator struct {
	sem *semaphore.Weighted
}

// NewCoordinator creates a coordinator with no round in flight.
func NewCoordinator() *Coordinator {
	return &Coordinator{sem: semaphore.NewWeighted(1)}
}

// TryBegin claims the gate. It reports false without blocking when another
// round is already in flight.
func (c *Coordinator) TryBegin() bool { return c.sem.TryAcquire(1) }

// End releases the gate, allowing the next round to start. Must only be
// called after a successful TryBegin.
func (c *Coordinator) End() { c.sem.Release(1) }

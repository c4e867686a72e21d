package node

import "github.com/abhi170599/ds-deadlock-detection/core/metrics"

// SimMetrics defines the instrumentation hooks for the simulation.
// All methods must be safe for concurrent use; every node goroutine
// reports through the same instance.
type SimMetrics interface {
	// Probe traffic
	ProbeSent(initiator int)
	ProbeDelivered()
	ProbeDropped()

	// Detection rounds
	DetectionStarted()
	DetectionSkipped()
	DeadlockConfirmed(nodeID int)

	// Resource lifecycle
	ResourceAcquired()
	ResourceReleased()
	RequestsPending(nodeID int, n int)

	// Run loop
	PassDuration() metrics.Timer
}

// nopSimMetrics is a no-op implementation of SimMetrics.
type nopSimMetrics struct{}

func (nopSimMetrics) ProbeSent(int)   {}
func (nopSimMetrics) ProbeDelivered() {}
func (nopSimMetrics) ProbeDropped()   {}

func (nopSimMetrics) DetectionStarted()     {}
func (nopSimMetrics) DetectionSkipped()     {}
func (nopSimMetrics) DeadlockConfirmed(int) {}

func (nopSimMetrics) ResourceAcquired()        {}
func (nopSimMetrics) ResourceReleased()        {}
func (nopSimMetrics) RequestsPending(int, int) {}

func (nopSimMetrics) PassDuration() metrics.Timer { return metrics.NopTimer() }

// NopSimMetrics returns a no-op SimMetrics implementation.
func NopSimMetrics() SimMetrics { return nopSimMetrics{} }

// Package node implements the simulated processes of the distributed
// environment: the request/acquire/release lifecycle over a shared
// resource pool, and the Chandy-Misra-Haas edge-chasing protocol that
// detects deadlocks in the resulting wait-for graph.
//
// Each node runs on its own goroutine and owns its mailbox and request
// list exclusively. Nodes never reach into each other's state: all
// cross-node effects travel as probe messages through mailboxes, looked
// up via a shared read-only directory.
package node

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/abhi170599/ds-deadlock-detection/core/detect"
	"github.com/abhi170599/ds-deadlock-detection/core/probe"
	"github.com/abhi170599/ds-deadlock-detection/core/resource"
)

// Default timings for the process run loop.
const (
	DefaultRunTime        = 60 * time.Second
	DefaultRequestTimeout = 5 * time.Second
	DefaultUsageTime      = 10 * time.Second
	DefaultInterval       = 5 * time.Second
)

// Directory is the read-only mapping from process id to node shared by
// every node. It is fully populated by the harness before any node starts
// and never mutated afterwards, so no synchronization is needed on it.
type Directory map[int]*Node

// Outcome describes how a node's run ended.
type Outcome int

const (
	// Completed means the node ran out its time budget.
	Completed Outcome = iota
	// Deadlocked means the node confirmed a cycle it initiated and
	// terminated via harakiri.
	Deadlocked
	// Cancelled means the surrounding context was cancelled.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Deadlocked:
		return "deadlocked"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Options configures a Node. Zero values are replaced with defaults.
type Options struct {
	ID          int
	Pool        []*resource.Resource
	Coordinator *detect.Coordinator

	Picker  Picker
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics SimMetrics

	RunTime        time.Duration
	RequestTimeout time.Duration
	UsageTime      time.Duration
	Interval       time.Duration
	MailboxSize    int
}

// Node is one simulated process. The mailbox is written by peers and read
// only by the node itself; the request list is owned exclusively by the
// node's goroutine.
type Node struct {
	id    int
	pool  []*resource.Resource
	coord *detect.Coordinator

	picker  Picker
	clk     clock.Clock
	log     *slog.Logger
	metrics SimMetrics

	runTime        time.Duration
	requestTimeout time.Duration
	usageTime      time.Duration
	interval       time.Duration

	mailbox   *probe.Mailbox
	directory Directory
	requests  []*resource.Request
}

// New creates a node. The directory is wired separately via SetDirectory
// once all nodes exist.
func New(opt Options) *Node {
	if opt.Clock == nil {
		opt.Clock = clock.New()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Metrics == nil {
		opt.Metrics = NopSimMetrics()
	}
	if opt.Picker == nil {
		opt.Picker = NewRandomPicker(time.Now().UnixNano() + int64(opt.ID))
	}
	if opt.Coordinator == nil {
		opt.Coordinator = detect.NewCoordinator()
	}
	if opt.RunTime <= 0 {
		opt.RunTime = DefaultRunTime
	}
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = DefaultRequestTimeout
	}
	if opt.UsageTime <= 0 {
		opt.UsageTime = DefaultUsageTime
	}
	if opt.Interval <= 0 {
		opt.Interval = DefaultInterval
	}

	return &Node{
		id:             opt.ID,
		pool:           opt.Pool,
		coord:          opt.Coordinator,
		picker:         opt.Picker,
		clk:            opt.Clock,
		log:            opt.Logger.With(slog.Int("process", opt.ID)),
		metrics:        opt.Metrics,
		runTime:        opt.RunTime,
		requestTimeout: opt.RequestTimeout,
		usageTime:      opt.UsageTime,
		interval:       opt.Interval,
		mailbox:        probe.NewMailbox(opt.MailboxSize),
	}
}

// ID returns the process id.
func (n *Node) ID() int { return n.id }

// SetDirectory wires the shared process directory. Must be called before
// Run; the directory must not change afterwards.
func (n *Node) SetDirectory(d Directory) { n.directory = d }

// Deliver enqueues a probe into this node's mailbox. Safe to call from any
// other node's goroutine. It reports false when the mailbox is full.
func (n *Node) Deliver(m probe.Message) bool { return n.mailbox.Put(m) }

// Run executes the process until its time budget elapses, ctx is
// cancelled, or the node resolves a deadlock it initiated.
func (n *Node) Run(ctx context.Context) Outcome {
	deadline := n.clk.Now().Add(n.runTime)
	n.log.Info("process started")

	for n.clk.Now().Before(deadline) {
		pt := n.metrics.PassDuration()

		n.requestResources()

		if n.handleProbe() {
			n.harakiri()
			pt.ObserveDuration()
			n.log.Info("process terminated", slog.String("outcome", Deadlocked.String()))
			return Deadlocked
		}

		if n.scanRequests() {
			n.initiateDetection()
		} else {
			n.releaseDone()
		}

		pt.ObserveDuration()

		select {
		case <-ctx.Done():
			n.log.Info("process terminated", slog.String("outcome", Cancelled.String()))
			return Cancelled
		case <-n.clk.After(n.interval):
		}
	}

	n.log.Info("process terminated",
		slog.String("outcome", Completed.String()),
		slog.Int("open_requests", len(n.requests)))
	return Completed
}

// requestResources draws a fresh random subset of the pool when the node
// has no outstanding requests. An empty draw means the node idles this
// pass.
func (n *Node) requestResources() {
	if len(n.requests) > 0 {
		return
	}
	for _, res := range n.picker.Pick(n.pool) {
		n.log.Info("resource requested", slog.Int("resource", res.ID()))
		n.requests = append(n.requests, resource.NewRequest(res, n.clk))
	}
	n.metrics.RequestsPending(n.id, len(n.requests))
}

// handleProbe drains at most one inbound probe. A probe carrying this
// node's own id as initiator proves a cycle back to it in the wait-for
// graph: the detection round ends and the node must terminate. Any other
// probe is forwarded along the node's own stale edges, initiator
// unchanged.
func (n *Node) handleProbe() (deadlocked bool) {
	m, ok := n.mailbox.TryGet()
	if !ok {
		return false
	}
	n.metrics.ProbeDelivered()
	n.log.Info("probe received",
		slog.Int("initiator", m.Initiator),
		slog.Int("sender", m.Sender))

	if m.Initiator == n.id {
		n.log.Warn("deadlock detected")
		n.metrics.DeadlockConfirmed(n.id)
		n.coord.End()
		return true
	}

	n.sendProbes(m)
	return false
}

// scanRequests tries to acquire every pending request and reports whether
// a detection round should be initiated. The first stale pending request
// found triggers; later requests are left for the next pass.
func (n *Node) scanRequests() (initiateDetection bool) {
	for _, rq := range n.requests {
		res := rq.Resource()
		if res.AcquireIfFree(n.id) {
			n.metrics.ResourceAcquired()
			n.log.Info("resource acquired", slog.Int("resource", res.ID()))
			continue
		}
		if res.Holder() == n.id {
			// granted on an earlier pass
			continue
		}
		if rq.OlderThan(n.requestTimeout) {
			n.log.Info("resource request timed out", slog.Int("resource", res.ID()))
			return true
		}
	}
	return false
}

// initiateDetection claims the system-wide single-flight gate and, on
// success, starts a round with this node as initiator. If another round is
// already in flight the attempt is silently skipped until a later pass.
func (n *Node) initiateDetection() {
	if !n.coord.TryBegin() {
		n.metrics.DetectionSkipped()
		n.log.Debug("detection round already in flight, skipping")
		return
	}
	n.metrics.DetectionStarted()
	n.log.Info("initiating deadlock detection")
	n.sendProbes(probe.Message{Initiator: n.id})
}

// sendProbes emits one probe per stale request to the process currently
// holding that request's resource, preserving m's initiator. Requests
// whose resource is free or already held by this node are not wait-for
// edges and are skipped.
func (n *Node) sendProbes(m probe.Message) {
	for _, rq := range n.requests {
		if !rq.OlderThan(n.requestTimeout) {
			continue
		}
		holder := rq.Resource().Holder()
		if holder == resource.Free || holder == n.id {
			continue
		}
		peer, ok := n.directory[holder]
		if !ok {
			continue
		}

		out := m.Forward(n.id, holder)
		if !peer.Deliver(out) {
			n.metrics.ProbeDropped()
			n.log.Warn("probe dropped, mailbox full", slog.Int("receiver", holder))
			continue
		}
		n.metrics.ProbeSent(out.Initiator)
		n.log.Info("probe sent",
			slog.Int("initiator", out.Initiator),
			slog.Int("receiver", holder))
	}
}

// releaseDone gives back held resources whose usage time is up, removing
// their requests from the list. Pending requests are kept.
func (n *Node) releaseDone() {
	kept := n.requests[:0]
	for _, rq := range n.requests {
		res := rq.Resource()
		if res.Holder() == n.id && rq.OlderThan(n.usageTime) {
			res.Release()
			n.metrics.ResourceReleased()
			n.log.Info("resource released", slog.Int("resource", res.ID()))
			continue
		}
		kept = append(kept, rq)
	}
	n.requests = kept
	n.metrics.RequestsPending(n.id, len(n.requests))
}

// harakiri breaks a confirmed deadlock by removing this node's demand
// entirely: held resources are freed regardless of usage time and pending
// requests are dropped.
func (n *Node) harakiri() {
	n.log.Warn("performing harakiri", slog.Int("open_requests", len(n.requests)))
	for _, rq := range n.requests {
		res := rq.Resource()
		if res.Holder() == n.id {
			res.Release()
			n.metrics.ResourceReleased()
			n.log.Info("resource released", slog.Int("resource", res.ID()))
		}
	}
	n.requests = nil
	n.metrics.RequestsPending(n.id, 0)
}

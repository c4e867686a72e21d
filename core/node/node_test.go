package node

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/abhi170599/ds-deadlock-detection/core/detect"
	"github.com/abhi170599/ds-deadlock-detection/core/probe"
	"github.com/abhi170599/ds-deadlock-detection/core/resource"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestNode(t *testing.T, id int, pool []*resource.Resource, coord *detect.Coordinator, clk clock.Clock) *Node {
	t.Helper()
	return New(Options{
		ID:          id,
		Pool:        pool,
		Coordinator: coord,
		Clock:       clk,
		Logger:      discardLogger(),
	})
}

func pendingRequest(n *Node, res *resource.Resource) {
	n.requests = append(n.requests, resource.NewRequest(res, n.clk))
}

func pickNone() Picker {
	return PickerFunc(func([]*resource.Resource) []*resource.Resource { return nil })
}

func TestNode_RequestResources(t *testing.T) {
	pool := resource.NewPool(3)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), clock.NewMock())

	n.picker = PickerFunc(func(pool []*resource.Resource) []*resource.Resource {
		return []*resource.Resource{pool[0], pool[2]}
	})
	n.requestResources()
	require.Len(t, n.requests, 2)
	require.Equal(t, pool[0], n.requests[0].Resource())
	require.Equal(t, pool[2], n.requests[1].Resource())

	// no re-draw while requests are outstanding
	n.requestResources()
	require.Len(t, n.requests, 2)
}

func TestNode_RequestResources_EmptyDrawIdles(t *testing.T) {
	pool := resource.NewPool(3)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), clock.NewMock())
	n.picker = pickNone()

	n.requestResources()
	require.Empty(t, n.requests)
	require.False(t, n.scanRequests())
}

func TestScanRequests_AcquiresFreeResources(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(2)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), mock)

	pendingRequest(n, pool[0])
	pendingRequest(n, pool[1])

	require.False(t, n.scanRequests())
	require.Equal(t, 1, pool[0].Holder())
	require.Equal(t, 1, pool[1].Holder())

	// held requests never trigger detection, however old they get
	mock.Add(time.Minute)
	require.False(t, n.scanRequests())
}

func TestScanRequests_StaleWaitTriggersDetection(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(1)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), mock)

	require.True(t, pool[0].AcquireIfFree(2))
	pendingRequest(n, pool[0])

	require.False(t, n.scanRequests())

	mock.Add(DefaultRequestTimeout + time.Millisecond)
	require.True(t, n.scanRequests())
}

func TestReleaseDone_UsageElapsed(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(2)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), mock)

	pendingRequest(n, pool[0])
	require.False(t, n.scanRequests()) // grants the request

	mock.Add(DefaultUsageTime + time.Millisecond)

	// a second, younger request is kept
	pendingRequest(n, pool[1])

	n.releaseDone()
	require.Equal(t, resource.Free, pool[0].Holder())
	require.Len(t, n.requests, 1)
	require.Equal(t, pool[1], n.requests[0].Resource())
}

func TestReleaseDone_KeepsPendingRequests(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(1)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), mock)

	require.True(t, pool[0].AcquireIfFree(2))
	pendingRequest(n, pool[0])

	mock.Add(time.Minute)
	n.releaseDone()

	// the resource belongs to process 2; waiting long does not release it
	require.Equal(t, 2, pool[0].Holder())
	require.Len(t, n.requests, 1)
}

func TestHandleProbe_EmptyMailbox(t *testing.T) {
	pool := resource.NewPool(1)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), clock.NewMock())

	require.False(t, n.handleProbe())
}

func TestHandleProbe_ForwardPreservesInitiator(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(2)
	coord := detect.NewCoordinator()

	n1 := newTestNode(t, 1, pool, coord, mock)
	n2 := newTestNode(t, 2, pool, coord, mock)
	dir := Directory{1: n1, 2: n2}
	n1.SetDirectory(dir)
	n2.SetDirectory(dir)

	// process 2 waits on resource 1, held by process 1
	require.True(t, pool[0].AcquireIfFree(1))
	pendingRequest(n2, pool[0])
	mock.Add(DefaultRequestTimeout + time.Millisecond)

	// a transit probe initiated elsewhere arrives at process 2
	require.True(t, n2.Deliver(probe.Message{Initiator: 9, Sender: 3, Receiver: 2}))
	require.False(t, n2.handleProbe())

	m, ok := n1.mailbox.TryGet()
	require.True(t, ok)
	require.Equal(t, probe.Message{Initiator: 9, Sender: 2, Receiver: 1}, m)
}

// TestDetection_CycleConfirmed drives the two-process circular wait through
// a full detection round: 1 holds resource 1 and waits on resource 2, 2
// holds resource 2 and waits on resource 1. The probe travels 1 -> 2 -> 1,
// the initiator confirms the cycle and harakiri breaks it.
func TestDetection_CycleConfirmed(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(2)
	coord := detect.NewCoordinator()

	n1 := newTestNode(t, 1, pool, coord, mock)
	n2 := newTestNode(t, 2, pool, coord, mock)
	dir := Directory{1: n1, 2: n2}
	n1.SetDirectory(dir)
	n2.SetDirectory(dir)

	require.True(t, pool[0].AcquireIfFree(1))
	require.True(t, pool[1].AcquireIfFree(2))
	pendingRequest(n1, pool[0])
	pendingRequest(n1, pool[1])
	pendingRequest(n2, pool[1])
	pendingRequest(n2, pool[0])

	mock.Add(DefaultRequestTimeout + time.Millisecond)

	// process 1 notices its stale wait and starts the round
	require.True(t, n1.scanRequests())
	n1.initiateDetection()
	require.Equal(t, 1, n2.mailbox.Len())

	// process 2 forwards the transit probe along its own stale edge
	require.False(t, n2.handleProbe())
	require.Equal(t, 1, n1.mailbox.Len())

	// the probe is back at its initiator: deadlock
	require.True(t, n1.handleProbe())
	n1.harakiri()

	require.Equal(t, resource.Free, pool[0].Holder())
	require.Equal(t, 2, pool[1].Holder())
	require.Empty(t, n1.requests)

	// the confirming process released the single-flight gate
	require.True(t, coord.TryBegin())
}

func TestInitiateDetection_SkipsWhenRoundInFlight(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(2)
	coord := detect.NewCoordinator()

	n1 := newTestNode(t, 1, pool, coord, mock)
	n2 := newTestNode(t, 2, pool, coord, mock)
	dir := Directory{1: n1, 2: n2}
	n1.SetDirectory(dir)
	n2.SetDirectory(dir)

	require.True(t, pool[0].AcquireIfFree(1))
	pendingRequest(n2, pool[0])
	mock.Add(DefaultRequestTimeout + time.Millisecond)

	require.True(t, coord.TryBegin()) // another round is in flight

	n2.initiateDetection()
	require.Equal(t, 0, n1.mailbox.Len())
}

func TestHarakiri_ReleasesHeldAndDropsPending(t *testing.T) {
	mock := clock.NewMock()
	pool := resource.NewPool(2)
	n := newTestNode(t, 1, pool, detect.NewCoordinator(), mock)

	require.True(t, pool[0].AcquireIfFree(1)) // held by us
	require.True(t, pool[1].AcquireIfFree(2)) // held by someone else
	pendingRequest(n, pool[0])
	pendingRequest(n, pool[1])

	n.harakiri()

	require.Equal(t, resource.Free, pool[0].Holder())
	require.Equal(t, 2, pool[1].Holder())
	require.Empty(t, n.requests)
}

func TestRun_BudgetExpires(t *testing.T) {
	pool := resource.NewPool(1)
	n := New(Options{
		ID:       1,
		Pool:     pool,
		Picker:   pickNone(),
		Logger:   discardLogger(),
		RunTime:  50 * time.Millisecond,
		Interval: 5 * time.Millisecond,
	})
	n.SetDirectory(Directory{1: n})

	require.Equal(t, Completed, n.Run(context.Background()))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := resource.NewPool(1)
	n := New(Options{
		ID:       1,
		Pool:     pool,
		Picker:   pickNone(),
		Logger:   discardLogger(),
		RunTime:  time.Hour,
		Interval: 50 * time.Millisecond,
	})
	n.SetDirectory(Directory{1: n})

	require.Equal(t, Cancelled, n.Run(ctx))
}

func TestRandomPicker(t *testing.T) {
	pool := resource.NewPool(5)

	p := NewRandomPicker(1)
	for i := 0; i < 100; i++ {
		picked := p.Pick(pool)
		require.Less(t, len(picked), len(pool))
		seen := make(map[int]bool, len(picked))
		for _, r := range picked {
			require.Contains(t, pool, r)
			require.False(t, seen[r.ID()], "picked the same resource twice")
			seen[r.ID()] = true
		}
	}

	// same seed, same draws
	a, b := NewRandomPicker(7), NewRandomPicker(7)
	for i := 0; i < 10; i++ {
		require.Equal(t, a.Pick(pool), b.Pick(pool))
	}
}

func TestRandomPicker_EmptyPool(t *testing.T) {
	p := NewRandomPicker(1)
	require.Empty(t, p.Pick(nil))
}

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "completed", Completed.String())
	require.Equal(t, "deadlocked", Deadlocked.String())
	require.Equal(t, "cancelled", Cancelled.String())
}

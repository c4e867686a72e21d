package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abhi170599/ds-deadlock-detection/core/node"
	"github.com/abhi170599/ds-deadlock-detection/core/resource"
	"github.com/abhi170599/ds-deadlock-detection/core/sim"
)

// pickOwn returns a picker that only ever pursues the pool entry at index i.
func pickOwn(i int) node.Picker {
	return node.PickerFunc(func(pool []*resource.Resource) []*resource.Resource {
		return []*resource.Resource{pool[i]}
	})
}

// Three processes each cycle through their own private resource: no wait
// ever goes stale, no detection round confirms a cycle, and every process
// runs out its time budget.
func TestSimulation_NoCycle_RunsToBudget(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	summary, err := sim.Run(context.Background(), sim.Options{
		Processes:      3,
		Resources:      5,
		RunTime:        300 * time.Millisecond,
		RequestTimeout: 50 * time.Millisecond,
		UsageTime:      80 * time.Millisecond,
		Interval:       10 * time.Millisecond,
		Logger:         log,
		Pickers: map[int]node.Picker{
			1: pickOwn(0),
			2: pickOwn(1),
			3: pickOwn(2),
		},
	})
	require.NoError(t, err)
	require.True(t, summary.Deadlocked.IsEmpty())
	require.Equal(t, 3, summary.Completed.Len())
}

// Package sim wires the simulated world together: the resource pool, the
// process nodes, the shared directory and the detection coordinator, and
// runs every process to completion.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/abhi170599/ds-deadlock-detection/core/detect"
	"github.com/abhi170599/ds-deadlock-detection/core/ds"
	"github.com/abhi170599/ds-deadlock-detection/core/node"
	"github.com/abhi170599/ds-deadlock-detection/core/resource"
)

// Default world size.
const (
	DefaultProcesses = 5
	DefaultResources = 3
)

// Options configures a simulation run. Zero values are replaced with
// defaults.
type Options struct {
	Processes int
	Resources int

	RunTime        time.Duration
	RequestTimeout time.Duration
	UsageTime      time.Duration
	Interval       time.Duration
	MailboxSize    int

	Seed    int64
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics node.SimMetrics

	// Pickers optionally overrides the resource picker per process id.
	// Processes without an entry use a seeded RandomPicker.
	Pickers map[int]node.Picker
}

// Summary reports how each process's run ended.
type Summary struct {
	RunID string
	// Deadlocked holds ids of processes that confirmed a cycle and
	// terminated via harakiri.
	Deadlocked *ds.Set[int]
	// Completed holds ids of processes that ran out their time budget or
	// were cancelled.
	Completed *ds.Set[int]
}

func (o Options) withDefaults() Options {
	if o.Processes == 0 {
		o.Processes = DefaultProcesses
	}
	if o.Resources == 0 {
		o.Resources = DefaultResources
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = node.NopSimMetrics()
	}
	return o
}

// Run builds the world described by opt and runs every process
// concurrently until all have finished. It blocks until then.
func Run(ctx context.Context, opt Options) (*Summary, error) {
	opt = opt.withDefaults()
	if opt.Processes < 0 {
		return nil, fmt.Errorf("invalid process count: %d", opt.Processes)
	}
	if opt.Resources < 0 {
		return nil, fmt.Errorf("invalid resource count: %d", opt.Resources)
	}

	runID := fmt.Sprintf("sim-%s", gonanoid.Must(6))
	log := opt.Logger.With(slog.String("run", runID))

	pool := resource.NewPool(opt.Resources)
	coord := detect.NewCoordinator()

	directory := make(node.Directory, opt.Processes)
	nodes := make([]*node.Node, 0, opt.Processes)
	for id := 1; id <= opt.Processes; id++ {
		picker := opt.Pickers[id]
		if picker == nil {
			picker = node.NewRandomPicker(opt.Seed + int64(id))
		}
		n := node.New(node.Options{
			ID:             id,
			Pool:           pool,
			Coordinator:    coord,
			Picker:         picker,
			Clock:          opt.Clock,
			Logger:         log,
			Metrics:        opt.Metrics,
			RunTime:        opt.RunTime,
			RequestTimeout: opt.RequestTimeout,
			UsageTime:      opt.UsageTime,
			Interval:       opt.Interval,
			MailboxSize:    opt.MailboxSize,
		})
		directory[n.ID()] = n
		nodes = append(nodes, n)
	}
	for _, n := range nodes {
		n.SetDirectory(directory)
	}

	log.Info("world created",
		slog.Int("processes", opt.Processes),
		slog.Int("resources", opt.Resources))

	summary := &Summary{
		RunID:      runID,
		Deadlocked: ds.NewSet[int](),
		Completed:  ds.NewSet[int](),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, n := range nodes {
		wg.Add(1)
		go func(n *node.Node) {
			defer wg.Done()
			outcome := n.Run(ctx)

			mu.Lock()
			defer mu.Unlock()
			if outcome == node.Deadlocked {
				summary.Deadlocked.Add(n.ID())
			} else {
				summary.Completed.Add(n.ID())
			}
		}(n)
	}
	wg.Wait()

	log.Info("simulation finished",
		slog.Any("deadlocked", summary.Deadlocked),
		slog.Any("completed", summary.Completed))
	return summary, nil
}

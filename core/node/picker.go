package node

import (
	"math/rand"
	"sync"

	"github.com/abhi170599/ds-deadlock-detection/core/resource"
)

// Picker chooses which resources a process pursues when it has no
// outstanding requests. Implementations may return an empty slice, in
// which case the process idles that pass.
type Picker interface {
	Pick(pool []*resource.Resource) []*resource.Resource
}

// PickerFunc adapts a function to the Picker interface.
type PickerFunc func(pool []*resource.Resource) []*resource.Resource

// Pick calls f.
func (f PickerFunc) Pick(pool []*resource.Resource) []*resource.Resource { return f(pool) }

// RandomPicker draws a random subset of the pool: a count in [0, len-1]
// of consecutive resources taken from a random starting offset, wrapping
// around the pool.
type RandomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPicker creates a picker seeded with seed.
func NewRandomPicker(seed int64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewSource(seed))}
}

// Pick draws the subset. Safe for concurrent use.
func (p *RandomPicker) Pick(pool []*resource.Resource) []*resource.Resource {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(pool) == 0 {
		return nil
	}

	n := p.rng.Intn(len(pool))
	idx := p.rng.Intn(n + 1)

	picked := make([]*resource.Resource, 0, n)
	for i := 0; i < n; i++ {
		picked = append(picked, pool[idx])
		idx = (idx + 1) % len(pool)
	}
	return picked
}

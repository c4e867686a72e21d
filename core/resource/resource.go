// Package resource models the exclusive units of contention shared by the
// simulated processes, together with the timestamped requests processes
// raise against them.
package resource

import (
	"fmt"
	"sync"
)

// Free is the holder id of an unassigned resource. Process ids start at 1.
const Free = 0

// Resource is an exclusively held unit of contention. At any instant it is
// held by at most one process; ownership transitions happen only under the
// resource's own mutex.
type Resource struct {
	id int

	mu     sync.Mutex
	holder int
}

// New creates a free resource with the given id.
func New(id int) *Resource { return &Resource{id: id} }

// NewPool creates m free resources with ids 1..m.
func NewPool(m int) []*Resource {
	pool := make([]*Resource, 0, m)
	for i := 1; i <= m; i++ {
		pool = append(pool, New(i))
	}
	return pool
}

// ID returns the resource id.
func (r *Resource) ID() int { return r.id }

// AcquireIfFree assigns the resource to holder if it is currently free and
// reports whether the assignment happened. It never blocks waiting for the
// resource to become free; a failed attempt has no side effects.
func (r *Resource) AcquireIfFree(holder int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.holder != Free {
		return false
	}
	r.holder = holder
	return true
}

// Holder returns the id of the process currently holding the resource, or
// Free.
func (r *Resource) Holder() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holder
}

// Release frees the resource. Releasing an already-free resource is a no-op.
func (r *Resource) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holder = Free
}

func (r *Resource) String() string { return fmt.Sprintf("resource-%d", r.id) }

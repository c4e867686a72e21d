package resource

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Request is a process's outstanding interest in a resource, pending or
// already granted. The creation timestamp never changes: while the request
// is pending its age drives the wait-suspect check, and once granted the
// same age drives the usage-complete check. A request that is granted on a
// later pass is not re-stamped, so its age reflects the real contention
// duration.
type Request struct {
	res       *Resource
	clk       clock.Clock
	createdAt time.Time
}

// NewRequest records interest in res, stamped with the current time.
func NewRequest(res *Resource, clk clock.Clock) *Request {
	return &Request{res: res, clk: clk, createdAt: clk.Now()}
}

// Resource returns the resource this request is for.
func (rq *Request) Resource() *Resource { return rq.res }

// OlderThan reports whether the request was created more than d ago.
func (rq *Request) OlderThan(d time.Duration) bool {
	return rq.clk.Since(rq.createdAt) > d
}

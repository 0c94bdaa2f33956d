package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrRequestNotFound is returned when no request carries the given name.
	ErrRequestNotFound = errors.New("request not found")
	// ErrDuplicateRequest is returned when a request name is already taken.
	ErrDuplicateRequest = errors.New("duplicate request name")
)

// Request is a named demand for outflow from a store.
// A negative Amount is a reservation: it is never granted, and holds its
// magnitude back from the pool available to lower-priority requests.
type Request struct {
	Name     string
	Amount   float64
	Priority int // lower value is served first; ties keep insertion order
}

// NewRequest creates a request with zero demand.
func NewRequest(name string, priority int) *Request {
	return &Request{Name: name, Priority: priority}
}

// String returns a human-readable representation of a Request.
func (r Request) String() string {
	return fmt.Sprintf("Request: (Name: %s, Amount: %g, Priority: %d)", r.Name, r.Amount, r.Priority)
}

// Allocation is the outcome of rationing one request.
type Allocation struct {
	Name      string
	Requested float64
	Granted   float64
}

// Allocator owns the requests drawing on a single store.
// Request names are unique within an Allocator.
type Allocator struct {
	requests []*Request // insertion order
}

// NewAllocator creates an Allocator holding reqs in the given order.
func NewAllocator(reqs ...*Request) (*Allocator, error) {
	a := &Allocator{}
	for _, r := range reqs {
		if err := a.Add(r); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Add appends a request. Names must be unique.
func (a *Allocator) Add(r *Request) error {
	if r == nil {
		panic("Allocator.Add: request must not be nil")
	}
	if a.Has(r.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateRequest, r.Name)
	}
	a.requests = append(a.requests, r)
	return nil
}

// Has reports whether a request with the given name exists.
func (a *Allocator) Has(name string) bool {
	for _, r := range a.requests {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Request returns the request with the given name.
// The returned pointer is live: collaborators set Amount on it between cycles.
func (a *Allocator) Request(name string) (*Request, error) {
	for _, r := range a.requests {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrRequestNotFound, name)
}

// Len returns the number of requests.
func (a *Allocator) Len() int {
	return len(a.requests)
}

// Total returns the sum of all current request amounts.
// It is recomputed on every call so in-place mutations are always reflected.
func (a *Allocator) Total() float64 {
	total := 0.0
	for _, r := range a.requests {
		total += r.Amount
	}
	return total
}

// Requests returns the requests in rationing order: ascending Priority,
// insertion order among equal priorities. The slice is a copy; the
// requests are not.
func (a *Allocator) Requests() []*Request {
	ordered := make([]*Request, len(a.requests))
	copy(ordered, a.requests)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// Ration apportions available volume among the requests.
//
// Requests are served in rationing order until the pool is exhausted; the
// first request that does not fit gets the remainder and the rest get
// nothing. A reservation (negative amount) is granted zero and shrinks the
// pool left for the requests after it, so the grants never exceed available
// and never go negative.
func (a *Allocator) Ration(available float64) []Allocation {
	ordered := a.Requests()
	out := make([]Allocation, 0, len(ordered))
	pool := math.Max(available, 0)

	for _, r := range ordered {
		granted := 0.0
		if r.Amount < 0 {
			pool = math.Max(pool+r.Amount, 0)
		} else {
			granted = math.Min(r.Amount, pool)
			pool -= granted
		}
		out = append(out, Allocation{Name: r.Name, Requested: r.Amount, Granted: granted})
	}
	return out
}

// Granted sums the granted volume of a rationing result.
func Granted(allocs []Allocation) float64 {
	total := 0.0
	for _, a := range allocs {
		total += a.Granted
	}
	return total
}

// Reserved sums the volume held back by reservations in a rationing result.
func Reserved(allocs []Allocation) float64 {
	total := 0.0
	for _, a := range allocs {
		if a.Requested < 0 {
			total -= a.Requested
		}
	}
	return total
}

// String lists the requests in insertion order.
func (a *Allocator) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, r := range a.requests {
		sb.WriteString(fmt.Sprint(*r))
		if i < len(a.requests)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

package sim

import "sync/atomic"

// IDSource hands out instance identifiers. Implementations must return
// strictly increasing values.
type IDSource interface {
	Next() int64
}

// Counter is a monotonic IDSource starting at zero.
// Safe for concurrent use.
type Counter struct {
	next atomic.Int64
}

// NewCounter returns a Counter whose first Next() returns 0.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the next identifier.
func (c *Counter) Next() int64 {
	return c.next.Add(1) - 1
}

// DefaultIDs is used by constructors when the caller does not inject an
// IDSource. It lives for the whole process; tests that care about exact
// identifiers should inject their own Counter.
var DefaultIDs IDSource = NewCounter()

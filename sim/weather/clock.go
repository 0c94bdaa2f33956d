package weather

import (
	"fmt"
	"time"
)

// Clock is a daily simulation calendar running from Start up to, but not
// including, End.
type Clock struct {
	start   time.Time
	end     time.Time
	current time.Time
}

// NewClock creates a clock covering days days from start. Start is
// truncated to midnight UTC.
func NewClock(start time.Time, days int) (*Clock, error) {
	if days <= 0 {
		return nil, fmt.Errorf("clock: days must be > 0, got %d", days)
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	return &Clock{start: s, end: s.AddDate(0, 0, days), current: s}, nil
}

// Start returns the first simulated day.
func (c *Clock) Start() time.Time { return c.start }

// End returns the day after the last simulated day.
func (c *Clock) End() time.Time { return c.end }

// Current returns the day about to be simulated.
func (c *Clock) Current() time.Time { return c.current }

// Running reports whether Current lies before End.
func (c *Clock) Running() bool { return c.current.Before(c.end) }

// Advance moves to the next day and returns it.
func (c *Clock) Advance() time.Time {
	c.current = c.current.AddDate(0, 0, 1)
	return c.current
}

// Reset rewinds to Start.
func (c *Clock) Reset() { c.current = c.start }

// Day returns the zero-based index of Current.
func (c *Clock) Day() int {
	return int(c.current.Sub(c.start).Hours() / 24)
}

// Days returns the number of days the clock covers.
func (c *Clock) Days() int {
	return int(c.end.Sub(c.start).Hours() / 24)
}

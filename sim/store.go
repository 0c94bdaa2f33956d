// Defines the Store, a bounded mass-balance accumulator.
// Quantity always stays within [0, capacity]; impossible storage is clamped, never reported as an error.

package sim

import (
	"fmt"
	"math"
)

// Storage is the capability shared by every bounded accumulator in the
// simulator. *Store implements it; composite types (Reservoir, catchment
// stores) delegate to one.
type Storage interface {
	Update(inflow, outflowRequest float64) float64
	SetQuantity(value float64) float64
	SetCapacity(capacity float64)
	Quantity() float64
	Capacity() float64
}

// Store is a single mass-balance accumulator with a hard capacity and a
// zero lower bound.
type Store struct {
	Name string
	ID   int64

	quantity float64
	capacity float64

	lastInflow  float64 // inflow passed to the most recent Update
	lastOutflow float64 // outflow actually delivered by the most recent Update
	spilled     float64 // inflow discarded at capacity by the most recent Update
}

var _ Storage = (*Store)(nil)

// NewStore creates a Store. Negative capacity is treated as zero and the
// initial quantity is clamped into [0, capacity]. A nil ids uses DefaultIDs.
func NewStore(name string, quantity, capacity float64, ids IDSource) *Store {
	if ids == nil {
		ids = DefaultIDs
	}
	s := &Store{
		Name:     name,
		ID:       ids.Next(),
		capacity: math.Max(capacity, 0),
	}
	s.quantity = clamp(quantity, 0, s.capacity)
	return s
}

// Update applies one mass-balance step and returns the outflow actually
// delivered.
//
//	new = clamp(quantity + inflow - outflowRequest, 0, capacity)
//
// The delivered outflow falls below the request only when the store runs
// dry. Inflow in excess of capacity is discarded and not counted as
// outflow; Spilled reports it, so quantity + inflow - new equals the
// returned value plus Spilled.
func (s *Store) Update(inflow, outflowRequest float64) float64 {
	balance := s.quantity + inflow - outflowRequest
	next := clamp(balance, 0, s.capacity)

	s.spilled = math.Max(balance-s.capacity, 0)
	s.lastInflow = inflow
	s.lastOutflow = s.quantity + inflow - next - s.spilled
	s.quantity = next
	return s.lastOutflow
}

// SetQuantity clamps value into [0, capacity], stores it and returns the
// clamped value. Dependent state is not recomputed.
func (s *Store) SetQuantity(value float64) float64 {
	s.quantity = clamp(value, 0, s.capacity)
	return s.quantity
}

// SetCapacity changes the capacity. Negative values become zero and a
// quantity above the new capacity is clamped down immediately.
func (s *Store) SetCapacity(capacity float64) {
	s.capacity = math.Max(capacity, 0)
	if s.quantity > s.capacity {
		s.quantity = s.capacity
	}
}

// Quantity returns the amount currently stored.
func (s *Store) Quantity() float64 { return s.quantity }

// Capacity returns the upper bound on Quantity.
func (s *Store) Capacity() float64 { return s.capacity }

// LastInflow returns the inflow of the most recent Update.
func (s *Store) LastInflow() float64 { return s.lastInflow }

// LastOutflow returns the delivered outflow of the most recent Update.
func (s *Store) LastOutflow() float64 { return s.lastOutflow }

// Spilled returns the inflow discarded at capacity by the most recent Update.
func (s *Store) Spilled() float64 { return s.spilled }

// String returns a human-readable representation of the Store.
func (s *Store) String() string {
	return fmt.Sprintf("Store: (Name: %s, ID: %d, Quantity: %g, Capacity: %g)", s.Name, s.ID, s.quantity, s.capacity)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

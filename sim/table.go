package sim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// ErrOutOfDomain is returned by the checked lookups of a Strict table when
// the lookup value lies outside the table range.
var ErrOutOfDomain = errors.New("lookup outside table domain")

// LookupTable relates two monotonic quantities, e.g. reservoir elevation
// and stored volume.
type LookupTable interface {
	LookupY(x float64) float64
	LookupX(y float64) float64
	InDomainX(x float64) bool
	InDomainY(y float64) bool
}

// RangePolicy selects what a Table returns for lookups outside its range.
type RangePolicy string

const (
	// Extrapolate continues the end segments linearly.
	Extrapolate RangePolicy = "extrapolate"
	// Clamp returns the value at the nearest end of the table.
	Clamp RangePolicy = "clamp"
	// Strict clamps like Clamp; the checked lookups also return ErrOutOfDomain.
	Strict RangePolicy = "strict"
)

// validRangePolicies maps accepted policy strings.
var validRangePolicies = map[RangePolicy]bool{
	Extrapolate: true,
	Clamp:       true,
	Strict:      true,
	"":          true, // empty defaults to extrapolate
}

// IsValidRangePolicy returns true if name is a recognized RangePolicy.
func IsValidRangePolicy(name string) bool {
	return validRangePolicies[RangePolicy(name)]
}

// Table is a LookupTable over two parallel, strictly increasing sequences
// with piecewise-linear interpolation in both directions.
type Table struct {
	Name   string
	Policy RangePolicy

	xs, ys  []float64
	forward interp.PiecewiseLinear // x -> y
	inverse interp.PiecewiseLinear // y -> x
}

var _ LookupTable = (*Table)(nil)

// NewTable validates xs and ys and builds a Table. Both sequences need at
// least two points, equal length and strictly increasing values.
func NewTable(xs, ys []float64, policy RangePolicy) (*Table, error) {
	if !IsValidRangePolicy(string(policy)) {
		return nil, fmt.Errorf("unknown range policy %q", policy)
	}
	if policy == "" {
		policy = Extrapolate
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("table length mismatch: %d x values, %d y values", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("table needs at least 2 points, got %d", len(xs))
	}
	if err := strictlyIncreasing("x", xs); err != nil {
		return nil, err
	}
	if err := strictlyIncreasing("y", ys); err != nil {
		return nil, err
	}

	t := &Table{
		Policy: policy,
		xs:     append([]float64(nil), xs...),
		ys:     append([]float64(nil), ys...),
	}
	// Fit panics on malformed input; both sequences were validated above.
	if err := t.forward.Fit(t.xs, t.ys); err != nil {
		return nil, err
	}
	if err := t.inverse.Fit(t.ys, t.xs); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTable is NewTable for static tables; it panics on invalid input.
func MustTable(xs, ys []float64, policy RangePolicy) *Table {
	t, err := NewTable(xs, ys, policy)
	if err != nil {
		panic(err)
	}
	return t
}

// LookupY interpolates y at x.
func (t *Table) LookupY(x float64) float64 {
	return lookup(&t.forward, t.xs, t.ys, x, t.Policy)
}

// LookupX interpolates x at y.
func (t *Table) LookupX(y float64) float64 {
	return lookup(&t.inverse, t.ys, t.xs, y, t.Policy)
}

// LookupYErr is LookupY that reports ErrOutOfDomain for a Strict table.
func (t *Table) LookupYErr(x float64) (float64, error) {
	if t.Policy == Strict && !t.InDomainX(x) {
		return t.LookupY(x), fmt.Errorf("%w: x=%g not in [%g, %g]", ErrOutOfDomain, x, t.xs[0], t.xs[len(t.xs)-1])
	}
	return t.LookupY(x), nil
}

// LookupXErr is LookupX that reports ErrOutOfDomain for a Strict table.
func (t *Table) LookupXErr(y float64) (float64, error) {
	if t.Policy == Strict && !t.InDomainY(y) {
		return t.LookupX(y), fmt.Errorf("%w: y=%g not in [%g, %g]", ErrOutOfDomain, y, t.ys[0], t.ys[len(t.ys)-1])
	}
	return t.LookupX(y), nil
}

// InDomainX reports whether x lies within the table's x range.
func (t *Table) InDomainX(x float64) bool {
	return x >= t.xs[0] && x <= t.xs[len(t.xs)-1]
}

// InDomainY reports whether y lies within the table's y range.
func (t *Table) InDomainY(y float64) bool {
	return y >= t.ys[0] && y <= t.ys[len(t.ys)-1]
}

// X returns a copy of the x sequence.
func (t *Table) X() []float64 { return append([]float64(nil), t.xs...) }

// Y returns a copy of the y sequence.
func (t *Table) Y() []float64 { return append([]float64(nil), t.ys...) }

// MaxY returns the last (largest) y value.
func (t *Table) MaxY() float64 { return t.ys[len(t.ys)-1] }

func lookup(pl *interp.PiecewiseLinear, xs, ys []float64, x float64, policy RangePolicy) float64 {
	n := len(xs)
	if policy == Extrapolate || policy == "" {
		switch {
		case x < xs[0]:
			return ys[0] + (x-xs[0])*(ys[1]-ys[0])/(xs[1]-xs[0])
		case x > xs[n-1]:
			return ys[n-1] + (x-xs[n-1])*(ys[n-1]-ys[n-2])/(xs[n-1]-xs[n-2])
		}
	}
	switch {
	case x <= xs[0]:
		return ys[0]
	case x >= xs[n-1]:
		return ys[n-1]
	}
	return pl.Predict(x)
}

func strictlyIncreasing(axis string, vs []float64) error {
	for i := 1; i < len(vs); i++ {
		if !(vs[i] > vs[i-1]) {
			return fmt.Errorf("table %s values must be strictly increasing: %s[%d]=%g, %s[%d]=%g",
				axis, axis, i-1, vs[i-1], axis, i, vs[i])
		}
	}
	return nil
}

package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_Invalid_ReturnsError(t *testing.T) {
	tests := []struct {
		name   string
		xs, ys []float64
		policy RangePolicy
	}{
		{"length mismatch", []float64{0, 1}, []float64{0}, Extrapolate},
		{"single point", []float64{0}, []float64{0}, Extrapolate},
		{"x not increasing", []float64{0, 2, 1}, []float64{0, 1, 2}, Extrapolate},
		{"y not increasing", []float64{0, 1, 2}, []float64{0, 5, 5}, Extrapolate},
		{"unknown policy", []float64{0, 1}, []float64{0, 1}, "wrap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.xs, tt.ys, tt.policy)
			assert.Error(t, err)
		})
	}
}

func TestMustTable_Invalid_Panics(t *testing.T) {
	assert.Panics(t, func() { MustTable([]float64{1, 0}, []float64{0, 1}, Clamp) })
}

func TestTable_InRange_InterpolatesBothWays(t *testing.T) {
	tbl := MustTable([]float64{0, 10, 20}, []float64{0, 175, 590}, Extrapolate)

	assert.InDelta(t, 59.5, tbl.LookupY(3.4), 1e-9)
	assert.InDelta(t, 175.0, tbl.LookupY(10), 1e-9)
	assert.InDelta(t, 382.5, tbl.LookupY(15), 1e-9)
	assert.InDelta(t, 3.4, tbl.LookupX(59.5), 1e-9)
	assert.InDelta(t, 15.0, tbl.LookupX(382.5), 1e-9)
}

func TestTable_RoundTrip_InverseThenForward(t *testing.T) {
	tbl := MustTable([]float64{0, 10, 20}, []float64{0, 175, 590}, Extrapolate)
	for _, x := range []float64{0, 1.25, 3.4, 9.9, 10, 12.52, 19.99, 20} {
		assert.InDelta(t, x, tbl.LookupX(tbl.LookupY(x)), 1e-9, "x=%g", x)
	}
}

func TestTable_OutOfRange_PolicyDecides(t *testing.T) {
	xs, ys := []float64{0, 10, 20}, []float64{0, 175, 590}

	t.Run("extrapolate", func(t *testing.T) {
		tbl := MustTable(xs, ys, Extrapolate)
		assert.InDelta(t, -17.5, tbl.LookupY(-1), 1e-9)
		assert.InDelta(t, 631.5, tbl.LookupY(21), 1e-9)
		assert.InDelta(t, 21.0, tbl.LookupX(631.5), 1e-9)
	})
	t.Run("clamp", func(t *testing.T) {
		tbl := MustTable(xs, ys, Clamp)
		assert.Equal(t, 0.0, tbl.LookupY(-1))
		assert.Equal(t, 590.0, tbl.LookupY(21))
		assert.Equal(t, 20.0, tbl.LookupX(1000))
	})
	t.Run("strict", func(t *testing.T) {
		tbl := MustTable(xs, ys, Strict)
		v, err := tbl.LookupYErr(21)
		assert.True(t, errors.Is(err, ErrOutOfDomain))
		assert.Equal(t, 590.0, v)

		_, err = tbl.LookupXErr(-3)
		assert.ErrorIs(t, err, ErrOutOfDomain)

		v, err = tbl.LookupYErr(10)
		require.NoError(t, err)
		assert.InDelta(t, 175.0, v, 1e-9)
	})
}

func TestTable_EmptyPolicy_DefaultsToExtrapolate(t *testing.T) {
	tbl, err := NewTable([]float64{0, 1}, []float64{0, 2}, "")
	require.NoError(t, err)
	assert.Equal(t, Extrapolate, tbl.Policy)
	assert.InDelta(t, 4.0, tbl.LookupY(2), 1e-12)
}

func TestTable_InDomain(t *testing.T) {
	tbl := MustTable([]float64{0, 10}, []float64{5, 50}, Clamp)
	assert.True(t, tbl.InDomainX(0))
	assert.True(t, tbl.InDomainX(10))
	assert.False(t, tbl.InDomainX(10.01))
	assert.True(t, tbl.InDomainY(5))
	assert.False(t, tbl.InDomainY(4.99))
}

func TestTable_CopiesInput(t *testing.T) {
	xs, ys := []float64{0, 1}, []float64{0, 1}
	tbl := MustTable(xs, ys, Clamp)
	xs[1] = 100
	assert.Equal(t, []float64{0, 1}, tbl.X())
	assert.Equal(t, []float64{0, 1}, tbl.Y())
	assert.Equal(t, 1.0, tbl.MaxY())
}

func TestIsValidRangePolicy(t *testing.T) {
	assert.True(t, IsValidRangePolicy("clamp"))
	assert.True(t, IsValidRangePolicy(""))
	assert.False(t, IsValidRangePolicy("wrap"))
}

package watershed

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hydro/aegis/sim"
)

func TestWatershed_SingleCatchmentDischarge(t *testing.T) {
	// GIVEN one reference catchment linked straight to the sink
	w := NewWatershed(sim.NewCounter())
	_, err := w.LinkCatchment("C1", "", WithArea(refArea))
	require.NoError(t, err)

	// WHEN discharging eleven wet steps
	var q float64
	for i := 0; i < refSteps; i++ {
		q, err = w.Discharge(refPrecip, refET)
		require.NoError(t, err)
	}

	// THEN the sink sees the catchment's outflow
	assert.InDelta(t, refFlow, q, 0.05)
	info, ok := w.GetNode("C1")
	require.True(t, ok)
	assert.Equal(t, SinkName, info.Downstream)
	assert.Equal(t, KindCatchment, info.Kind)
}

func TestWatershed_JunctionAggregatesCatchments(t *testing.T) {
	// GIVEN two identical catchments feeding J1, and J1 draining to the sink
	w := NewWatershed(nil)
	require.NoError(t, w.AddJunction("J1", SinkName))
	_, err := w.LinkCatchment("C1", "J1", WithArea(refArea))
	require.NoError(t, err)
	_, err = w.LinkCatchment("C2", "J1", WithArea(refArea))
	require.NoError(t, err)

	// WHEN discharging
	var q float64
	for i := 0; i < refSteps; i++ {
		q, err = w.Discharge(refPrecip, refET)
		require.NoError(t, err)
	}

	// THEN the outlet sees the sum
	assert.InDelta(t, 2*refFlow, q, 0.1)
	assert.Equal(t, 2*refArea, w.TotalArea())
}

func TestWatershed_LinkCatchment_CreatesMissingJunction(t *testing.T) {
	w := NewWatershed(nil)

	_, err := w.LinkCatchment("C1", "J9")

	require.NoError(t, err)
	info, ok := w.GetNode("J9")
	require.True(t, ok)
	assert.Equal(t, KindJunction, info.Kind)
	assert.Equal(t, "", info.Downstream)
}

func TestWatershed_LinkCatchment_Duplicate(t *testing.T) {
	w := NewWatershed(nil)
	_, err := w.LinkCatchment("C1", "")
	require.NoError(t, err)

	_, err = w.LinkCatchment("C1", "")

	assert.True(t, errors.Is(err, ErrDuplicateNode), "got %v", err)
	assert.Equal(t, []string{"C1"}, w.Catchments())
}

func TestWatershed_LinkCatchment_DuplicateLeavesNoDanglingJunction(t *testing.T) {
	// GIVEN C1 already draining to the sink
	w := NewWatershed(nil)
	_, err := w.LinkCatchment("C1", "")
	require.NoError(t, err)

	// WHEN C1 is linked again towards a junction that does not exist yet
	_, err = w.LinkCatchment("C1", "J9")

	// THEN the link fails and J9 is not left behind in the graph
	assert.True(t, errors.Is(err, ErrDuplicateNode), "got %v", err)
	_, ok := w.GetNode("J9")
	assert.False(t, ok)
	info, ok := w.GetNode("C1")
	require.True(t, ok)
	assert.Equal(t, SinkName, info.Downstream)
	assert.NoError(t, w.Validate())
}

func TestWatershed_AddJunction_DuplicateLeavesNoDanglingJunction(t *testing.T) {
	// GIVEN J1 draining to the sink
	w := NewWatershed(nil)
	require.NoError(t, w.AddJunction("J1", ""))

	// WHEN J1 is added again towards a new junction
	err := w.AddJunction("J1", "J2")

	// THEN J2 is not created
	assert.True(t, errors.Is(err, ErrDuplicateNode), "got %v", err)
	_, ok := w.GetNode("J2")
	assert.False(t, ok)
}

func TestWatershed_LinkCatchment_RecreatesDeletedSinkAsSink(t *testing.T) {
	// GIVEN a watershed whose sink has been deleted
	w := NewWatershed(nil)
	require.NoError(t, w.DeleteNode(SinkName))
	_, ok := w.GetNode(SinkName)
	require.False(t, ok)

	// WHEN a catchment is linked to the default downstream
	_, err := w.LinkCatchment("C1", "")

	// THEN the sink comes back with the sink kind
	require.NoError(t, err)
	info, ok := w.GetNode(SinkName)
	require.True(t, ok)
	assert.Equal(t, KindSink, info.Kind)
	assert.NoError(t, w.Validate())
}

func TestWatershed_DeleteNode_Cascades(t *testing.T) {
	// GIVEN two branches: C1, C2 -> J1 -> sink and C3 -> J2 -> sink
	w := NewWatershed(nil)
	require.NoError(t, w.AddJunction("J1", ""))
	require.NoError(t, w.AddJunction("J2", ""))
	for _, link := range [][2]string{{"C1", "J1"}, {"C2", "J1"}, {"C3", "J2"}} {
		_, err := w.LinkCatchment(link[0], link[1])
		require.NoError(t, err)
	}

	// WHEN J1 is deleted
	require.NoError(t, w.DeleteNode("J1"))

	// THEN J1 and everything upstream of it is gone; the other branch stays
	for _, gone := range []string{"J1", "C1", "C2"} {
		_, ok := w.GetNode(gone)
		assert.False(t, ok, gone)
	}
	for _, kept := range []string{SourceName, SinkName, "J2", "C3"} {
		_, ok := w.GetNode(kept)
		assert.True(t, ok, kept)
	}
	assert.Equal(t, []string{"C3"}, w.Catchments())
	_, err := w.Catchment("C1")
	assert.True(t, errors.Is(err, ErrCatchmentNotFound))
	assert.NoError(t, w.Validate())
}

func TestWatershed_DeleteNode_Missing(t *testing.T) {
	w := NewWatershed(nil)

	err := w.DeleteNode("ghost")

	assert.True(t, errors.Is(err, ErrNodeNotFound))
}

func TestWatershed_SetOutflowNode_NotValidated(t *testing.T) {
	// GIVEN an outlet that does not exist
	w := NewWatershed(nil)
	_, err := w.LinkCatchment("C1", "")
	require.NoError(t, err)
	w.SetOutflowNode("J404")

	// THEN setting succeeds but discharge fails
	assert.Equal(t, "J404", w.OutflowNode())
	_, err = w.Discharge(0.01, 0)
	assert.True(t, errors.Is(err, ErrNodeNotFound), "got %v", err)
}

func TestWatershed_SetOutflowNode_Junction(t *testing.T) {
	w := NewWatershed(nil)
	require.NoError(t, w.AddJunction("J1", ""))
	_, err := w.LinkCatchment("C1", "J1", WithArea(refArea))
	require.NoError(t, err)
	_, err = w.LinkCatchment("C2", "", WithArea(refArea))
	require.NoError(t, err)
	w.SetOutflowNode("J1")

	var q float64
	for i := 0; i < refSteps; i++ {
		q, err = w.Discharge(refPrecip, refET)
		require.NoError(t, err)
	}

	assert.InDelta(t, refFlow, q, 0.05, "only C1 drains through J1")
}

func TestWatershed_GetNode_Missing(t *testing.T) {
	w := NewWatershed(nil)

	info, ok := w.GetNode("ghost")

	assert.False(t, ok)
	assert.Equal(t, NodeInfo{}, info)
}

func TestWatershed_MoveNode(t *testing.T) {
	w := NewWatershed(nil)
	require.NoError(t, w.AddJunction("J1", ""))
	_, err := w.LinkCatchment("C1", "")
	require.NoError(t, err)

	require.NoError(t, w.MoveNode("C1", "J1"))

	info, _ := w.GetNode("C1")
	assert.Equal(t, "J1", info.Downstream)
}

func TestWatershed_Reset(t *testing.T) {
	w := NewWatershed(nil)
	c, err := w.LinkCatchment("C1", "")
	require.NoError(t, err)
	_, err = w.Discharge(0.3, 0)
	require.NoError(t, err)
	require.Greater(t, c.BaseStorage(), 0.0)

	w.Reset()

	assert.Equal(t, 0.0, c.BaseStorage())
}

func TestWatershed_DOT(t *testing.T) {
	w := NewWatershed(nil)
	_, err := w.LinkCatchment("C1", "")
	require.NoError(t, err)

	b, err := w.DOT()

	require.NoError(t, err)
	assert.Contains(t, string(b), "C1 -> sink")
}

package watershed

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/aegis-hydro/aegis/sim"
)

// ErrCatchmentNotFound is returned when no catchment carries the given name.
var ErrCatchmentNotFound = errors.New("catchment not found")

// Watershed routes catchment runoff through junctions to an outlet.
// It owns the routing graph and the Catchment behind every catchment node.
type Watershed struct {
	network    *FlowNetwork
	catchments map[string]*Catchment
	ids        sim.IDSource
}

// NewWatershed creates an empty watershed draining to the sink.
// ids may be nil.
func NewWatershed(ids sim.IDSource) *Watershed {
	return &Watershed{
		network:    NewFlowNetwork(),
		catchments: make(map[string]*Catchment),
		ids:        ids,
	}
}

// Network exposes the routing graph.
func (w *Watershed) Network() *FlowNetwork { return w.network }

// LinkCatchment registers a new catchment draining into downstream
// (SinkName when empty). A missing downstream node is created as a junction
// draining to nothing, and removed again if the catchment cannot be added.
func (w *Watershed) LinkCatchment(name, downstream string, opts ...CatchmentOption) (*Catchment, error) {
	if downstream == "" {
		downstream = SinkName
	}
	c, err := NewCatchment(name, w.ids, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.attach(name, KindCatchment, downstream); err != nil {
		return nil, err
	}
	w.catchments[name] = c
	return c, nil
}

// AddJunction adds a junction draining into downstream (SinkName when
// empty). A missing downstream node is created as a junction.
func (w *Watershed) AddJunction(name, downstream string) error {
	if downstream == "" {
		downstream = SinkName
	}
	return w.attach(name, KindJunction, downstream)
}

// attach adds name and wires it into downstream, creating downstream on
// first reference. On failure the graph is left as it was.
func (w *Watershed) attach(name string, kind NodeKind, downstream string) error {
	if err := w.network.AddNode(name, kind); err != nil {
		return err
	}
	created, err := w.ensureDownstream(downstream)
	if err != nil {
		_ = w.network.RemoveNode(name)
		return err
	}
	if err := w.wire(name, downstream, kind == KindCatchment); err != nil {
		if created {
			_ = w.network.RemoveNode(downstream)
		}
		return err
	}
	return nil
}

// ensureDownstream creates a missing downstream node and reports whether it
// did. The reserved sink name is recreated as a sink.
func (w *Watershed) ensureDownstream(name string) (bool, error) {
	if w.network.HasNode(name) {
		return false, nil
	}
	kind := KindJunction
	if name == SinkName {
		kind = KindSink
	}
	logrus.Debugf("watershed: creating %s %q on first reference", kind, name)
	if err := w.network.AddNode(name, kind); err != nil {
		return false, err
	}
	return true, nil
}

// wire adds the downstream edge (and the source edge for catchments),
// removing the node again if either edge is rejected.
func (w *Watershed) wire(name, downstream string, fromSource bool) error {
	if fromSource {
		if err := w.network.AddEdge(SourceName, name); err != nil {
			_ = w.network.RemoveNode(name)
			return err
		}
	}
	if err := w.network.AddEdge(name, downstream); err != nil {
		_ = w.network.RemoveNode(name)
		return err
	}
	return nil
}

// Discharge advances every catchment one step, pushes each runoff onto the
// catchment's downstream edge and returns the aggregate at the outlet.
func (w *Watershed) Discharge(precip, et float64) (float64, error) {
	for _, name := range w.Catchments() {
		q := w.catchments[name].Outflow(precip, et)
		if err := w.network.UpdateCapacity(name, q); err != nil {
			return 0, err
		}
	}
	return w.network.Outflow()
}

// DeleteNode removes name and every node upstream of it, together with
// their catchments. The source is never removed.
func (w *Watershed) DeleteNode(name string) error {
	ups, err := w.network.Upstream(name)
	if err != nil {
		return err
	}
	for _, n := range append(ups, name) {
		if err := w.network.RemoveNode(n); err != nil {
			return err
		}
		delete(w.catchments, n)
	}
	logrus.Debugf("watershed: deleted %q and %d upstream nodes", name, len(ups))
	return nil
}

// MoveNode reroutes name to drain into newDownstream.
func (w *Watershed) MoveNode(name, newDownstream string) error {
	return w.network.MoveNode(name, newDownstream)
}

// SetOutflowNode records the outlet node. Existence is not checked here;
// Discharge reports ErrNodeNotFound for a missing outlet.
func (w *Watershed) SetOutflowNode(name string) {
	w.network.SetOutlet(name)
}

// OutflowNode returns the outlet node name.
func (w *Watershed) OutflowNode() string {
	return w.network.Outlet()
}

// GetNode returns a snapshot of the named node, or false if it does not exist.
func (w *Watershed) GetNode(name string) (NodeInfo, bool) {
	info, ok := w.network.Node(name)
	if !ok {
		logrus.Debugf("watershed: node %q does not exist", name)
	}
	return info, ok
}

// Catchment returns the named catchment.
func (w *Watershed) Catchment(name string) (*Catchment, error) {
	c, ok := w.catchments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCatchmentNotFound, name)
	}
	return c, nil
}

// Catchments returns the catchment names, sorted.
func (w *Watershed) Catchments() []string {
	names := make([]string, 0, len(w.catchments))
	for name := range w.catchments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalArea sums the area of every catchment.
func (w *Watershed) TotalArea() float64 {
	total := 0.0
	for _, name := range w.Catchments() {
		total += w.catchments[name].Area
	}
	return total
}

// Reset empties every catchment store.
func (w *Watershed) Reset() {
	for _, c := range w.catchments {
		c.Reset()
	}
}

// Validate checks the routing graph.
func (w *Watershed) Validate() error {
	return w.network.Validate()
}

// DOT renders the routing graph in Graphviz format.
func (w *Watershed) DOT() ([]byte, error) {
	return w.network.DOT("watershed")
}

package watershed

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Reserved node names created by NewFlowNetwork.
const (
	SourceName = "atmosphere"
	SinkName   = "sink"
)

var (
	// ErrNodeNotFound is returned when no node carries the given name.
	ErrNodeNotFound = errors.New("node not found")
	// ErrDuplicateNode is returned when a node name is already taken.
	ErrDuplicateNode = errors.New("duplicate node name")
	// ErrCycle is returned when an edge would break the DAG invariant.
	ErrCycle = errors.New("edge would create a cycle")
	// ErrMultipleDownstream is returned when a node already drains elsewhere.
	ErrMultipleDownstream = errors.New("node already has a downstream edge")
)

// NodeKind distinguishes the roles a node plays in the routing graph.
type NodeKind string

const (
	KindSource    NodeKind = "Source"
	KindCatchment NodeKind = "Catchment"
	KindJunction  NodeKind = "Junction"
	KindSink      NodeKind = "Sink"
)

// validNodeKinds maps the kinds accepted from graph descriptions.
var validNodeKinds = map[NodeKind]bool{
	KindCatchment: true,
	KindJunction:  true,
	KindSink:      true,
}

// IsValidNodeKind returns true if name is a node kind a caller may add.
// Source is reserved for the network's own atmosphere node.
func IsValidNodeKind(name string) bool {
	return validNodeKinds[NodeKind(name)]
}

// node is a vertex of the routing graph.
type node struct {
	id     int64
	name   string
	kind   NodeKind
	inflow float64 // sum of inbound edge capacities at the last Outflow pass
}

func (n *node) ID() int64      { return n.id }
func (n *node) DOTID() string  { return n.name }
func (n *node) String() string { return n.name }

func (n *node) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "node_type", Value: string(n.kind)}}
}

// flowEdge carries the current outflow of its upstream node.
type flowEdge struct {
	from, to *node
	capacity float64
}

func (e *flowEdge) From() graph.Node { return e.from }
func (e *flowEdge) To() graph.Node   { return e.to }

func (e *flowEdge) ReversedEdge() graph.Edge {
	return &flowEdge{from: e.to, to: e.from, capacity: e.capacity}
}

func (e *flowEdge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "capacity", Value: fmt.Sprintf("%g", e.capacity)}}
}

// NodeInfo is a read-only snapshot of a node.
type NodeInfo struct {
	Name       string
	Kind       NodeKind
	Downstream string   // empty for the sink and dangling nodes
	Upstream   []string // direct upstream neighbours (source excluded), sorted
	Inflow     float64  // as of the last Outflow pass
	Outflow    float64  // capacity of the downstream edge
}

// EdgeInfo is a read-only snapshot of an edge.
type EdgeInfo struct {
	From     string
	To       string
	Capacity float64
}

// FlowNetwork is a directed acyclic graph of named nodes. Every node except
// the source drains through at most one downstream edge; the source feeds
// any number of catchments.
type FlowNetwork struct {
	g      *simple.DirectedGraph
	byName map[string]*node
	outlet string
}

// NewFlowNetwork creates a network holding the atmosphere source and a
// sink junction, with the sink as outlet.
func NewFlowNetwork() *FlowNetwork {
	n := &FlowNetwork{
		g:      simple.NewDirectedGraph(),
		byName: make(map[string]*node),
		outlet: SinkName,
	}
	n.addNode(SourceName, KindSource)
	n.addNode(SinkName, KindSink)
	return n
}

func (n *FlowNetwork) addNode(name string, kind NodeKind) *node {
	nd := &node{id: n.g.NewNode().ID(), name: name, kind: kind}
	n.g.AddNode(nd)
	n.byName[name] = nd
	return nd
}

// AddNode adds a node of the given kind.
func (n *FlowNetwork) AddNode(name string, kind NodeKind) error {
	if name == "" {
		return fmt.Errorf("node name must not be empty")
	}
	if !IsValidNodeKind(string(kind)) {
		return fmt.Errorf("cannot add node %q of kind %q", name, kind)
	}
	if _, exists := n.byName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	n.addNode(name, kind)
	return nil
}

// HasNode reports whether a node with the given name exists.
func (n *FlowNetwork) HasNode(name string) bool {
	_, ok := n.byName[name]
	return ok
}

func (n *FlowNetwork) lookup(name string) (*node, error) {
	nd, ok := n.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, name)
	}
	return nd, nil
}

// AddEdge connects from to its downstream node to. Both nodes must exist.
// The edge is rejected if it would create a cycle or give a non-source
// node a second downstream edge.
func (n *FlowNetwork) AddEdge(from, to string) error {
	u, err := n.lookup(from)
	if err != nil {
		return err
	}
	v, err := n.lookup(to)
	if err != nil {
		return err
	}
	if v.kind == KindSource {
		return fmt.Errorf("cannot route into the source node %q", to)
	}
	if u == v || topo.PathExistsIn(n.g, v, u) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, from, to)
	}
	if n.g.HasEdgeFromTo(u.id, v.id) {
		return nil
	}
	if u.kind != KindSource && n.g.From(u.id).Len() > 0 {
		return fmt.Errorf("%w: %q", ErrMultipleDownstream, from)
	}
	n.g.SetEdge(&flowEdge{from: u, to: v})
	return nil
}

// RemoveEdge removes the edge from -> to if present.
func (n *FlowNetwork) RemoveEdge(from, to string) error {
	u, err := n.lookup(from)
	if err != nil {
		return err
	}
	v, err := n.lookup(to)
	if err != nil {
		return err
	}
	n.g.RemoveEdge(u.id, v.id)
	return nil
}

// RemoveNode removes a single node and its edges. The source cannot be removed.
func (n *FlowNetwork) RemoveNode(name string) error {
	nd, err := n.lookup(name)
	if err != nil {
		return err
	}
	if nd.kind == KindSource {
		return fmt.Errorf("cannot remove the source node %q", name)
	}
	n.g.RemoveNode(nd.id)
	delete(n.byName, name)
	return nil
}

// Downstream returns the node that name drains into.
func (n *FlowNetwork) Downstream(name string) (string, bool) {
	nd, ok := n.byName[name]
	if !ok {
		return "", false
	}
	e := n.downstreamEdge(nd)
	if e == nil {
		return "", false
	}
	return e.to.name, true
}

func (n *FlowNetwork) downstreamEdge(nd *node) *flowEdge {
	if nd.kind == KindSource {
		return nil
	}
	for _, to := range graph.NodesOf(n.g.From(nd.id)) {
		return n.g.Edge(nd.id, to.ID()).(*flowEdge)
	}
	return nil
}

// MoveNode reroutes name to drain into newDownstream. The current
// capacity is carried over; on failure the old edge is restored.
func (n *FlowNetwork) MoveNode(name, newDownstream string) error {
	nd, err := n.lookup(name)
	if err != nil {
		return err
	}
	if nd.kind == KindSource {
		return fmt.Errorf("cannot move the source node %q", name)
	}
	if _, err := n.lookup(newDownstream); err != nil {
		return err
	}
	old := n.downstreamEdge(nd)
	if old != nil {
		n.g.RemoveEdge(old.from.id, old.to.id)
	}
	if err := n.AddEdge(name, newDownstream); err != nil {
		if old != nil {
			n.g.SetEdge(old)
		}
		return err
	}
	if old != nil {
		return n.UpdateCapacity(name, old.capacity)
	}
	return nil
}

// DOT renders the network in Graphviz format.
func (n *FlowNetwork) DOT(name string) ([]byte, error) {
	return dot.Marshal(n.g, name, "", "  ")
}

// UpdateCapacity sets the capacity of the node's outgoing edges.
func (n *FlowNetwork) UpdateCapacity(name string, value float64) error {
	nd, err := n.lookup(name)
	if err != nil {
		return err
	}
	for _, to := range graph.NodesOf(n.g.From(nd.id)) {
		n.g.Edge(nd.id, to.ID()).(*flowEdge).capacity = value
	}
	return nil
}

// EdgeCapacity returns the capacity of the edge from -> to.
func (n *FlowNetwork) EdgeCapacity(from, to string) (float64, error) {
	u, err := n.lookup(from)
	if err != nil {
		return 0, err
	}
	v, err := n.lookup(to)
	if err != nil {
		return 0, err
	}
	e := n.g.Edge(u.id, v.id)
	if e == nil {
		return 0, fmt.Errorf("%w: edge %s -> %s", ErrNodeNotFound, from, to)
	}
	return e.(*flowEdge).capacity, nil
}

// SetOutlet records the node treated as the network's outlet. Existence is
// not checked here; Outflow reports ErrNodeNotFound for a missing outlet.
func (n *FlowNetwork) SetOutlet(name string) {
	n.outlet = name
}

// Outlet returns the outlet node name.
func (n *FlowNetwork) Outlet() string {
	return n.outlet
}

// Outflow propagates edge capacities downstream in one topological pass
// and returns the outlet's aggregate outflow. Junctions and sinks forward
// the sum of their inbound capacities; catchment capacities are set by
// UpdateCapacity and left untouched.
func (n *FlowNetwork) Outflow() (float64, error) {
	outlet, err := n.lookup(n.outlet)
	if err != nil {
		return 0, fmt.Errorf("outlet: %w", err)
	}
	order, err := n.sorted()
	if err != nil {
		return 0, err
	}

	for _, gn := range order {
		nd := gn.(*node)
		if nd.kind == KindSource {
			continue
		}
		nd.inflow = n.inboundSum(nd)
		if nd.kind == KindJunction || nd.kind == KindSink {
			for _, to := range graph.NodesOf(n.g.From(nd.id)) {
				n.g.Edge(nd.id, to.ID()).(*flowEdge).capacity = nd.inflow
			}
		}
	}

	if outlet.kind == KindCatchment {
		if e := n.downstreamEdge(outlet); e != nil {
			return e.capacity, nil
		}
		return 0, nil
	}
	return outlet.inflow, nil
}

func (n *FlowNetwork) inboundSum(nd *node) float64 {
	ups := graph.NodesOf(n.g.To(nd.id))
	sortByName(ups)
	sum := 0.0
	for _, up := range ups {
		if up.(*node).kind == KindSource {
			continue
		}
		sum += n.g.Edge(up.ID(), nd.id).(*flowEdge).capacity
	}
	return sum
}

// sorted returns the nodes in topological order, ties broken by name.
func (n *FlowNetwork) sorted() ([]graph.Node, error) {
	order, err := topo.SortStabilized(n.g, sortByName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}
	return order, nil
}

// Upstream returns every node that drains through name, found by a
// breadth-first walk against the flow direction. The source is excluded.
func (n *FlowNetwork) Upstream(name string) ([]string, error) {
	start, err := n.lookup(name)
	if err != nil {
		return nil, err
	}
	seen := map[int64]bool{start.id: true}
	queue := []*node{start}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, up := range graph.NodesOf(n.g.To(cur.id)) {
			nd := up.(*node)
			if nd.kind == KindSource || seen[nd.id] {
				continue
			}
			seen[nd.id] = true
			out = append(out, nd.name)
			queue = append(queue, nd)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Node returns a snapshot of the named node.
func (n *FlowNetwork) Node(name string) (NodeInfo, bool) {
	nd, ok := n.byName[name]
	if !ok {
		return NodeInfo{}, false
	}
	info := NodeInfo{Name: nd.name, Kind: nd.kind, Inflow: nd.inflow}
	if e := n.downstreamEdge(nd); e != nil {
		info.Downstream = e.to.name
		info.Outflow = e.capacity
	}
	ups := graph.NodesOf(n.g.To(nd.id))
	sortByName(ups)
	for _, up := range ups {
		if up.(*node).kind != KindSource {
			info.Upstream = append(info.Upstream, up.(*node).name)
		}
	}
	return info, true
}

// Nodes returns all node names, sorted.
func (n *FlowNetwork) Nodes() []string {
	names := make([]string, 0, len(n.byName))
	for name := range n.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Edges returns all edges sorted by (from, to).
func (n *FlowNetwork) Edges() []EdgeInfo {
	var out []EdgeInfo
	for _, e := range graph.EdgesOf(n.g.Edges()) {
		fe := e.(*flowEdge)
		out = append(out, EdgeInfo{From: fe.from.name, To: fe.to.name, Capacity: fe.capacity})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Validate checks the network for cycles, a missing outlet and nodes that
// do not drain to the outlet. All problems are reported together.
func (n *FlowNetwork) Validate() error {
	var errs error
	if _, err := n.sorted(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if !n.HasNode(n.outlet) {
		errs = multierr.Append(errs, fmt.Errorf("outlet: %w: %q", ErrNodeNotFound, n.outlet))
		return errs
	}

	drains := map[string]bool{n.outlet: true}
	ups, _ := n.Upstream(n.outlet)
	for _, name := range ups {
		drains[name] = true
	}
	for _, name := range n.Nodes() {
		nd := n.byName[name]
		if nd.kind == KindSource || drains[name] {
			continue
		}
		// Sinks other than the outlet may terminate side branches.
		if nd.kind == KindSink && n.downstreamEdge(nd) == nil {
			continue
		}
		errs = multierr.Append(errs, fmt.Errorf("node %q does not drain to outlet %q", name, n.outlet))
	}
	return errs
}

func sortByName(nodes []graph.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nameOf(nodes[i]) < nameOf(nodes[j])
	})
}

func nameOf(gn graph.Node) string {
	if nd, ok := gn.(*node); ok && nd != nil {
		return nd.name
	}
	return ""
}

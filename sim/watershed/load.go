package watershed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/aegis-hydro/aegis/sim"
)

// LoadMode selects how malformed graph descriptions are handled.
type LoadMode string

const (
	// Lenient skips nodes with a missing or unknown node_type and edges to
	// unknown nodes, logging a warning for each.
	Lenient LoadMode = "lenient"
	// Strict rejects the description, reporting every problem found.
	Strict LoadMode = "strict"
)

// GraphSpec is the YAML description of a watershed.
type GraphSpec struct {
	Outlet string     `yaml:"outlet"`
	Nodes  []NodeSpec `yaml:"nodes"`
}

// NodeSpec describes one node of a GraphSpec.
type NodeSpec struct {
	Name       string      `yaml:"name"`
	NodeType   string      `yaml:"node_type"`
	Downstream string      `yaml:"downstream"`
	Area       *float64    `yaml:"area"`
	Params     *ParamsSpec `yaml:"params"`
}

// ParamsSpec overrides individual AWBM parameters; omitted fields keep
// their defaults.
type ParamsSpec struct {
	Capacities []float64 `yaml:"capacities"`
	Fractions  []float64 `yaml:"fractions"`
	BFI        *float64  `yaml:"bfi"`
	BaseK      *float64  `yaml:"base_k"`
	SurfaceK   *float64  `yaml:"surface_k"`
}

// Apply overlays the set fields onto p.
func (s *ParamsSpec) Apply(p AWBMParams) (AWBMParams, error) {
	if s == nil {
		return p, nil
	}
	if s.Capacities != nil {
		if len(s.Capacities) != len(p.Capacities) {
			return p, fmt.Errorf("params: capacities needs %d values, got %d", len(p.Capacities), len(s.Capacities))
		}
		copy(p.Capacities[:], s.Capacities)
	}
	if s.Fractions != nil {
		if len(s.Fractions) != len(p.Fractions) {
			return p, fmt.Errorf("params: fractions needs %d values, got %d", len(p.Fractions), len(s.Fractions))
		}
		copy(p.Fractions[:], s.Fractions)
	}
	if s.BFI != nil {
		p.BFI = *s.BFI
	}
	if s.BaseK != nil {
		p.BaseK = *s.BaseK
	}
	if s.SurfaceK != nil {
		p.SurfaceK = *s.SurfaceK
	}
	return p, nil
}

// LoadFile reads a graph description from path.
func LoadFile(path string, mode LoadMode, ids sim.IDSource) (*Watershed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph %s: %w", path, err)
	}
	w, err := Load(bytes.NewReader(data), mode, ids)
	if err != nil {
		return nil, fmt.Errorf("graph %s: %w", path, err)
	}
	return w, nil
}

// Load decodes a YAML graph description and builds a Watershed from it.
// Unknown YAML fields are rejected in Strict mode only.
func Load(r io.Reader, mode LoadMode, ids sim.IDSource) (*Watershed, error) {
	var spec GraphSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(mode == Strict)
	if err := dec.Decode(&spec); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	return Build(spec, mode, ids)
}

// Build materializes spec. Every Catchment node gets a fresh Catchment and
// an edge from the source; downstream edges are added as described. Edges
// that would create a cycle are rejected in either mode.
func Build(spec GraphSpec, mode LoadMode, ids sim.IDSource) (*Watershed, error) {
	if mode == "" {
		mode = Lenient
	}
	if mode != Lenient && mode != Strict {
		return nil, fmt.Errorf("unknown load mode %q", mode)
	}

	w := NewWatershed(ids)
	var problems error
	report := func(err error) {
		if mode == Strict {
			problems = multierr.Append(problems, err)
			return
		}
		logrus.Warnf("graph: %v; skipping", err)
	}

	// Pass 1: nodes.
	var kept []NodeSpec
	for i, ns := range spec.Nodes {
		if ns.Name == "" {
			report(fmt.Errorf("node %d has no name", i))
			continue
		}
		switch {
		case ns.NodeType == "":
			report(fmt.Errorf("node %q has no node_type", ns.Name))
			continue
		case ns.NodeType == string(KindSource) && ns.Name == SourceName,
			ns.NodeType == string(KindSink) && ns.Name == SinkName:
			// Built-in nodes; only their downstream edge (if any) is taken.
			kept = append(kept, ns)
			continue
		case !IsValidNodeKind(ns.NodeType):
			report(fmt.Errorf("node %q has unknown node_type %q", ns.Name, ns.NodeType))
			continue
		}

		if NodeKind(ns.NodeType) == KindCatchment {
			c, err := newCatchmentFromSpec(ns, ids)
			if err != nil {
				report(err)
				continue
			}
			if err := w.network.AddNode(ns.Name, KindCatchment); err != nil {
				report(err)
				continue
			}
			w.catchments[ns.Name] = c
		} else if err := w.network.AddNode(ns.Name, NodeKind(ns.NodeType)); err != nil {
			report(err)
			continue
		}
		kept = append(kept, ns)
	}

	// Pass 2: edges.
	for _, ns := range kept {
		if _, ok := w.catchments[ns.Name]; ok {
			if err := w.network.AddEdge(SourceName, ns.Name); err != nil {
				return nil, err
			}
		}
		if ns.Downstream == "" {
			continue
		}
		err := w.network.AddEdge(ns.Name, ns.Downstream)
		switch {
		case err == nil:
		case errors.Is(err, ErrCycle):
			return nil, err
		default:
			report(fmt.Errorf("edge %s -> %s: %w", ns.Name, ns.Downstream, err))
		}
	}

	if spec.Outlet != "" {
		w.SetOutflowNode(spec.Outlet)
	}
	if err := w.Validate(); err != nil {
		report(err)
	}
	if problems != nil {
		return nil, problems
	}
	return w, nil
}

func newCatchmentFromSpec(ns NodeSpec, ids sim.IDSource) (*Catchment, error) {
	params, err := ns.Params.Apply(DefaultAWBMParams())
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", ns.Name, err)
	}
	opts := []CatchmentOption{WithParams(params)}
	if ns.Area != nil {
		opts = append(opts, WithArea(*ns.Area))
	}
	return NewCatchment(ns.Name, ids, opts...)
}

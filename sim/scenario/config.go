package scenario

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aegis-hydro/aegis/sim"
	"github.com/aegis-hydro/aegis/sim/trace"
	"github.com/aegis-hydro/aegis/sim/watershed"
	"github.com/aegis-hydro/aegis/sim/weather"
)

const dateLayout = "2006-01-02"

// Weather source kinds.
const (
	SourceGenerator = "generator"
	SourceConstant  = "constant"
)

// Config describes one simulation scenario. Every top-level section must be
// listed here to satisfy KnownFields(true) strict parsing.
type Config struct {
	Name        string  `yaml:"name"`
	Start       string  `yaml:"start"` // YYYY-MM-DD
	Days        int     `yaml:"days"`
	Seed        int64   `yaml:"seed"`
	InflowScale float64 `yaml:"inflow_scale"` // watershed runoff -> reservoir inflow

	Trace      trace.TraceLevel `yaml:"trace"`
	TraceEvery int              `yaml:"trace_every"`

	Reservoir ReservoirConfig `yaml:"reservoir"`
	Watershed WatershedConfig `yaml:"watershed"`
	Weather   WeatherConfig   `yaml:"weather"`

	// Releases are constant daily release requests by request name
	// (flood, spillway).
	Releases map[string]float64 `yaml:"releases"`
}

// ReservoirConfig holds the reservoir's geometry and initial state.
type ReservoirConfig struct {
	Name          string    `yaml:"name"`
	InitialVolume float64   `yaml:"initial_volume"`
	InitialLevel  *float64  `yaml:"initial_level"` // overrides InitialVolume when set
	Capacity      float64   `yaml:"capacity"`      // 0 = largest tabulated volume
	Elevations    []float64 `yaml:"elevations"`
	Volumes       []float64 `yaml:"volumes"`
	Areas         []float64 `yaml:"areas"`
	Bottom        float64   `yaml:"bottom"`
	SpillwayCrest float64   `yaml:"spillway_crest"`
	OutletElev    float64   `yaml:"outlet_elevation"`
	WeirCoef      float64   `yaml:"weir_coefficient"`
	WeirLength    float64   `yaml:"weir_length"`
}

// WatershedConfig selects the routing graph: a file, or an inline description.
type WatershedConfig struct {
	GraphFile string               `yaml:"graph_file"`
	Graph     *watershed.GraphSpec `yaml:"graph"`
	Strict    bool                 `yaml:"strict"`
}

// WeatherConfig selects and parameterizes the forcing source.
type WeatherConfig struct {
	Source   string           `yaml:"source"`
	Constant weather.Constant `yaml:"constant"`
	Params   weather.Params   `yaml:"params"`
}

// DefaultConfig returns the reference scenario: the reference reservoir fed
// by one reference catchment under the default stochastic climate.
func DefaultConfig() Config {
	area := 12.6e6
	return Config{
		Name:        "reference",
		Start:       "2019-01-01",
		Days:        365,
		Seed:        42,
		InflowScale: 1e-4,
		Trace:       trace.TraceLevelNone,
		Reservoir: ReservoirConfig{
			Name:          "reservoir",
			InitialVolume: 173.25,
			Elevations:    []float64{0, 10, 20},
			Volumes:       []float64{0, 175, 590},
			Areas:         []float64{0, 35, 48},
			SpillwayCrest: 10,
			OutletElev:    3.75,
			WeirCoef:      3.2,
			WeirLength:    1,
		},
		Watershed: WatershedConfig{
			Graph: &watershed.GraphSpec{
				Nodes: []watershed.NodeSpec{
					{Name: "C1", NodeType: string(watershed.KindCatchment), Downstream: watershed.SinkName, Area: &area},
				},
			},
		},
		Weather: WeatherConfig{
			Source: SourceGenerator,
			Params: weather.DefaultParams(),
		},
	}
}

// LoadConfig decodes a YAML scenario on top of DefaultConfig.
// Unknown fields are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parsing scenario: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadConfigFile reads a scenario from path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	return LoadConfig(bytes.NewReader(data))
}

// StartDate parses Start.
func (c Config) StartDate() (time.Time, error) {
	d, err := time.Parse(dateLayout, c.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("start date %q: %w", c.Start, err)
	}
	return d, nil
}

// Validate checks the scenario for values that cannot be simulated.
func (c Config) Validate() error {
	if c.Days <= 0 {
		return fmt.Errorf("days must be > 0, got %d", c.Days)
	}
	if c.InflowScale < 0 {
		return fmt.Errorf("inflow_scale must be >= 0, got %g", c.InflowScale)
	}
	if _, err := c.StartDate(); err != nil {
		return err
	}
	if !trace.IsValidTraceLevel(string(c.Trace)) {
		return fmt.Errorf("unknown trace level %q", c.Trace)
	}
	if c.TraceEvery < 0 {
		return fmt.Errorf("trace_every must be >= 0, got %d", c.TraceEvery)
	}
	if c.Watershed.GraphFile == "" && c.Watershed.Graph == nil {
		return fmt.Errorf("watershed: graph_file or graph is required")
	}
	switch c.Weather.Source {
	case SourceGenerator:
		if err := c.Weather.Params.Validate(); err != nil {
			return err
		}
	case SourceConstant:
	default:
		return fmt.Errorf("unknown weather source %q", c.Weather.Source)
	}
	for name, amount := range c.Releases {
		if amount < 0 {
			return fmt.Errorf("release %q must be >= 0, got %g", name, amount)
		}
	}
	_, err := c.Reservoir.Geometry()
	return err
}

// Geometry builds the reservoir geometry from the tabulated curves.
func (rc ReservoirConfig) Geometry() (sim.Geometry, error) {
	ev, err := sim.NewTable(rc.Elevations, rc.Volumes, sim.Extrapolate)
	if err != nil {
		return sim.Geometry{}, fmt.Errorf("reservoir elevation-volume: %w", err)
	}
	va, err := sim.NewTable(rc.Volumes, rc.Areas, sim.Clamp)
	if err != nil {
		return sim.Geometry{}, fmt.Errorf("reservoir volume-area: %w", err)
	}
	g := sim.Geometry{
		ElevVolume:    ev,
		VolumeArea:    va,
		Bottom:        rc.Bottom,
		SpillwayCrest: rc.SpillwayCrest,
		OutletElev:    rc.OutletElev,
		WeirCoef:      rc.WeirCoef,
		WeirLength:    rc.WeirLength,
	}
	return g, g.Validate()
}

// Build creates the Reservoir described by rc.
func (rc ReservoirConfig) Build(ids sim.IDSource) (*sim.Reservoir, error) {
	g, err := rc.Geometry()
	if err != nil {
		return nil, err
	}
	initial := rc.InitialVolume
	if rc.InitialLevel != nil {
		initial = g.ElevVolume.LookupY(*rc.InitialLevel)
	}
	return sim.NewReservoir(sim.ReservoirConfig{
		Name:          rc.Name,
		InitialVolume: initial,
		Capacity:      rc.Capacity,
		Geometry:      g,
		IDs:           ids,
	})
}

// Build creates the Watershed described by wc.
func (wc WatershedConfig) Build(ids sim.IDSource) (*watershed.Watershed, error) {
	mode := watershed.Lenient
	if wc.Strict {
		mode = watershed.Strict
	}
	if wc.GraphFile != "" {
		return watershed.LoadFile(wc.GraphFile, mode, ids)
	}
	return watershed.Build(*wc.Graph, mode, ids)
}

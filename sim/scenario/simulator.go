// Package scenario drives a daily water-balance simulation: weather forcing
// feeds the watershed, whose outlet discharge fills the reservoir.
package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/aegis-hydro/aegis/sim"
	"github.com/aegis-hydro/aegis/sim/trace"
	"github.com/aegis-hydro/aegis/sim/watershed"
	"github.com/aegis-hydro/aegis/sim/weather"
)

// Result is the outcome of one simulation run.
type Result struct {
	RunID       string
	Realization int
	Seed        int64
	Start       time.Time
	Days        int

	Summary *trace.TraceSummary
	Trace   *trace.SimulationTrace // nil unless the trace level is steps

	FinalVolume float64
	FinalLevel  float64

	StartedAt time.Time // wall clock
	Elapsed   time.Duration
}

// Simulator owns every piece of mutable state of one run. Simulators never
// share state, so distinct Simulators may run concurrently.
type Simulator struct {
	cfg         Config
	realization int
	runID       uuid.UUID

	clock     *weather.Clock
	source    weather.Source
	watershed *watershed.Watershed
	reservoir *sim.Reservoir

	trace   *trace.SimulationTrace
	steps   *trace.SimulationTrace // unsampled, feeds the summary
	metrics *Metrics
	wall    clockwork.Clock
	ids     sim.IDSource
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithMetrics reports progress to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

// WithWallClock replaces the real clock used for run timing.
func WithWallClock(c clockwork.Clock) Option {
	return func(s *Simulator) { s.wall = c }
}

// WithSource replaces the configured weather source.
func WithSource(src weather.Source) Option {
	return func(s *Simulator) { s.source = src }
}

// WithRealization selects the Monte Carlo realization. Realization 0 draws
// weather from the master seed; realization n > 0 from its own partition.
func WithRealization(n int) Option {
	return func(s *Simulator) { s.realization = n }
}

// WithIDs sets the instance id source for the run's stores.
func WithIDs(ids sim.IDSource) Option {
	return func(s *Simulator) { s.ids = ids }
}

// NewSimulator validates cfg and builds a fresh reservoir, watershed,
// calendar and weather source.
func NewSimulator(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{cfg: cfg, runID: uuid.New(), wall: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = sim.NewCounter()
	}

	start, _ := cfg.StartDate()
	clock, err := weather.NewClock(start, cfg.Days)
	if err != nil {
		return nil, err
	}
	s.clock = clock

	if s.reservoir, err = cfg.Reservoir.Build(s.ids); err != nil {
		return nil, err
	}
	for name, amount := range cfg.Releases {
		if err := s.reservoir.SetRelease(name, amount); err != nil {
			return nil, fmt.Errorf("release: %w", err)
		}
	}
	if s.watershed, err = cfg.Watershed.Build(s.ids); err != nil {
		return nil, err
	}

	if s.source == nil {
		if s.source, err = s.newSource(); err != nil {
			return nil, err
		}
	}

	s.trace = trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.Trace, Every: cfg.TraceEvery})
	s.steps = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelSteps})
	return s, nil
}

func (s *Simulator) newSource() (weather.Source, error) {
	if s.cfg.Weather.Source == SourceConstant {
		return s.cfg.Weather.Constant, nil
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(s.cfg.Seed))
	subsystem := sim.SubsystemWeather
	if s.realization > 0 {
		subsystem = sim.SubsystemRealization(s.realization)
	}
	return weather.NewGenerator(s.cfg.Weather.Params, rng.ForSubsystem(subsystem))
}

// Reservoir exposes the run's reservoir.
func (s *Simulator) Reservoir() *sim.Reservoir { return s.reservoir }

// Watershed exposes the run's watershed.
func (s *Simulator) Watershed() *watershed.Watershed { return s.watershed }

// RunID returns the unique identifier of this run.
func (s *Simulator) RunID() string { return s.runID.String() }

// Step simulates the clock's current day and advances it.
//
// Order within a day: weather sample, watershed discharge, reservoir
// inflow, evaporation demand from PET over the current surface area,
// rationed update, then weir overflow.
func (s *Simulator) Step() (trace.StepRecord, error) {
	date := s.clock.Current()
	w := s.source.Next(date)

	runoff, err := s.watershed.Discharge(w.Precip, w.PET)
	if err != nil {
		return trace.StepRecord{}, fmt.Errorf("day %s: %w", date.Format(dateLayout), err)
	}
	inflow := runoff * s.cfg.InflowScale

	startVolume := s.reservoir.Volume()
	s.reservoir.SetEvaporation(w.PET)
	out := s.reservoir.Update(inflow, 0)
	overflow := s.reservoir.Store().Spilled()
	evaporation := grantedFor(s.reservoir.LastAllocations(), sim.RequestEvaporation)
	spill := s.reservoir.CalcOverflow()

	rec := trace.StepRecord{
		Step:        s.clock.Day(),
		Date:        date,
		Precip:      w.Precip,
		PET:         w.PET,
		Runoff:      runoff,
		Inflow:      inflow,
		StartVolume: startVolume,
		Evaporation: evaporation,
		Release:     out - evaporation,
		Spill:       spill,
		Overflow:    overflow,
		Volume:      s.reservoir.Volume(),
		Level:       s.reservoir.WaterLevel(),
	}
	s.trace.RecordStep(rec)
	s.steps.RecordStep(rec)
	s.metrics.observeStep(s.realization, rec)
	s.clock.Advance()
	return rec, nil
}

// Run simulates every remaining day. It stops early with ctx.Err() when
// ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	started := s.wall.Now()
	logrus.Debugf("run %s: realization %d, %d days from %s",
		s.runID, s.realization, s.clock.Days(), s.clock.Start().Format(dateLayout))

	for s.clock.Running() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.Step(); err != nil {
			return nil, err
		}
	}

	elapsed := s.wall.Since(started)
	s.metrics.observeRun(elapsed.Seconds())

	res := &Result{
		RunID:       s.runID.String(),
		Realization: s.realization,
		Seed:        s.cfg.Seed,
		Start:       s.clock.Start(),
		Days:        s.clock.Days(),
		Summary:     trace.Summarize(s.steps),
		FinalVolume: s.reservoir.Volume(),
		FinalLevel:  s.reservoir.WaterLevel(),
		StartedAt:   started,
		Elapsed:     elapsed,
	}
	if s.trace.Enabled() {
		res.Trace = s.trace
	}
	logrus.Debugf("run %s: final volume %.3f, spill %.3f, mass balance error %.3g",
		s.runID, res.FinalVolume, res.Summary.TotalSpill, res.Summary.MassBalanceError)
	return res, nil
}

func grantedFor(allocs []sim.Allocation, name string) float64 {
	for _, a := range allocs {
		if a.Name == name {
			return a.Granted
		}
	}
	return 0
}

package scenario

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aegis-hydro/aegis/sim/trace"
)

// Flux label values of Metrics.Flux.
const (
	FluxRunoff      = "runoff"
	FluxInflow      = "inflow"
	FluxEvaporation = "evaporation"
	FluxRelease     = "release"
	FluxSpill       = "spill"
	FluxOverflow    = "overflow"
)

// Metrics holds the Prometheus collectors updated by simulation runs.
// Collectors are safe for concurrent use, so one Metrics may serve a batch.
type Metrics struct {
	Flux  *prometheus.CounterVec // labels: flux
	Steps prometheus.Counter
	Runs  prometheus.Counter

	Volume *prometheus.GaugeVec // labels: realization
	Level  *prometheus.GaugeVec // labels: realization

	RunDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Flux: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aegis",
			Name:      "water_volume_total",
			Help:      "Cumulative water moved, by flux.",
		}, []string{"flux"}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Name:      "steps_total",
			Help:      "Total simulated days.",
		}),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aegis",
			Name:      "runs_total",
			Help:      "Total completed simulation runs.",
		}),
		Volume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aegis",
			Name:      "reservoir_volume",
			Help:      "Reservoir volume at the end of the last simulated day.",
		}, []string{"realization"}),
		Level: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aegis",
			Name:      "reservoir_level",
			Help:      "Reservoir water level at the end of the last simulated day.",
		}, []string{"realization"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aegis",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a simulation run.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Flux, m.Steps, m.Runs, m.Volume, m.Level, m.RunDuration)
	}
	return m
}

func (m *Metrics) observeStep(realization int, rec trace.StepRecord) {
	if m == nil {
		return
	}
	m.Steps.Inc()
	for _, f := range []struct {
		flux string
		v    float64
	}{
		{FluxRunoff, rec.Runoff},
		{FluxInflow, rec.Inflow},
		{FluxEvaporation, rec.Evaporation},
		{FluxRelease, rec.Release},
		{FluxSpill, rec.Spill},
		{FluxOverflow, rec.Overflow},
	} {
		// Counter.Add panics on negative values; rounding can leave tiny negatives.
		if f.v > 0 {
			m.Flux.WithLabelValues(f.flux).Add(f.v)
		}
	}
	label := strconv.Itoa(realization)
	m.Volume.WithLabelValues(label).Set(rec.Volume)
	m.Level.WithLabelValues(label).Set(rec.Level)
}

func (m *Metrics) observeRun(seconds float64) {
	if m == nil {
		return
	}
	m.Runs.Inc()
	m.RunDuration.Observe(seconds)
}

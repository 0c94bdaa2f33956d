package trace

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Steps int

	TotalPrecip      float64
	TotalRunoff      float64
	TotalInflow      float64
	TotalEvaporation float64
	TotalRelease     float64
	TotalSpill       float64
	TotalOverflow    float64

	PeakInflow     float64
	PeakInflowStep int
	PeakLevel      float64
	SpillDays      int // steps with weir discharge

	InitialVolume float64
	FinalVolume   float64
	MinVolume     float64
	MaxVolume     float64
	MeanVolume    float64
	StdDevVolume  float64

	// MassBalanceError is initial + inflow - outflows - final over the
	// recorded steps; it is only meaningful for unsampled traces.
	MassBalanceError float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{}
	if st == nil || len(st.Steps) == 0 {
		return summary
	}

	summary.Steps = len(st.Steps)
	summary.InitialVolume = st.Steps[0].StartVolume
	summary.FinalVolume = st.Steps[len(st.Steps)-1].Volume
	summary.MinVolume = math.Inf(1)
	summary.MaxVolume = math.Inf(-1)
	summary.PeakLevel = math.Inf(-1)

	volumes := make([]float64, 0, len(st.Steps))
	for _, r := range st.Steps {
		summary.TotalPrecip += r.Precip
		summary.TotalRunoff += r.Runoff
		summary.TotalInflow += r.Inflow
		summary.TotalEvaporation += r.Evaporation
		summary.TotalRelease += r.Release
		summary.TotalSpill += r.Spill
		summary.TotalOverflow += r.Overflow
		if r.Inflow > summary.PeakInflow {
			summary.PeakInflow = r.Inflow
			summary.PeakInflowStep = r.Step
		}
		if r.Spill > 0 {
			summary.SpillDays++
		}
		summary.PeakLevel = math.Max(summary.PeakLevel, r.Level)
		summary.MinVolume = math.Min(summary.MinVolume, r.Volume)
		summary.MaxVolume = math.Max(summary.MaxVolume, r.Volume)
		volumes = append(volumes, r.Volume)
	}
	summary.MeanVolume, summary.StdDevVolume = stat.MeanStdDev(volumes, nil)
	if len(volumes) < 2 {
		summary.StdDevVolume = 0
	}

	summary.MassBalanceError = summary.InitialVolume + summary.TotalInflow -
		summary.TotalEvaporation - summary.TotalRelease - summary.TotalSpill -
		summary.TotalOverflow - summary.FinalVolume

	return summary
}

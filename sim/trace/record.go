// Package trace provides per-step water-balance recording for simulation runs.
// This package has no dependencies on sim/ or its subpackages; it stores pure data types.
package trace

import "time"

// StepRecord captures the water balance of one simulated day.
// Depths are per unit area; volumes are in reservoir units.
type StepRecord struct {
	Step int
	Date time.Time

	Precip float64 // depth
	PET    float64 // depth

	Runoff      float64 // watershed outlet discharge
	Inflow      float64 // reservoir inflow after scaling
	StartVolume float64

	Evaporation float64 // granted evaporation volume
	Release     float64 // granted flood and spillway-gate releases
	Spill       float64 // weir discharge
	Overflow    float64 // inflow discarded at capacity

	Volume float64 // end-of-step volume
	Level  float64 // end-of-step water level
}

// Balance returns the step's mass-balance residual, zero when every unit of
// water is accounted for.
func (r StepRecord) Balance() float64 {
	return r.StartVolume + r.Inflow - r.Evaporation - r.Release - r.Spill - r.Overflow - r.Volume
}

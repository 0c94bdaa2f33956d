// Package testutil provides shared test infrastructure for the aegis simulator.
// It consolidates golden dataset types and assertion helpers used across
// sim/ and its subpackages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is a constant-forcing run of one catchment draining into
// the reference reservoir.
type GoldenTestCase struct {
	Name          string        `json:"name"`
	Area          float64       `json:"area"`
	Precip        float64       `json:"precip"`
	PET           float64       `json:"pet"`
	Days          int           `json:"days"`
	InflowScale   float64       `json:"inflow_scale"`
	InitialVolume float64       `json:"initial_volume"`
	Metrics       GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected outcome of a golden test case.
type GoldenMetrics struct {
	FinalRunoff      float64 `json:"final_runoff"`
	FinalVolume      float64 `json:"final_volume"`
	FinalLevel       float64 `json:"final_level"`
	TotalInflow      float64 `json:"total_inflow"`
	TotalEvaporation float64 `json:"total_evaporation"`
	TotalSpill       float64 `json:"total_spill"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertMassBalance fails when residual exceeds tol relative to scale
// (absolute when scale is zero).
func AssertMassBalance(t *testing.T, name string, residual, scale, tol float64) {
	t.Helper()
	if scale != 0 {
		residual /= scale
	}
	if math.Abs(residual) > tol {
		t.Errorf("%s: mass balance residual %v exceeds %v", name, residual, tol)
	}
}

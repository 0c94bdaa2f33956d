package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hydro/aegis/sim/scenario"
	"github.com/aegis-hydro/aegis/sim/trace"
)

func runShortBatch(t *testing.T, n int, level trace.TraceLevel) (scenario.Config, []*scenario.Result) {
	t.Helper()
	cfg := scenario.DefaultConfig()
	cfg.Days = 20
	cfg.Trace = level
	results, err := scenario.RunBatch(context.Background(), cfg, n, 2)
	require.NoError(t, err)
	return cfg, results
}

func TestReport_PrintSingleRun(t *testing.T) {
	// GIVEN one traced realization
	cfg, results := runShortBatch(t, 1, trace.TraceLevelSteps)

	// WHEN the report is printed
	var buf bytes.Buffer
	require.NoError(t, newReport(cfg, results).Print(&buf))

	// THEN the header and the JSON document appear, without a batch section
	out := buf.String()
	assert.Contains(t, out, "=== Simulation Results ===")
	assert.Contains(t, out, `"scenario": "reference"`)
	assert.Contains(t, out, `"run_id": "`+results[0].RunID+`"`)
	assert.Contains(t, out, `"steps": [`)
	assert.NotContains(t, out, `"batch"`)
}

func TestReport_BatchSummaryForManyRealizations(t *testing.T) {
	cfg, results := runShortBatch(t, 3, trace.TraceLevelNone)

	r := newReport(cfg, results)

	require.NotNil(t, r.Batch)
	assert.Equal(t, 3, r.Batch.Realizations)
	assert.Len(t, r.Runs, 3)
	for i, run := range r.Runs {
		assert.Equal(t, i, run.Realization)
		assert.Nil(t, run.Steps)
	}
}

func TestReport_Save(t *testing.T) {
	// GIVEN a report
	cfg, results := runShortBatch(t, 2, trace.TraceLevelNone)
	path := filepath.Join(t.TempDir(), "results.json")

	// WHEN saved to a file
	require.NoError(t, newReport(cfg, results).Save(path))

	// THEN the file holds the same report
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 20, got.Days)
	assert.Len(t, got.Runs, 2)
	assert.InDelta(t, results[1].FinalVolume, got.Runs[1].FinalVolume, 1e-12)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aegis-hydro/aegis/sim/scenario"
	"github.com/aegis-hydro/aegis/sim/trace"
)

// RunReport is the JSON form of one realization.
type RunReport struct {
	RunID         string              `json:"run_id"`
	Realization   int                 `json:"realization"`
	FinalVolume   float64             `json:"final_volume"`
	FinalLevel    float64             `json:"final_level"`
	ElapsedMillis float64             `json:"elapsed_ms"`
	Summary       *trace.TraceSummary `json:"summary"`
	Steps         []trace.StepRecord  `json:"steps,omitempty"`
}

// Report is the JSON document printed after a run.
type Report struct {
	Scenario string                 `json:"scenario"`
	Start    string                 `json:"start"`
	Days     int                    `json:"days"`
	Seed     int64                  `json:"seed"`
	Runs     []RunReport            `json:"runs"`
	Batch    *scenario.BatchSummary `json:"batch,omitempty"` // only for more than one realization
}

func newReport(cfg scenario.Config, results []*scenario.Result) *Report {
	r := &Report{Scenario: cfg.Name, Start: cfg.Start, Days: cfg.Days, Seed: cfg.Seed}
	for _, res := range results {
		rr := RunReport{
			RunID:         res.RunID,
			Realization:   res.Realization,
			FinalVolume:   res.FinalVolume,
			FinalLevel:    res.FinalLevel,
			ElapsedMillis: float64(res.Elapsed.Microseconds()) / 1000,
			Summary:       res.Summary,
		}
		if res.Trace != nil {
			rr.Steps = res.Trace.Steps
		}
		r.Runs = append(r.Runs, rr)
	}
	if len(results) > 1 {
		bs := scenario.SummarizeBatch(results)
		r.Batch = &bs
	}
	return r
}

// Print writes a header and the indented JSON report to w.
func (r *Report) Print(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "=== Simulation Results ===\n%s\n", data)
	return err
}

// Save writes the JSON report to path.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

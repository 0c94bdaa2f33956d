package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aegis-hydro/aegis/sim/scenario"
	"github.com/aegis-hydro/aegis/sim/trace"
	"github.com/aegis-hydro/aegis/sim/watershed"
)

// buildConfig loads the scenario named by --scenario (or the reference
// scenario) and applies the run flags on top. A flag overrides the file
// only when the user set it explicitly; without a file every flag applies.
func buildConfig(cmd *cobra.Command) (scenario.Config, error) {
	cfg := scenario.DefaultConfig()
	fromFile := scenarioPath != ""
	if fromFile {
		loaded, err := scenario.LoadConfigFile(scenarioPath)
		if err != nil {
			return scenario.Config{}, err
		}
		cfg = loaded
		cfg.Watershed.GraphFile = resolveRelative(scenarioPath, cfg.Watershed.GraphFile)
	}

	flags := cmd.Flags()
	if !fromFile || flags.Changed("days") {
		cfg.Days = days
	}
	if !fromFile || flags.Changed("seed") {
		cfg.Seed = seed
	}
	if !fromFile || flags.Changed("trace") {
		cfg.Trace = trace.TraceLevel(traceLevel)
	}
	if flags.Changed("strict-graph") {
		cfg.Watershed.Strict = strictGraph
	}
	return cfg, cfg.Validate()
}

// resolveRelative interprets a graph path relative to the scenario file
// that names it.
func resolveRelative(scenarioFile, graphFile string) string {
	if graphFile == "" || filepath.IsAbs(graphFile) {
		return graphFile
	}
	return filepath.Join(filepath.Dir(scenarioFile), graphFile)
}

func loadMode(strict bool) watershed.LoadMode {
	if strict {
		return watershed.Strict
	}
	return watershed.Lenient
}

// validateGraph loads a graph file and returns a one-paragraph description
// of it, or every problem found.
func validateGraph(path string, strict bool) (string, error) {
	w, err := watershed.LoadFile(path, loadMode(strict), nil)
	if err != nil {
		return "", err
	}
	if err := w.Validate(); err != nil {
		return "", err
	}

	var sb strings.Builder
	catchments := w.Catchments()
	fmt.Fprintf(&sb, "%s: %d nodes, %d catchments, outlet %s, total area %g\n",
		path, len(w.Network().Nodes()), len(catchments), w.OutflowNode(), w.TotalArea())
	for _, name := range catchments {
		info, _ := w.GetNode(name)
		fmt.Fprintf(&sb, "  %s -> %s\n", name, info.Downstream)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// graphDOT loads a graph file and renders it as Graphviz DOT.
func graphDOT(path string, strict bool) (string, error) {
	w, err := watershed.LoadFile(path, loadMode(strict), nil)
	if err != nil {
		return "", err
	}
	out, err := w.DOT()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

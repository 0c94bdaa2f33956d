package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aegis-hydro/aegis/sim/scenario"
)

var (
	// CLI flags for the run command
	scenarioPath string // Scenario YAML; empty runs the reference scenario
	days         int    // Number of simulated days
	seed         int64  // Seed for the weather generator
	logLevel     string // Log verbosity level
	realizations int    // Monte Carlo realizations
	parallel     int    // Realizations simulated at once
	traceLevel   string // Step trace level (none, steps)
	strictGraph  bool   // Fail on any graph error instead of skipping
	resultsPath  string // File to write the JSON results to
	metricsPath  string // File to write Prometheus text metrics to

	// CLI flags for the graph commands
	graphStrict bool
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Daily water-balance simulator for watersheds and reservoirs",
}

// runCmd executes the simulation using parameters from the scenario and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the water-balance simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}
		logrus.Infof("Starting scenario %q: %d days from %s, seed=%d, realizations=%d",
			cfg.Name, cfg.Days, cfg.Start, cfg.Seed, realizations)

		reg := prometheus.NewRegistry()
		metrics := scenario.NewMetrics(reg)

		results, err := scenario.RunBatch(context.Background(), cfg, realizations, parallel, scenario.WithMetrics(metrics))
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		report := newReport(cfg, results)
		if err := report.Print(os.Stdout); err != nil {
			logrus.Fatalf("Failed to print results: %v", err)
		}
		if resultsPath != "" {
			if err := report.Save(resultsPath); err != nil {
				logrus.Fatalf("Failed to save results: %v", err)
			}
			logrus.Infof("Results written to %s", resultsPath)
		}
		if metricsPath != "" {
			if err := prometheus.WriteToTextfile(metricsPath, reg); err != nil {
				logrus.Fatalf("Failed to write metrics: %v", err)
			}
			logrus.Infof("Metrics written to %s", metricsPath)
		}

		logrus.Info("Simulation complete.")
	},
}

// graphCmd groups the watershed graph utilities
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect watershed graph files",
}

var graphValidateCmd = &cobra.Command{
	Use:   "validate <graph.yaml>",
	Short: "Load a watershed graph and report problems",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		summary, err := validateGraph(args[0], graphStrict)
		if err != nil {
			logrus.Fatalf("Invalid graph: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
	},
}

var graphDotCmd = &cobra.Command{
	Use:   "dot <graph.yaml>",
	Short: "Print a watershed graph in Graphviz DOT format",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		out, err := graphDOT(args[0], graphStrict)
		if err != nil {
			logrus.Fatalf("Cannot render graph: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// addRunFlags registers the run flags on cmd, resetting them to their defaults.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (default: built-in reference scenario)")
	cmd.Flags().IntVar(&days, "days", 365, "Number of simulated days")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for weather generation")
	cmd.Flags().IntVar(&realizations, "realizations", 1, "Number of Monte Carlo realizations")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Realizations simulated concurrently (0 = unlimited)")
	cmd.Flags().StringVar(&traceLevel, "trace", "none", "Step trace level (none, steps)")
	cmd.Flags().BoolVar(&strictGraph, "strict-graph", false, "Fail on any watershed graph error instead of skipping it")
	cmd.Flags().StringVar(&resultsPath, "results-path", "", "File to write the JSON results to")
	cmd.Flags().StringVar(&metricsPath, "metrics-path", "", "File to write Prometheus text-format metrics to")
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	addRunFlags(runCmd)

	graphCmd.PersistentFlags().BoolVar(&graphStrict, "strict", false, "Fail on any graph error instead of skipping it")
	graphCmd.AddCommand(graphValidateCmd, graphDotCmd)

	rootCmd.AddCommand(runCmd, graphCmd)
}

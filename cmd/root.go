package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dessentialist/growth-model/sim"
	"github.com/dessentialist/growth-model/sim/report"
	"github.com/dessentialist/growth-model/sim/scenario"
)

var (
	scenarioPath string // Path to the YAML scenario file
	outputPath   string // Path for the results CSV; empty disables the file
	logLevel     string // Log verbosity level
	strictPairs  bool   // Force pairwise creation units regardless of scenario
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "growth-model",
	Short: "Deterministic hybrid simulator for phased B2B revenue growth",
}

// runCmd executes one scenario from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a growth scenario",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if scenarioPath == "" {
			logrus.Fatalf("No scenario file provided. Exiting simulation.")
		}

		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to read scenario: %v", err)
		}
		if strictPairs {
			sc.Runspecs.PairwiseAgent = true
		}
		bundle, err := sc.Resolve()
		if err != nil {
			logrus.Fatalf("unable to resolve scenario: %v", err)
		}

		simulator, err := sim.Build(bundle)
		if err != nil {
			logrus.Fatalf("unable to build simulation: %v", err)
		}

		logrus.Infof("Starting run: %d steps, %d sectors, %d products, pairwise=%v",
			simulator.Grid.NumSteps(), len(bundle.Sectors), len(bundle.Products), bundle.PairwiseAgents)
		startTime := time.Now()

		snapshots, err := simulator.Run()
		if err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}

		report.LogSummary(snapshots)
		if outputPath != "" {
			if err := report.Build(snapshots).WriteCSV(outputPath); err != nil {
				logrus.Fatalf("unable to write results: %v", err)
			}
			logrus.Infof("Results written to %s", outputPath)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the YAML scenario file")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Path for the results CSV (omit to skip the file)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().BoolVar(&strictPairs, "strict-pairs", false, "Treat every (sector, product) pair as its own creation unit")

	rootCmd.AddCommand(runCmd)
}

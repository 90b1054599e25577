package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/netwire-sim/netwire-sim/sim"
)

var (
	// CLI flags for the simulation run
	levelPath    string  // Path to the level JSON file
	settingsPath string  // Optional YAML settings file
	seed         int64   // Seed for all simulation randomness
	tickStep     float64 // Fixed tick step in seconds
	logLevel     string  // Log verbosity level

	// Settings overrides
	offWireThreshold float64 // Off-wire loss threshold in pixels
	rigidWires       bool    // Disable smooth wire curves
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "netwire-sim",
	Short: "Deterministic packet-routing network simulator",
}

// runCmd executes a level simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a level simulation to completion",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if levelPath == "" {
			logrus.Fatalf("No level file provided. Exiting simulation.")
		}

		settings := sim.DefaultSettings()
		if settingsPath != "" {
			settings, err = sim.LoadSettings(settingsPath)
			if err != nil {
				logrus.Fatalf("unable to read settings: %v", err)
			}
		}
		if cmd.Flags().Changed("off-wire-threshold") {
			settings.OffWireLossThreshold = offWireThreshold
		}
		if rigidWires {
			smooth := false
			settings.SmoothWireCurves = &smooth
		}

		lvl, err := sim.LoadLevel(levelPath)
		if err != nil {
			logrus.Fatalf("unable to load level: %v", err)
		}

		logrus.Infof("Starting simulation of %s with seed=%d, step=%.2fs", lvl.LevelID, seed, tickStep)

		eng := sim.NewEngine(lvl, settings, seed)
		eng.Run(tickStep)
		eng.Metrics.Print(eng.State)

		logrus.Info("Simulation complete.")
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
	runCmd.Flags().StringVar(&levelPath, "level", "", "Path to the level JSON file")
	runCmd.Flags().StringVar(&settingsPath, "settings", "", "Path to a YAML settings file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for deterministic simulation randomness")
	runCmd.Flags().Float64Var(&tickStep, "step", 0.1, "Fixed tick step in seconds")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Float64Var(&offWireThreshold, "off-wire-threshold", 20.0, "Off-wire loss threshold in pixels")
	runCmd.Flags().BoolVar(&rigidWires, "rigid-wires", false, "Use rigid polyline wire paths instead of smooth curves")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
}

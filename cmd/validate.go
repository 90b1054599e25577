package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/netwire-sim/netwire-sim/sim"
)

var validateLevelPath string

// validateCmd checks a level design for wiring feasibility: a level whose port
// counts cannot balance can never be fully connected.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a level file for port-balance feasibility",
	Run: func(cmd *cobra.Command, args []string) {
		if validateLevelPath == "" {
			logrus.Fatalf("No level file provided.")
		}
		lvl, err := sim.LoadLevel(validateLevelPath)
		if err != nil {
			logrus.Fatalf("unable to load level: %v", err)
		}

		result := lvl.ValidateDesign()
		fmt.Printf("Level %s (%s)\n", lvl.LevelID, lvl.Name)
		fmt.Printf("  input ports : %d\n", result.TotalInputPorts)
		fmt.Printf("  output ports: %d\n", result.TotalOutputPorts)
		if result.Feasible() {
			fmt.Println("  design is feasible: every port can be wired")
			return
		}
		if !result.BalancedPorts {
			fmt.Println("  UNBALANCED: input and output port counts differ")
		}
		if !result.CompatibleShapes {
			fmt.Printf("  SHAPE MISMATCH:%s\n", result.ShapeIssues)
		}
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateLevelPath, "level", "", "Path to the level JSON file")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/netwire-sim/netwire-sim/sim"
)

var schemaOutPath string

// schemaCmd emits a machine-readable JSON schema for level files, for editor
// tooling and level validation outside the engine.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Emit the JSON schema for level files",
	Run: func(cmd *cobra.Command, args []string) {
		schema := buildLevelSchema()
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			logrus.Fatalf("marshal schema: %v", err)
		}
		data = append(data, '\n')

		if schemaOutPath == "" {
			fmt.Print(string(data))
			return
		}
		if err := writeSchemaFile(schemaOutPath, data); err != nil {
			logrus.Fatalf("failed to write schema: %v", err)
		}
	},
}

func buildLevelSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(sim.GameLevel))
	schema.Title = "Packet Network Level"
	schema.Description = "Validates level files consumed by netwire-sim run --level"
	return schema
}

func writeSchemaFile(outPath string, data []byte) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create schema directory: %w", err)
		}
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}

func init() {
	schemaCmd.Flags().StringVar(&schemaOutPath, "out", "", "Path to write the schema (stdout when empty)")
}

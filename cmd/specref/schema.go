package main

import (
	"io"
	"os"

	"github.com/jingkaihe/specref/pkg/presenter"
	"github.com/jingkaihe/specref/pkg/skills"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of .skills.json",
	Long:  `Print the JSON schema describing the .skills.json manifest format, for use with editors and validators.`,
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runSchema(os.Stdout); err != nil {
			presenter.Error(err, "Failed to generate schema")
			os.Exit(exitFailure)
		}
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(out io.Writer) error {
	return writeStructured(out, formatJSON, skills.Schema())
}

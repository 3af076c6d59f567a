package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ValidationResult holds the validate command payload.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Tables []string `json:"tables,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate table definitions without touching a database",
		Long: `Validate CUE table definitions without applying them.

Compiles the schema directory and runs the same checks init does,
but never opens a database. Fast feedback while editing definitions.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	specs, err := LoadSchema(schemaDir)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	result := &ValidationResult{Valid: true}
	for _, spec := range specs {
		result.Tables = append(result.Tables, spec.Name)
		formatter.VerboseLog("table %s: %d column(s)", spec.Name, len(spec.Columns))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d table definition(s) valid\n", len(specs))
	for _, spec := range specs {
		fmt.Fprintf(formatter.Writer, "  %s (%s)\n",
			spec.Name, strings.Join(spec.SortedColumns(), ", "))
	}
	return nil
}

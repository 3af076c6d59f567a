package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/syncstore/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
}

// InitResult is the success payload for init.
type InitResult struct {
	Database string   `json:"database"`
	Tables   []string `json:"tables"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init <schema-dir>",
		Short: "Create a database from CUE table definitions",
		Long: `Create or update a database from CUE table definitions.

Compiles every .cue file in the schema directory, validates the table
definitions, and applies the generated DDL. Idempotent: existing
tables are left untouched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "syncstore.db", "database file path")

	return cmd
}

func runInit(opts *InitOptions, schemaDir string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Compiled %d table definition(s) from %s", len(specs), schemaDir)

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	if err := st.ApplySchema(specs); err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("applying schema: %v", err))
	}

	result := &InitResult{Database: opts.Database}
	for _, spec := range specs {
		result.Tables = append(result.Tables, spec.Name)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Applied %d table(s) to %s\n", len(result.Tables), result.Database)
	for _, name := range result.Tables {
		fmt.Fprintf(formatter.Writer, "  %s\n", name)
	}
	return nil
}

// outputLoadError renders a schema loading failure and converts it to
// a command-level exit error.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputCommandError renders the error and wraps it with exit code 2.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

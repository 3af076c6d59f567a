package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/syncstore/internal/store"
)

// TablesOptions holds flags for the tables command.
type TablesOptions struct {
	*RootOptions
	Database string
}

// TablesResult is the success payload for tables.
type TablesResult struct {
	Tables []TableInfo `json:"tables"`
}

// TableInfo describes one table.
type TableInfo struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TablesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "tables",
		Short:         "List tables and row counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "syncstore.db", "database file path")

	return cmd
}

func runTables(opts *TablesOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return outputCommandError(formatter, ErrCodeDatabase,
			fmt.Sprintf("database not found: %s (run init first)", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	names, err := st.Tables(cmd.Context())
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("listing tables: %v", err))
	}

	result := &TablesResult{}
	for _, name := range names {
		rows, err := st.CountRows(cmd.Context(), name)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("counting %s: %v", name, err))
		}
		result.Tables = append(result.Tables, TableInfo{Name: name, Rows: rows})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if len(result.Tables) == 0 {
		fmt.Fprintln(formatter.Writer, "No tables")
		return nil
	}
	for _, t := range result.Tables {
		fmt.Fprintf(formatter.Writer, "%s\t%d row(s)\n", t.Name, t.Rows)
	}
	return nil
}

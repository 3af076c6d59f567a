package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/syncstore/internal/harness"
	"github.com/roach88/syncstore/internal/provider"
	"github.com/roach88/syncstore/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database string
}

// ApplyResult is the success payload for apply.
type ApplyResult struct {
	Applied  int               `json:"applied"`
	Results  []provider.Result `json:"results"`
	Notified bool              `json:"notified"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <batch.yaml>",
		Short: "Apply a batch of mutations in one transaction",
		Long: `Apply an ordered batch of mutations to a database.

The batch file lists insert/update/delete operations with payloads,
selections and back-references. All operations run inside one
transaction: on failure everything since the last yield point rolls
back and the failing operation index is reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "syncstore.db", "database file path")

	return cmd
}

func runApply(opts *ApplyOptions, batchPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	bf, err := harness.LoadBatchFile(batchPath)
	if err != nil {
		return outputCommandError(formatter, ErrCodeBatch, err.Error())
	}
	ops, err := bf.ProviderOperations()
	if err != nil {
		return outputCommandError(formatter, ErrCodeBatch, err.Error())
	}
	formatter.VerboseLog("Loaded %d operation(s) from %s", len(ops), batchPath)

	if _, err := os.Stat(opts.Database); err != nil {
		return outputCommandError(formatter, ErrCodeDatabase,
			fmt.Sprintf("database not found: %s (run init first)", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}

	notified := false
	p := provider.New(st, &provider.StoreHandler{Store: st},
		provider.WithLogger(logger),
		provider.WithNotifier(provider.NotifyFunc(func(propagate bool) {
			notified = true
			formatter.VerboseLog("change notification (propagate_remote=%v)", propagate)
		})))

	results, err := p.ApplyBatch(cmd.Context(), ops)
	if err != nil {
		_ = formatter.Error(ErrCodeBatch, err.Error(), nil)
		return WrapExitError(ExitFailure, "batch failed", err)
	}

	result := &ApplyResult{Applied: len(results), Results: results, Notified: notified}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Applied %d operation(s)\n", len(results))
	for i, r := range results {
		if r.URI != "" {
			fmt.Fprintf(formatter.Writer, "  %d: %s\n", i, r.URI)
		} else {
			fmt.Fprintf(formatter.Writer, "  %d: %d row(s)\n", i, r.Count)
		}
	}
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/csvio"
	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/merge"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	JSON     bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import transactions from CSV or a document from JSON",
		Long: `Import a CSV transaction file into the local document, creating
referenced books, accounts and categories on demand. With --json the
file is treated as a full wallet document export and merged into the
local document instead.

Example:
  walletsync import bank_export.csv --db ./wallet.db
  walletsync import backup.json --json --db ./wallet.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "treat the file as a full document export")

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	cfg, err := loadConfig(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	ids := domain.UUIDSource{}
	d, err := st.LoadLocal(ctx, ids)
	if err != nil {
		return WrapExitError(ExitCommandError, "load document", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if opts.JSON {
		raw, err := os.ReadFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "read import file", err)
		}
		imported, err := domain.Decode(raw, ids)
		if err != nil {
			return WrapExitError(ExitFailure, "parse document", err)
		}
		out := merge.Merge(d, imported)
		if err := st.SaveLocal(ctx, out); err != nil {
			return WrapExitError(ExitCommandError, "persist document", err)
		}
		if opts.Format == "json" {
			return formatter.Success(map[string]interface{}{"books": len(out.Books)})
		}
		return formatter.Success(fmt.Sprintf("Merged document: now %d book(s)", len(out.Books)))
	}

	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "open import file", err)
	}
	defer f.Close()

	rows, err := csvio.ParseRows(f)
	if err != nil {
		return WrapExitError(ExitFailure, "parse csv", err)
	}

	out, stats := csvio.Apply(d, rows, d.ActiveBookID, domain.SystemClock{}, ids)
	if err := st.SaveLocal(ctx, out); err != nil {
		return WrapExitError(ExitCommandError, "persist document", err)
	}

	if opts.Format == "json" {
		return formatter.Success(stats)
	}
	return formatter.Success(fmt.Sprintf(
		"Import complete: %d transaction(s), %d new book(s), %d new categorie(s)",
		stats.Transactions, stats.Books, stats.Categories))
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/csvio"
	"github.com/roach88/walletsync/internal/domain"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Book     string
	Output   string
	JSON     bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV or the document as JSON",
		Long: `Export the active book's transactions as CSV (importable by the
import command and by spreadsheets). With --json the full wallet
document is exported instead, suitable for backup and for merging on
another device.

Example:
  walletsync export --db ./wallet.db -o household.csv
  walletsync export --book Savings --db ./wallet.db
  walletsync export --json --db ./wallet.db -o backup.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Book, "book", "", "book name (default: active book)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "export the full document as JSON")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
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

	d, err := st.LoadLocal(cmd.Context(), domain.UUIDSource{})
	if err != nil {
		return WrapExitError(ExitCommandError, "load document", err)
	}

	out := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "create output file", err)
		}
		defer f.Close()
		out = f
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return WrapExitError(ExitFailure, "encode document", err)
		}
		return nil
	}

	book := d.ActiveBook()
	if opts.Book != "" {
		book = nil
		for i := range d.Books {
			if strings.EqualFold(d.Books[i].Name, opts.Book) {
				book = &d.Books[i]
				break
			}
		}
		if book == nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown book %q", opts.Book))
		}
	}
	if book == nil {
		return NewExitError(ExitFailure, "no active book")
	}

	if err := csvio.ExportTransactions(out, *book, d.Books); err != nil {
		return WrapExitError(ExitFailure, "export csv", err)
	}
	return nil
}

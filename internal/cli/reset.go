package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/domain"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Database string
	Book     string
	Yes      bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all transactions from a book",
		Long: `Delete every transaction from a book (the active book by default).
Accounts, categories and recurring rules are kept. Requires --yes;
there is no undo.

Example:
  walletsync reset --db ./wallet.db --yes
  walletsync reset --book Savings --db ./wallet.db --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Book, "book", "", "book name (default: active book)")
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the deletion")

	return cmd
}

func runReset(opts *ResetOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	if !opts.Yes {
		return NewExitError(ExitCommandError, "reset deletes every transaction in the book; pass --yes to confirm")
	}

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
	d, err := st.LoadLocal(ctx, domain.UUIDSource{})
	if err != nil {
		return WrapExitError(ExitCommandError, "load document", err)
	}

	bookID := d.ActiveBookID
	if opts.Book != "" {
		found := false
		for _, b := range d.Books {
			if b.Name == opts.Book {
				bookID = b.ID
				found = true
				break
			}
		}
		if !found {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown book %q", opts.Book))
		}
	}

	cleared := 0
	if b := d.FindBook(bookID); b != nil {
		cleared = len(b.Transactions)
	}

	out, err := domain.ClearBookTransactions(d, bookID)
	if err != nil {
		return WrapExitError(ExitFailure, "clear transactions", err)
	}
	if err := st.SaveLocal(ctx, out); err != nil {
		return WrapExitError(ExitCommandError, "persist document", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]interface{}{"bookId": bookID, "cleared": cleared})
	}
	return formatter.Success(fmt.Sprintf("Cleared %d transaction(s) from book %s", cleared, bookID))
}

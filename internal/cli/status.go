package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/domain"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the local document summary",
		Long: `Show the local wallet document: books with derived balances, the
active book, and the sync configuration.

Example:
  walletsync status --db ./wallet.db
  walletsync status --db ./wallet.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
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

	hash, err := domain.StateHash(d)
	if err != nil {
		return WrapExitError(ExitFailure, "hash document", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if opts.Format == "json" {
		type bookStatus struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			Currency     string `json:"currency"`
			Transactions int    `json:"transactions"`
			Balance      string `json:"balance"`
			Active       bool   `json:"active"`
		}
		books := make([]bookStatus, 0, len(d.Books))
		for _, b := range d.Books {
			books = append(books, bookStatus{
				ID:           b.ID,
				Name:         b.Name,
				Currency:     b.Currency,
				Transactions: len(b.Transactions),
				Balance:      domain.BookBalance(b).String(),
				Active:       b.ID == d.ActiveBookID,
			})
		}
		payload := map[string]interface{}{
			"deviceId":      d.DeviceID,
			"schemaVersion": d.SchemaVersion,
			"stateHash":     hash,
			"books":         books,
		}
		if d.SyncConfig != nil {
			payload["sync"] = d.SyncConfig
		}
		return formatter.Success(payload)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Device:  %s\n", d.DeviceID)
	fmt.Fprintf(&b, "Schema:  v%d\n", d.SchemaVersion)
	fmt.Fprintf(&b, "State:   %s\n", hash[:12])
	fmt.Fprintf(&b, "Books:   %d\n", len(d.Books))
	for _, book := range d.Books {
		marker := " "
		if book.ID == d.ActiveBookID {
			marker = "*"
		}
		fmt.Fprintf(&b, "  %s %s (%s): %d transactions, balance %s%s\n",
			marker, book.Name, book.ID, len(book.Transactions),
			book.Currency, domain.BookBalance(book))
	}
	if d.SyncConfig != nil && d.SyncConfig.Enabled {
		fmt.Fprintf(&b, "Sync:    %s", d.SyncConfig.Mode)
	} else {
		fmt.Fprintf(&b, "Sync:    disabled")
	}
	return formatter.Success(b.String())
}

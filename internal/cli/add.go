package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/domain"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Database string
	Book     string
	Type     string
	Account  string
	Category string
	Date     string
	Note     string
	Tags     []string
	Repeat   string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Add a transaction",
		Long: `Add a transaction to a book (the active book by default). Account and
category are matched by name, case-insensitively. With --repeat a
recurring rule is registered alongside the transaction.

Example:
  walletsync add 12.50 --db ./wallet.db --note "Lunch"
  walletsync add 1500 --type income --account Bank --note "Salary"
  walletsync add 9.99 --repeat monthly --note "Streaming"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Book, "book", "", "book name (default: active book)")
	cmd.Flags().StringVar(&opts.Type, "type", "expense", "transaction type (expense|income|transfer)")
	cmd.Flags().StringVar(&opts.Account, "account", "", "account name")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category name")
	cmd.Flags().StringVar(&opts.Date, "date", "", "business date (ISO, default: now)")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note")
	cmd.Flags().StringSliceVar(&opts.Tags, "tags", nil, "tags")
	cmd.Flags().StringVar(&opts.Repeat, "repeat", "", "recurrence (daily|weekly|monthly|yearly)")

	return cmd
}

func runAdd(opts *AddOptions, amountArg string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	amount, err := decimal.NewFromString(amountArg)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid amount %q", amountArg), err)
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
	ids := domain.UUIDSource{}
	d, err := st.LoadLocal(ctx, ids)
	if err != nil {
		return WrapExitError(ExitCommandError, "load document", err)
	}

	in := domain.NewTransaction{
		Amount:     amount,
		Type:       domain.TransactionType(opts.Type),
		Date:       opts.Date,
		Note:       opts.Note,
		Tags:       opts.Tags,
		Recurrence: domain.Frequency(opts.Repeat),
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
	in.BookID = bookID

	if book := d.FindBook(bookID); book != nil {
		if opts.Account != "" {
			if id, ok := findByName(book.Accounts, opts.Account); ok {
				in.AccountID = id
			} else {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown account %q", opts.Account))
			}
		}
		if opts.Category != "" {
			if id, ok := findCategoryByName(book.Categories, opts.Category); ok {
				in.CategoryID = id
			} else {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown category %q", opts.Category))
			}
		}
	}

	out, err := domain.AddTransaction(d, domain.SystemClock{}, ids, in)
	if err != nil {
		return WrapExitError(ExitFailure, "add transaction", err)
	}
	if err := st.SaveLocal(ctx, out); err != nil {
		return WrapExitError(ExitCommandError, "persist document", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"bookId": bookID,
			"amount": amount.String(),
			"type":   opts.Type,
		})
	}
	return formatter.Success(fmt.Sprintf("Added %s %s to book %s", opts.Type, amount, bookID))
}

func findByName(accounts []domain.Account, name string) (string, bool) {
	for _, a := range accounts {
		if strings.EqualFold(a.Name, name) {
			return a.ID, true
		}
	}
	return "", false
}

func findCategoryByName(categories []domain.Category, name string) (string, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c.ID, true
		}
	}
	return "", false
}

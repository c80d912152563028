package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/recur"
)

// MaterializeOptions holds flags for the materialize command.
type MaterializeOptions struct {
	*RootOptions
	Database string
	AsOf     string
}

// NewMaterializeCommand creates the materialize command.
func NewMaterializeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MaterializeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Materialize due recurring transactions",
		Long: `Run recurrence catch-up once: every recurring rule that is due as of
the given date (default today) emits its transactions and advances.
The running engine does this automatically; this command serves devices
that only run on demand.

Example:
  walletsync materialize --db ./wallet.db
  walletsync materialize --as-of 2026-09-01 --db ./wallet.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaterialize(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.AsOf, "as-of", "", "materialize up to this date (ISO, default: now)")

	return cmd
}

func runMaterialize(opts *MaterializeOptions, cmd *cobra.Command) error {
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

	clock := domain.Clock(domain.SystemClock{})
	asOf := clock.Now()
	if opts.AsOf != "" {
		t, ok := domain.ParseInstant(opts.AsOf)
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid date %q", opts.AsOf))
		}
		asOf = t
	}

	ctx := cmd.Context()
	d, err := st.LoadLocal(ctx, domain.UUIDSource{})
	if err != nil {
		return WrapExitError(ExitCommandError, "load document", err)
	}

	before := countTransactions(d)
	out, changed := recur.New(clock).Materialize(d, asOf)
	created := countTransactions(out) - before

	if changed {
		if err := st.SaveLocal(ctx, out); err != nil {
			return WrapExitError(ExitCommandError, "persist document", err)
		}
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]interface{}{"created": created})
	}
	return formatter.Success(fmt.Sprintf("Materialized %d transaction(s)", created))
}

func countTransactions(d domain.GlobalData) int {
	n := 0
	for _, b := range d.Books {
		n += len(b.Transactions)
	}
	return n
}

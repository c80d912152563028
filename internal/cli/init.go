package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/domain"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the device database",
		Long: `Create the device database and seed it with a default wallet. Safe to
run against an existing database; an established document is left
untouched.

Example:
  walletsync init --db ./wallet.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
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
		return WrapExitError(ExitCommandError, "initialize document", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]interface{}{
			"db":           cfg.DBPath,
			"deviceId":     d.DeviceID,
			"books":        len(d.Books),
			"activeBookId": d.ActiveBookID,
		})
	}
	return formatter.Success(fmt.Sprintf("Initialized %s: %d book(s), device %s", cfg.DBPath, len(d.Books), d.DeviceID))
}

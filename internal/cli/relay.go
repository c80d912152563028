package cli

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/relay"
)

// RelayOptions holds flags for the relay command.
type RelayOptions struct {
	*RootOptions
	Listen string
}

// NewRelayCommand creates the relay command.
func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the rendezvous relay",
		Long: `Run the relay devices in peer sync mode meet through. The relay
forwards snapshots between registered identities and never inspects
wallet data.

Example:
  walletsync relay --listen :9100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", ":9100", "listen address")

	return cmd
}

func runRelay(opts *RelayOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	srv := relay.NewServer()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.Handler)

	slog.Info("relay listening", "addr", opts.Listen)
	fmt.Fprintf(cmd.OutOrStdout(), "Relay listening on %s\n", opts.Listen)

	if err := http.ListenAndServe(opts.Listen, mux); err != nil {
		return WrapExitError(ExitFailure, "relay error", err)
	}
	return nil
}

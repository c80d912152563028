package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/config"
	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/engine"
	"github.com/roach88/walletsync/internal/httpapi"
	"github.com/roach88/walletsync/internal/relay"
	"github.com/roach88/walletsync/internal/store"
	"github.com/roach88/walletsync/internal/transport"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	NoHTTP   bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine",
		Long: `Run the device sync engine: the single-writer loop that owns the
wallet document, the configured sync transport, and the local status
endpoint.

Sync transport selection comes from configuration (file or WALLETSYNC_*
environment). With sync disabled the engine still runs locally and
materializes recurring transactions.

Example:
  walletsync run --db ./wallet.db
  walletsync run --config ./walletsync.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().BoolVar(&opts.NoHTTP, "no-http", false, "disable the local status endpoint")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	cfg, err := loadConfig(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}

	slog.Info("opening database", "path", cfg.DBPath)
	st, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	eng := engine.New(st)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	tr, err := buildTransport(ctx, cfg, st, eng)
	if err != nil {
		return err
	}
	if tr != nil {
		eng.SetTransport(tr)
		defer tr.Stop()
	}

	var api *httpapi.Server
	if !opts.NoHTTP && cfg.Listen != "" {
		api = httpapi.New(eng)
		go func() {
			slog.Info("status endpoint listening", "addr", cfg.Listen)
			if err := api.Listen(cfg.Listen); err != nil {
				slog.Error("status endpoint failed", "error", err)
			}
		}()
		defer func() {
			if err := api.Shutdown(); err != nil {
				slog.Error("status endpoint shutdown failed", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintln(cmd.OutOrStdout(), "Engine started. Press Ctrl-C to stop.")

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	slog.Info("engine stopped gracefully")
	return nil
}

// buildTransport constructs and starts the configured sync transport.
// Returns nil when sync is disabled.
func buildTransport(ctx context.Context, cfg *config.Config, st *store.Store, eng *engine.Engine) (transport.Transport, error) {
	if !cfg.Sync.Enabled {
		slog.Info("sync disabled, running offline")
		return nil, nil
	}

	switch domain.SyncMode(cfg.Sync.Mode) {
	case domain.SyncModePeer:
		channel := relay.NewChannel(cfg.Sync.RelayURL)
		peer := transport.NewPeer(channel, cfg.Sync.FamilyName, cfg.Sync.Slot, eng.Handlers())
		if err := peer.Start(ctx); err != nil {
			return nil, WrapExitError(ExitCommandError, "start peer sync", err)
		}
		return peer, nil

	case domain.SyncModeDocument:
		// The bootstrap push can fire before the engine loop has loaded
		// the document, so read the snapshot straight from the store.
		local := func() domain.GlobalData {
			d, err := st.LoadLocal(ctx, domain.UUIDSource{})
			if err != nil {
				slog.Warn("load local snapshot for bootstrap failed", "error", err)
				return domain.DefaultData(domain.UUIDSource{})
			}
			return d
		}
		doc := transport.NewDocument(st, cfg.Sync.WalletID, local, eng.Handlers())
		if err := doc.Start(ctx); err != nil {
			return nil, WrapExitError(ExitCommandError, "start document sync", err)
		}
		return doc, nil

	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown sync mode %q", cfg.Sync.Mode))
	}
}

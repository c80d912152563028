package cli

import (
	"log/slog"
	"os"

	"github.com/roach88/walletsync/internal/config"
	"github.com/roach88/walletsync/internal/store"
)

// setupLogging points slog at stderr with the level the verbose flag
// selects. Stdout stays reserved for command output.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig resolves the effective configuration, with an explicit
// --db flag overriding whatever the file and environment said.
func loadConfig(opts *RootOptions, dbFlag string) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}
	return cfg, nil
}

// openStore opens the device database, mapping failures to a command
// error exit code.
func openStore(path string, opts ...store.Option) (*store.Store, error) {
	st, err := store.Open(path, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	return st, nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/merge"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Output string
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge <local.json> <remote.json>",
		Short: "Merge two document exports",
		Long: `Merge two wallet document JSON exports with the same rules the sync
engine applies: last-writer-wins per transaction, union everywhere
else, local side authoritative for device-local settings. The first
file is the local side.

Example:
  walletsync merge mine.json theirs.json -o merged.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runMerge(opts *MergeOptions, localPath, remotePath string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	ids := domain.UUIDSource{}
	local, err := readDocument(localPath, ids)
	if err != nil {
		return err
	}
	remote, err := readDocument(remotePath, ids)
	if err != nil {
		return err
	}

	merged := merge.Merge(local, remote)

	out := cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "create output file", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(merged); err != nil {
		return WrapExitError(ExitFailure, "encode merged document", err)
	}
	return nil
}

func readDocument(path string, ids domain.IDSource) (domain.GlobalData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.GlobalData{}, WrapExitError(ExitCommandError, fmt.Sprintf("read %s", path), err)
	}
	d, err := domain.Decode(raw, ids)
	if err != nil {
		return domain.GlobalData{}, WrapExitError(ExitFailure, fmt.Sprintf("parse %s", path), err)
	}
	return d, nil
}

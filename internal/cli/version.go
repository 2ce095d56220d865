package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/runfortran/internal/ir"
)

// VersionInfo is the JSON payload of the version command.
type VersionInfo struct {
	Version         string `json:"version"`
	SnapshotVersion string `json:"snapshot_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the tool and snapshot format versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: ir.Version, SnapshotVersion: ir.SnapshotVersion}
			if rootOpts.Format == "json" {
				return newFormatter(rootOpts, cmd).Success(info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run-fortran %s (snapshot format %s)\n", info.Version, info.SnapshotVersion)
			return nil
		},
	}
}

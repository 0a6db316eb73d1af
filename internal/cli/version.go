package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/manifold/internal/ir"
)

// VersionInfo is the payload of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	IRVersion string `json:"ir_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print compiler and IR versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format: rootOpts.Format,
				Writer: cmd.OutOrStdout(),
			}
			info := VersionInfo{Version: ir.CompilerVersion, IRVersion: ir.IRVersion}
			if formatter.Format == "json" {
				return formatter.Success(info)
			}
			fmt.Fprintf(formatter.Writer, "manifold %s (ir %s)\n", info.Version, info.IRVersion)
			return nil
		},
	}
}

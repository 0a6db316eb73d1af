package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/manifold/internal/diff"
	"github.com/roach88/manifold/internal/ir"
	"github.com/roach88/manifold/internal/registry"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Registry string
	Floor    int
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff [base.mux] <head.mux>",
		Short: "Compare two schema versions",
		Long: `Compare two schema versions and classify every change as breaking,
dangerous or compatible.

With one argument the base comes from the latest snapshot in the
registry given by --registry. Exit code is 1 when breaking changes
exist.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Registry, "registry", "", "snapshot registry database path")
	cmd.Flags().IntVar(&opts.Floor, "floor", 0, "lowest assignable field number")

	return cmd
}

func runDiff(opts *DiffOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	var (
		base    *ir.Schema
		headArg string
	)
	if len(args) == 2 {
		headArg = args[1]
		schema, errs := buildSchema(buildRequest{Root: args[0], Floor: opts.Floor})
		if len(errs) > 0 {
			return outputDiagnostics(formatter, "base compilation failed", errs)
		}
		base = schema
	} else {
		headArg = args[0]
		snap, err := latestSnapshot(cmd, opts.Registry)
		if err != nil {
			return commandError(formatter, ErrCodeRegistry, err.Error())
		}
		formatter.VerboseLog("Base snapshot %s (%s)", snap.ID, snap.Fingerprint)
		base = snap.Schema
	}

	head, errs := buildSchema(buildRequest{Root: headArg, Floor: opts.Floor})
	if len(errs) > 0 {
		return outputDiagnostics(formatter, "head compilation failed", errs)
	}

	report := diff.Compare(base, head)
	return outputDiffReport(formatter, report)
}

// latestSnapshot loads the registry baseline for single-argument diff.
func latestSnapshot(cmd *cobra.Command, path string) (*registry.Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("diff needs either a base schema argument or --registry")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("registry not found: %s", path)
	}
	reg, err := registry.Open(path)
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	snap, err := reg.Latest(cmd.Context())
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("registry %s has no snapshots", path)
	}
	return snap, nil
}

// outputDiffReport renders the report and maps breaking changes to
// exit code 1.
func outputDiffReport(formatter *OutputFormatter, report *diff.Report) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: report}
		if report.HasBreaking() {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "BREAKING_CHANGES",
				Message: fmt.Sprintf("%d breaking change(s)", report.Breaking),
			}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		if report.HasBreaking() {
			return NewExitError(ExitFailure, fmt.Sprintf("%d breaking change(s)", report.Breaking))
		}
		return nil
	}

	fmt.Fprint(formatter.Writer, report.Text())
	if report.HasBreaking() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d breaking change(s)", report.Breaking))
	}
	return nil
}

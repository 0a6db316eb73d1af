package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/manifold/internal/compiler"
	"github.com/roach88/manifold/internal/emit"
	"github.com/roach88/manifold/internal/ir"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Annotations []string
	Floor       int
}

// CheckReport is the success payload of the check command.
type CheckReport struct {
	Root        string       `json:"root"`
	Version     string       `json:"version"`
	Fingerprint string       `json:"fingerprint"`
	Stats       CompileStats `json:"stats"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <root.mux>",
		Short: "Validate a schema without writing artifacts",
		Long: `Validate a .mux schema without writing artifacts.

Runs the full pipeline including per-target name and contract checks,
so a clean check guarantees compile would succeed for every target.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Annotations, "annotations", nil, "annotation overlay file, may repeat")
	cmd.Flags().IntVar(&opts.Floor, "floor", 0, "lowest assignable field number")

	return cmd
}

func runCheck(opts *CheckOptions, root string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	schema, errs := buildSchema(buildRequest{
		Root:        root,
		Annotations: opts.Annotations,
		Floor:       opts.Floor,
	})
	if len(errs) > 0 {
		return outputDiagnostics(formatter, "check failed", errs)
	}

	// Emission-stage checks without emission: rendered-name collisions
	// and per-target contract failures, in emission order.
	var targetErrs []error
	collisions := compiler.CheckCollisions(schema)
	for _, target := range ir.AllTargets {
		targetErrs = append(targetErrs, collisions[target]...)
	}
	for _, target := range ir.AllTargets {
		if len(collisions[target]) > 0 {
			continue // rendering a colliding schema reports nothing new
		}
		formatter.VerboseLog("Rendering %s", target)
		if _, err := emit.Render(schema, target); err != nil {
			targetErrs = append(targetErrs, err)
		}
	}
	if len(targetErrs) > 0 {
		return outputDiagnostics(formatter, "check failed", targetErrs)
	}

	fingerprint, err := ir.Fingerprint(schema)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("fingerprinting schema: %v", err))
	}

	report := &CheckReport{
		Root:        root,
		Version:     schema.Version,
		Fingerprint: fingerprint,
		Stats:       statsFor(schema),
	}
	return outputCheckSuccess(formatter, report)
}

// outputCheckSuccess outputs a clean check.
func outputCheckSuccess(formatter *OutputFormatter, report *CheckReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s v%s: %d type(s), %d enum(s), %d union(s), %d service(s), no issues\n",
		report.Root, report.Version,
		report.Stats.Types, report.Stats.Enums, report.Stats.Unions, report.Stats.Services)
	return nil
}

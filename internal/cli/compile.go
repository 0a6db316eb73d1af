package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/manifold/internal/emit"
	"github.com/roach88/manifold/internal/ir"
	"github.com/roach88/manifold/internal/registry"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output      string   // artifact output directory
	Targets     []string // requested targets, empty means all
	Annotations []string // overlay files
	Registry    string   // snapshot registry path
	Floor       int      // lowest assignable field number
}

// CompileStats holds summary statistics for one compiled schema.
type CompileStats struct {
	Types    int `json:"types"`
	Enums    int `json:"enums"`
	Unions   int `json:"unions"`
	Services int `json:"services"`
	Methods  int `json:"methods"`
}

// ArtifactInfo names one written artifact.
type ArtifactInfo struct {
	Target string `json:"target"`
	Path   string `json:"path"`
}

// SnapshotInfo describes the registry outcome of a compile.
type SnapshotInfo struct {
	ID   string `json:"id"`
	NoOp bool   `json:"noop"`
}

// CompileReport is the success payload of the compile command.
type CompileReport struct {
	Root        string         `json:"root"`
	Version     string         `json:"version"`
	Fingerprint string         `json:"fingerprint"`
	Stats       CompileStats   `json:"stats"`
	Artifacts   []ArtifactInfo `json:"artifacts"`
	Snapshot    *SnapshotInfo  `json:"snapshot,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <root.mux>",
		Short: "Compile a schema to its target artifacts",
		Long: `Compile a .mux schema to Protobuf, GraphQL and OpenAPI artifacts.

The compiler loads the root file and its imports, applies annotation
overlays, lowers everything to the shared schema form and writes one
artifact per target into the output directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", ".", "artifact output directory")
	cmd.Flags().StringSliceVar(&opts.Targets, "target", nil, "targets to emit (proto,graphql,openapi); default all")
	cmd.Flags().StringArrayVar(&opts.Annotations, "annotations", nil, "annotation overlay file, may repeat")
	cmd.Flags().StringVar(&opts.Registry, "registry", "", "snapshot registry database path")
	cmd.Flags().IntVar(&opts.Floor, "floor", 0, "lowest assignable field number")

	return cmd
}

func runCompile(opts *CompileOptions, root string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	targets, err := parseTargets(opts.Targets)
	if err != nil {
		return commandError(formatter, ErrCodeUsage, err.Error())
	}

	schema, errs := buildSchema(buildRequest{
		Root:        root,
		Annotations: opts.Annotations,
		Floor:       opts.Floor,
	})
	if len(errs) > 0 {
		return outputDiagnostics(formatter, "compilation failed", errs)
	}

	fingerprint, err := ir.Fingerprint(schema)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("fingerprinting schema: %v", err))
	}
	formatter.VerboseLog("Compiled %s v%s (fingerprint %s)", schema.RootNamespace, schema.Version, fingerprint)

	report := &CompileReport{
		Root:        root,
		Version:     schema.Version,
		Fingerprint: fingerprint,
		Stats:       statsFor(schema),
	}

	// Snapshot before emission: number drift must block the artifacts.
	if opts.Registry != "" {
		snap, err := recordSnapshot(cmd, opts.Registry, schema, root)
		if err != nil {
			if _, isDrift := registry.AsError(err); isDrift {
				return outputDiagnostics(formatter, "compilation failed", []error{err})
			}
			return commandError(formatter, ErrCodeRegistry, err.Error())
		}
		report.Snapshot = &SnapshotInfo{ID: snap.ID, NoOp: snap.NoOp}
		formatter.VerboseLog("Recorded snapshot %s (noop=%v)", snap.ID, snap.NoOp)
	}

	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return commandError(formatter, ErrCodeIO, fmt.Sprintf("creating output directory: %v", err))
	}

	results := emit.Emit(schema, opts.Output, targets)
	var emitErrs []error
	for _, res := range results {
		if res.OK() {
			report.Artifacts = append(report.Artifacts, ArtifactInfo{
				Target: string(res.Target),
				Path:   res.Path,
			})
			formatter.VerboseLog("Wrote %s artifact: %s", res.Target, res.Path)
			continue
		}
		emitErrs = append(emitErrs, res.Errs...)
	}
	if len(emitErrs) > 0 {
		return outputDiagnostics(formatter, "emission failed", emitErrs)
	}

	return outputCompileSuccess(formatter, report)
}

// recordSnapshot opens the registry, records the schema and closes it.
func recordSnapshot(cmd *cobra.Command, path string, schema *ir.Schema, root string) (*registry.Snapshot, error) {
	reg, err := registry.Open(path)
	if err != nil {
		return nil, err
	}
	defer reg.Close()
	return reg.Record(cmd.Context(), schema, root)
}

// parseTargets maps --target values onto emission targets, preserving
// emission order regardless of flag order.
func parseTargets(names []string) ([]ir.Target, error) {
	if len(names) == 0 {
		return nil, nil // emit.Emit defaults to all targets
	}
	requested := map[ir.Target]bool{}
	for _, name := range names {
		switch t := ir.Target(strings.ToLower(strings.TrimSpace(name))); t {
		case ir.TargetProto, ir.TargetGraphQL, ir.TargetOpenAPI:
			requested[t] = true
		default:
			return nil, fmt.Errorf("unknown target %q: must be one of proto, graphql, openapi", name)
		}
	}
	var targets []ir.Target
	for _, t := range ir.AllTargets {
		if requested[t] {
			targets = append(targets, t)
		}
	}
	return targets, nil
}

// statsFor counts the declarations of a compiled schema.
func statsFor(s *ir.Schema) CompileStats {
	stats := CompileStats{
		Types:    len(s.Types),
		Enums:    len(s.Enums),
		Unions:   len(s.Unions),
		Services: len(s.Services),
	}
	for _, svc := range s.Services {
		stats.Methods += len(svc.Methods)
	}
	return stats
}

// outputCompileSuccess outputs a successful compile.
func outputCompileSuccess(formatter *OutputFormatter, report *CompileReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d type(s), %d enum(s), %d union(s), %d service(s)\n\n",
		report.Stats.Types, report.Stats.Enums, report.Stats.Unions, report.Stats.Services)

	if len(report.Artifacts) > 0 {
		fmt.Fprintln(formatter.Writer, "Artifacts:")
		for _, a := range report.Artifacts {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", a.Target, a.Path)
		}
		fmt.Fprintln(formatter.Writer)
	}

	if report.Snapshot != nil {
		if report.Snapshot.NoOp {
			fmt.Fprintln(formatter.Writer, "No schema changes since the last snapshot")
		} else {
			fmt.Fprintf(formatter.Writer, "Recorded snapshot %s\n", report.Snapshot.ID)
		}
	}

	return nil
}

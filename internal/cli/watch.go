package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/manifold/internal/emit"
	"github.com/roach88/manifold/internal/watch"
)

// WatchOptions holds flags for the watch command, the compile flags
// plus nothing else.
type WatchOptions struct {
	*RootOptions
	Output      string
	Targets     []string
	Annotations []string
	Registry    string
	Floor       int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <root.mux>",
		Short: "Recompile on every source change",
		Long: `Compile once, then recompile whenever a .mux file under the root's
directory tree or an annotation overlay changes.

Failed builds keep the previous artifacts in place. Stops on SIGINT or
SIGTERM.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", ".", "artifact output directory")
	cmd.Flags().StringSliceVar(&opts.Targets, "target", nil, "targets to emit (proto,graphql,openapi); default all")
	cmd.Flags().StringArrayVar(&opts.Annotations, "annotations", nil, "annotation overlay file, may repeat")
	cmd.Flags().StringVar(&opts.Registry, "registry", "", "snapshot registry database path")
	cmd.Flags().IntVar(&opts.Floor, "floor", 0, "lowest assignable field number")

	return cmd
}

func runWatch(opts *WatchOptions, root string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	targets, err := parseTargets(opts.Targets)
	if err != nil {
		return commandError(formatter, ErrCodeUsage, err.Error())
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return commandError(formatter, ErrCodeIO, fmt.Sprintf("creating output directory: %v", err))
	}

	logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()

	build := func() []error {
		schema, errs := buildSchema(buildRequest{
			Root:        root,
			Annotations: opts.Annotations,
			Floor:       opts.Floor,
		})
		if len(errs) > 0 {
			writeDiagnostics(cmd.ErrOrStderr(), "build failed", errs)
			return errs
		}

		if opts.Registry != "" {
			if _, err := recordSnapshot(cmd, opts.Registry, schema, root); err != nil {
				writeDiagnostics(cmd.ErrOrStderr(), "build failed", []error{err})
				return []error{err}
			}
		}

		var emitErrs []error
		for _, res := range emit.Emit(schema, opts.Output, targets) {
			emitErrs = append(emitErrs, res.Errs...)
		}
		if len(emitErrs) > 0 {
			writeDiagnostics(cmd.ErrOrStderr(), "build failed", emitErrs)
		}
		return emitErrs
	}

	w, err := watch.New(root, opts.Annotations, build, logger)
	if err != nil {
		return commandError(formatter, ErrCodeIO, err.Error())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.Run(ctx)
}

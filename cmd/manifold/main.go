// Package main is the entry point for the manifold schema compiler.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/manifold/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own diagnostics on stdout; the summary
		// goes to stderr so JSON output stays parseable.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

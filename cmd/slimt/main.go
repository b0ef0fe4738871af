// Command slimt is a thin demo/bench wrapper over the engine packages
// (SPEC_FULL.md §1 "Ambient stack"): CLI argument parsing is explicitly
// kept out of pkg/* and internal/* per spec.md's Non-goals, so every
// subcommand here does nothing but wire flags to exported constructors.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slimtgo/slimt/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "slimt",
		Short: "CPU quantized translation inference engine",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logging.Level = logging.Debug
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newTranslateCmd())
	root.AddCommand(newBenchCmd())
	root.AddCommand(newServeWorkersCmd())
	return root
}

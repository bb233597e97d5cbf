// Command slangrt drives the runtime core from the command line: run a
// source file or expression, start an interactive REPL, or print
// allocator/collector statistics after a run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "slangrt",
		Short: "A small Lisp-flavored runtime core: types, GC, reader, evaluator",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newReplCmd())
	root.AddCommand(newGCStatsCmd())
	return root
}

// Command annidx exercises the HNSW and IVFFlat index engines directly:
// build an index from a vector file, insert, search, and print stats.
// It has no server or wire protocol of its own — each invocation builds
// an in-memory index from its input and operates on it once.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "annidx",
		Short:         "Build and query HNSW/IVFFlat vector indexes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newBuildCmd())
	root.AddCommand(newInsertCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatsCmd())
	return root
}

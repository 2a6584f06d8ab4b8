// Package main provides the entry point for the memfit CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/memfit/cmd/memfit/commands"
	"github.com/Sumatoshi-tech/memfit/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "memfit",
		Short: "Memfit - static memory allocation for ML accelerator workloads",
		Long: `Memfit assigns offsets to buffers with known lifetimes so that no two
live buffers overlap in time and space within a bounded address space.

Commands:
  solve     Allocate offsets for a CSV problem
  iis       Compute an irreducible infeasible subset`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewSolveCommand())
	rootCmd.AddCommand(commands.NewIISCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "memfit %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

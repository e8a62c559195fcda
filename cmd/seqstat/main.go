// Package main provides the entry point for the seqstat CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/seqstat/cmd/seqstat/commands"
	"github.com/Sumatoshi-tech/seqstat/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seqstat",
		Short: "seqstat - quality control for high-throughput sequencing data",
		Long: `seqstat analyses FASTQ/FASTA files and writes one report per file group,
with an optional aggregate report merged across the whole batch.

Commands:
  run       Analyse a batch of sequence files`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
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
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "seqstat %s\n", version.String())
		},
	}
}

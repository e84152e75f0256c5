// Package cli provides the Cobra-based command tree for journalist.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journalist",
		Short: "Extract structured records from scanned journal pages into a resumable dataset",
		Long: `journalist - concurrent extraction and resumable dataset assembly

journalist sends scanned journal pages to a generation service under a
concurrency bound and assembles the structured results into an appendable
dataset file. Interrupted runs can be continued: a new run skips documents
already present in a prior output file and appends to a seeded copy of it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newExportCmd(),
		newRunsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

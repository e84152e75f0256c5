package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nbirkbak/journalist/internal/runindex"
)

func newRunsCmd() *cobra.Command {
	var (
		outputRoot string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs under an output root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			store, err := runindex.Open(cmd.Context(), filepath.Join(outputRoot, "runs.db"), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tDISPATCHED\tSUCCEEDED\tFAILED\tDATASET")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Status, r.Dispatched, r.Succeeded, r.Failed, r.Dataset)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&outputRoot, "out", "runs", "root folder holding run directories")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")

	return cmd
}

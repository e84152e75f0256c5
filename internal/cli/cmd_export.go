package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nbirkbak/journalist/internal/export"
	"github.com/nbirkbak/journalist/internal/run"
)

func newExportCmd() *cobra.Command {
	var (
		datasetPath string
		outputRoot  string
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Convert a dataset to an XLSX workbook",
		Long: `Convert a dataset file to an XLSX workbook.
Without --dataset, the most recent run directory under --out that contains a
dataset is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			if datasetPath == "" {
				latest, err := run.LatestDataset(outputRoot)
				if err != nil {
					return err
				}
				datasetPath = latest
				logger.Info("export.using_latest", "dataset", datasetPath)
			}
			if outPath == "" {
				base := datasetPath
				if i := strings.LastIndex(base, "."); i > 0 {
					base = base[:i]
				}
				outPath = base + ".xlsx"
			}

			svc := export.NewService(logger)
			raw, err := svc.ExportXLSX(datasetPath)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, raw, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset file to export (default: latest run's dataset)")
	cmd.Flags().StringVar(&outputRoot, "out", "runs", "root folder to search for the latest run")
	cmd.Flags().StringVar(&outPath, "xlsx", "", "output XLSX path (default: next to the dataset)")

	return cmd
}

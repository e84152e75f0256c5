package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nbirkbak/journalist/internal/common"
)

func newRunCmd() *cobra.Command {
	var (
		configPath   string
		dataDir      string
		outputRoot   string
		outputName   string
		outputFormat string
		include      []string
		concurrency  int
		flushEvery   int
		continueFrom string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract all documents under the data root into a new run's dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.Run.DataDir = dataDir
			}
			if outputRoot != "" {
				cfg.Run.OutputRoot = outputRoot
			}
			if outputName != "" {
				cfg.Run.OutputName = outputName
			}
			if cmd.Flags().Changed("format") {
				cfg.Run.OutputFormat = outputFormat
			}
			if len(include) > 0 {
				cfg.Run.Include = include
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Run.Concurrency = concurrency
			}
			if cmd.Flags().Changed("flush-every") {
				cfg.Run.FlushEvery = flushEvery
			}
			if continueFrom != "" {
				cfg.Run.ContinueFrom = continueFrom
			}
			if verbose {
				cfg.Run.Verbose = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return executeRun(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&dataDir, "data", "", "root folder containing input images (required unless set in config)")
	cmd.Flags().StringVar(&outputRoot, "out", "", "root folder for run directories (default \"runs\")")
	cmd.Flags().StringVar(&outputName, "name", "", "dataset base name (default \"dataset\")")
	cmd.Flags().StringVar(&outputFormat, "format", "csv", "dataset format: csv or jsonl")
	cmd.Flags().StringSliceVar(&include, "include", nil, "glob patterns selecting inputs relative to the data root")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum number of in-flight extractions")
	cmd.Flags().IntVar(&flushEvery, "flush-every", 20, "records per dataset flush")
	cmd.Flags().StringVar(&continueFrom, "continue", "", "path to a prior dataset to continue from")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "debug logging and end-of-run coverage report")

	return cmd
}

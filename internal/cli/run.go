package cli

import (
	"context"
	"path/filepath"

	"github.com/nbirkbak/journalist/internal/common"
	"github.com/nbirkbak/journalist/internal/dataset"
	"github.com/nbirkbak/journalist/internal/engine"
	"github.com/nbirkbak/journalist/internal/extract"
	"github.com/nbirkbak/journalist/internal/extract/gemini"
	"github.com/nbirkbak/journalist/internal/ingest"
	"github.com/nbirkbak/journalist/internal/preprocess"
	"github.com/nbirkbak/journalist/internal/resume"
	"github.com/nbirkbak/journalist/internal/run"
	"github.com/nbirkbak/journalist/internal/runindex"
	"github.com/nbirkbak/journalist/internal/schema"
)

// executeRun is the top-level driver: scan inputs, create the workspace,
// plan a continuation when requested, run the engine, and record the
// outcome. It is the only layer allowed to terminate the process, which it
// does by returning a non-nil error to main.
func executeRun(ctx context.Context, cfg *common.Config) error {
	inputs, scanStats, err := ingest.Scan(cfg.Run.DataDir, cfg.Run.Include)
	if err != nil {
		return err
	}

	ws, err := run.CreateRun(cfg.Run.OutputRoot, cfg)
	if err != nil {
		return err
	}
	defer ws.Close()
	logger := ws.Logger
	logger.Info("run.inputs",
		"data_dir", cfg.Run.DataDir,
		"scanned", scanStats.Scanned,
		"matched", scanStats.Matched,
		"skipped", scanStats.Skipped,
	)

	format, err := dataset.ParseFormat(cfg.Run.OutputFormat)
	if err != nil {
		return err
	}

	refs := inputs
	var plan *resume.Plan
	if cfg.Run.ContinueFrom != "" {
		plan, err = resume.PlanContinuation(inputs, cfg.Run.ContinueFrom, cfg.Run.DataDir, format, logger)
		if err != nil {
			ws.LogError("continuation planning failed", err)
			return err
		}
		format = plan.Format
		refs = plan.Pruned
	}

	datasetPath := ws.DatasetPath(cfg.Run.OutputName, format.Ext())
	writer := dataset.NewWriter(datasetPath, format, schema.Columns(), logger)
	if plan != nil {
		if err := plan.Seed(datasetPath); err != nil {
			ws.LogError("seeding continuation dataset failed", err)
			return err
		}
		// The seeded copy already carries the prior run's header.
		if format == dataset.Table {
			writer.SetHeaderWritten(true)
		}
		logger.Info("run.seeded", "from", cfg.Run.ContinueFrom, "rows", plan.SeededRows)
	}

	index, err := runindex.Open(ctx, filepath.Join(cfg.Run.OutputRoot, "runs.db"), logger)
	if err != nil {
		return err
	}
	defer index.Close()
	runID, err := index.StartRun(ctx, ws.Dir, datasetPath, format.Ext(), len(refs))
	if err != nil {
		return err
	}

	prompt := cfg.Extraction.Prompt
	if prompt == "" {
		prompt = extract.DefaultPrompt
	}
	client := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Extraction.APIKey,
		BaseURL: cfg.Extraction.BaseURL,
		Model:   cfg.Extraction.Model,
		Prompt:  prompt,
		Timeout: cfg.Extraction.Timeout,
		Image: preprocess.Options{
			MaxDim:         cfg.Image.MaxDim,
			MarginPx:       cfg.Image.MarginPx,
			ContrastFactor: cfg.Image.ContrastFactor,
			OutputFormat:   cfg.Image.OutputFormat,
		},
	}, logger)

	scheduler, err := engine.NewScheduler(cfg.Run.Concurrency, cfg.Run.FlushEvery, engine.NewLexicalClassifier(), logger)
	if err != nil {
		return err
	}

	logger.Info("run.start", "documents", len(refs), "concurrency", cfg.Run.Concurrency, "format", format)
	stats, runErr := scheduler.Run(ctx, refs, client.Extract, writer)
	if runErr != nil {
		ws.LogError("run aborted", runErr)
		if path, werr := ws.WriteError(runErr); werr == nil {
			logger.Info("run.error_report", "path", path)
		}
		if ierr := index.FinishRun(context.WithoutCancel(ctx), runID, stats.Succeeded, stats.Failed, runindex.StatusAborted, runErr.Error()); ierr != nil {
			logger.Error("runindex update failed", "error", ierr)
		}
		return runErr
	}

	logger.Info("run.done",
		"dispatched", stats.Dispatched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"flushes", stats.Flushes,
		"dataset", datasetPath,
	)
	if err := index.FinishRun(ctx, runID, stats.Succeeded, stats.Failed, runindex.StatusCompleted, ""); err != nil {
		logger.Error("runindex update failed", "error", err)
	}

	if cfg.Run.Verbose {
		covered, missing, err := resume.Coverage(datasetPath, inputs, cfg.Run.DataDir)
		if err != nil {
			logger.Warn("run.coverage_failed", "error", err)
		} else {
			logger.Info("run.coverage", "covered", covered, "inputs", len(inputs))
			if len(missing) > 0 {
				logger.Warn("run.coverage_incomplete", "missing", len(missing))
			}
		}
	}
	return nil
}

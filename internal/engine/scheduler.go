// Package engine runs all document extractions as independently scheduled
// tasks gated by a counting semaphore, drains results as they complete, and
// streams successful records to the dataset writer in batches.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nbirkbak/journalist/internal/common"
	"github.com/nbirkbak/journalist/internal/dataset"
)

// ExtractFunc produces one record for one document reference. Callers must
// not assume bounded latency.
type ExtractFunc func(ctx context.Context, ref string) (dataset.Record, error)

// Flusher receives completed batches. Flush is treated as a fast, blocking
// local disk operation and is only ever called from the draining loop.
type Flusher interface {
	Flush(records []dataset.Record) error
}

// Stats summarizes one engine run.
type Stats struct {
	Dispatched int
	Succeeded  int
	Failed     int
	Cancelled  int
	Flushes    int
}

// Scheduler dispatches extraction tasks under a concurrency bound.
type Scheduler struct {
	concurrency int
	flushEvery  int
	classifier  Classifier
	logger      *slog.Logger
}

// NewScheduler validates the concurrency bound and flush threshold before
// any task can be dispatched.
func NewScheduler(concurrency, flushEvery int, classifier Classifier, logger *slog.Logger) (*Scheduler, error) {
	if concurrency < 1 {
		return nil, common.NewAppError("ENGINE_CONFIG", "concurrency must be >= 1", common.ErrInvalidInput)
	}
	if flushEvery < 1 {
		return nil, common.NewAppError("ENGINE_CONFIG", "flush threshold must be >= 1", common.ErrInvalidInput)
	}
	if classifier == nil {
		classifier = NewLexicalClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{concurrency: concurrency, flushEvery: flushEvery, classifier: classifier, logger: logger}, nil
}

type taskResult struct {
	ref string
	rec dataset.Record
	err error
}

// Run extracts every ref and forwards successful records to out, flushing
// whenever the in-memory batch reaches the configured threshold. Results are
// drained in completion order; each dispatched document is drained exactly
// once. On a fatal classification all outstanding tasks are cancelled, yet
// whatever succeeded before the abort is still flushed. The returned error
// is non-nil only for fatal aborts, flush failures, or external
// cancellation.
func (s *Scheduler) Run(ctx context.Context, refs []string, extract ExtractFunc, out Flusher) (Stats, error) {
	stats := Stats{Dispatched: len(refs)}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// All tasks are created up front so cancellation can reach every one of
	// them; admission to the extraction body is gated by the semaphore.
	sem := make(chan struct{}, s.concurrency)
	results := make(chan taskResult, len(refs))
	for _, ref := range refs {
		go func(ref string) {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- taskResult{ref: ref, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results <- taskResult{ref: ref, err: err}
				return
			}
			rec, err := extract(ctx, ref)
			results <- taskResult{ref: ref, rec: rec, err: err}
		}(ref)
	}

	// Single-consumer drain: the batch and header state are mutated here and
	// nowhere else, so no lock is needed.
	batch := make([]dataset.Record, 0, s.flushEvery)
	var fatal error
	for range refs {
		res := <-results
		switch {
		case res.err == nil && res.rec != nil:
			batch = append(batch, res.rec)
			stats.Succeeded++
			if len(batch) >= s.flushEvery {
				if err := out.Flush(batch); err != nil {
					if fatal == nil {
						fatal = common.WrapError(err, "flush batch")
						cancel()
					}
					continue
				}
				stats.Flushes++
				s.logger.Debug("engine.flush.ok", "records", len(batch), "flushes", stats.Flushes)
				batch = batch[:0]
			}
		case res.err != nil && errors.Is(res.err, context.Canceled):
			stats.Cancelled++
		case res.err != nil && s.classifier.IsFatal(res.err):
			stats.Failed++
			if fatal == nil {
				fatal = res.err
				cancel()
				s.logger.Error("engine.fatal", "ref", res.ref, "error", res.err)
			}
		case res.err != nil:
			stats.Failed++
			s.logger.Error("engine.document.failed", "ref", res.ref, "error", res.err)
		default:
			// Extraction swallowed its own failure and logged it already.
			stats.Failed++
		}
	}

	// Completed work is never discarded: the remaining batch is flushed even
	// after a fatal abort. The flush also settles table header state.
	if err := out.Flush(batch); err != nil {
		if fatal == nil {
			fatal = common.WrapError(err, "flush final batch")
		}
	} else if len(batch) > 0 {
		stats.Flushes++
	}

	if fatal != nil {
		return stats, fatal
	}
	if err := ctx.Err(); err != nil && stats.Cancelled > 0 {
		return stats, err
	}
	return stats, nil
}

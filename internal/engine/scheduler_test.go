package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nbirkbak/journalist/internal/dataset"
)

// captureFlusher records every batch handed to it.
type captureFlusher struct {
	mu      sync.Mutex
	batches [][]dataset.Record
}

func (c *captureFlusher) Flush(records []dataset.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := make([]dataset.Record, len(records))
	copy(batch, records)
	c.batches = append(c.batches, batch)
	return nil
}

func (c *captureFlusher) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func (c *captureFlusher) nonEmptyBatches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		if len(b) > 0 {
			n++
		}
	}
	return n
}

func refsN(n int) []string {
	refs := make([]string, n)
	for i := range refs {
		refs[i] = fmt.Sprintf("doc_%02d.png", i)
	}
	return refs
}

func okExtract(ctx context.Context, ref string) (dataset.Record, error) {
	return dataset.Record{dataset.FieldFileName: ref}, nil
}

func TestSchedulerRejectsNonPositiveConcurrency(t *testing.T) {
	_, err := NewScheduler(0, 10, nil, nil)
	require.Error(t, err)
	_, err = NewScheduler(-3, 10, nil, nil)
	require.Error(t, err)
}

func TestSchedulerEmptyInput(t *testing.T) {
	s, err := NewScheduler(2, 10, nil, nil)
	require.NoError(t, err)

	out := &captureFlusher{}
	stats, err := s.Run(context.Background(), nil, okExtract, out)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Dispatched)
	require.Equal(t, 0, stats.Succeeded)
	require.Equal(t, 0, out.total())
}

// Successes plus logged document-local failures must equal the number of
// input documents when no fatal error occurs, for any concurrency bound.
func TestSchedulerAccountsForEveryDocument(t *testing.T) {
	for _, c := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("concurrency_%d", c), func(t *testing.T) {
			s, err := NewScheduler(c, 4, nil, nil)
			require.NoError(t, err)

			extract := func(ctx context.Context, ref string) (dataset.Record, error) {
				if ref == "doc_03.png" || ref == "doc_07.png" {
					return nil, errors.New("page is unreadable")
				}
				return dataset.Record{dataset.FieldFileName: ref}, nil
			}
			out := &captureFlusher{}
			stats, err := s.Run(context.Background(), refsN(11), extract, out)
			require.NoError(t, err)
			require.Equal(t, 11, stats.Dispatched)
			require.Equal(t, 9, stats.Succeeded)
			require.Equal(t, 2, stats.Failed)
			require.Equal(t, 11, stats.Succeeded+stats.Failed)
			require.Equal(t, 9, out.total())
		})
	}
}

// With flush-every = K and M successes, the writer sees ceil(M/K) non-empty
// batches and no record is written twice.
func TestSchedulerFlushThreshold(t *testing.T) {
	const k, m = 4, 10
	s, err := NewScheduler(3, k, nil, nil)
	require.NoError(t, err)

	out := &captureFlusher{}
	stats, err := s.Run(context.Background(), refsN(m), okExtract, out)
	require.NoError(t, err)
	require.Equal(t, m, stats.Succeeded)
	require.Equal(t, m, out.total())
	require.Equal(t, 3, out.nonEmptyBatches()) // ceil(10/4)

	seen := map[string]int{}
	for _, b := range out.batches {
		for _, rec := range b {
			seen[rec.FileName()]++
		}
	}
	for ref, n := range seen {
		require.Equal(t, 1, n, "record %s drained more than once", ref)
	}
}

func TestSchedulerConcurrencyBoundHolds(t *testing.T) {
	const c = 3
	s, err := NewScheduler(c, 100, nil, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	extract := func(ctx context.Context, ref string) (dataset.Record, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return dataset.Record{dataset.FieldFileName: ref}, nil
	}

	_, err = s.Run(context.Background(), refsN(20), extract, &captureFlusher{})
	require.NoError(t, err)
	require.LessOrEqual(t, peak, c)
}

// A fatal classification cancels outstanding work but never discards what
// already succeeded.
func TestSchedulerFatalAbort(t *testing.T) {
	s, err := NewScheduler(1, 100, nil, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	extract := func(ctx context.Context, ref string) (dataset.Record, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 3 {
			return nil, errors.New("429 quota exceeded for project")
		}
		return dataset.Record{dataset.FieldFileName: ref}, nil
	}

	f := &captureFlusher{}
	stats, err := s.Run(context.Background(), refsN(10), extract, f)
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota")
	// Everything that completed before the abort is flushed.
	require.Equal(t, stats.Succeeded, f.total())
	require.GreaterOrEqual(t, stats.Succeeded, 2)
	require.Equal(t, 10, stats.Succeeded+stats.Failed+stats.Cancelled)
}

func TestSchedulerSingleWorkerMixedOutcome(t *testing.T) {
	s, err := NewScheduler(1, 10, nil, nil)
	require.NoError(t, err)

	extract := func(ctx context.Context, ref string) (dataset.Record, error) {
		if ref == "b.png" {
			return nil, errors.New("decode image: unexpected EOF")
		}
		return dataset.Record{"name": "X", dataset.FieldFileName: ref}, nil
	}
	f := &captureFlusher{}
	stats, err := s.Run(context.Background(), []string{"a.png", "b.png"}, extract, f)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Succeeded)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, f.total())
	require.Equal(t, "a.png", f.batches[len(f.batches)-1][0].FileName())
}

func TestSchedulerFlushErrorAborts(t *testing.T) {
	s, err := NewScheduler(2, 1, nil, nil)
	require.NoError(t, err)

	stats, err := s.Run(context.Background(), refsN(6), okExtract, failingFlusher{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Equal(t, 0, stats.Flushes)
}

type failingFlusher struct{}

func (failingFlusher) Flush([]dataset.Record) error { return errors.New("disk full") }

func TestSchedulerExternalCancellation(t *testing.T) {
	s, err := NewScheduler(1, 100, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	extract := func(ctx context.Context, ref string) (dataset.Record, error) {
		cancel()
		return nil, ctx.Err()
	}
	_, err = s.Run(ctx, refsN(5), extract, &captureFlusher{})
	require.ErrorIs(t, err, context.Canceled)
}

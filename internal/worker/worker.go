// Package worker implements the parallel worker pool that consumes corpus
// records from a bounded queue, tokenises and indexes them in memory, and
// flushes partial indexes to disk when a worker nears its share of the
// global memory budget.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	apperrors "github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/errors"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/resilience"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/corpus"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/docindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/memindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/partialindex"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/stats"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/tokenizer"
)

// FlushObserver is notified after every flush and on final shutdown, used to
// wire in Prometheus gauges without coupling this package to pkg/metrics.
type FlushObserver func(workerID int, memoryBytes int64, ok bool, breakerState resilience.State)

// Worker owns one in-memory indexer, one partial-index writer, and one
// document-index shard writer. It is driven by exactly one goroutine and
// consumes from a shared, bounded queue of corpus.Record.
type Worker struct {
	id          int
	budgetBytes int64
	idx         *memindex.Index
	writer      *partialindex.Writer
	docShard    *docindex.ShardWriter
	breaker     *resilience.CircuitBreaker
	logger      *slog.Logger
	observer    FlushObserver

	Stats stats.Worker
}

// New creates a Worker that writes its partial indexes and document-index
// shard into dataDir.
func New(id int, budgetBytes int64, dataDir string, observer FlushObserver) (*Worker, error) {
	docShardPath := filepath.Join(dataDir, fmt.Sprintf("worker-%d-docs.jsonl", id))
	docShard, err := docindex.NewShardWriter(docShardPath)
	if err != nil {
		return nil, fmt.Errorf("creating worker %d document shard: %w", id, err)
	}
	return &Worker{
		id:          id,
		budgetBytes: budgetBytes,
		idx:         memindex.New(),
		writer:      partialindex.NewWriter(dataDir, id),
		docShard:    docShard,
		breaker:     resilience.NewCircuitBreaker(fmt.Sprintf("worker-%d-flush", id), resilience.CircuitBreakerConfig{}),
		logger:      slog.Default().With("component", "worker", "worker_id", id),
		observer:    observer,
	}, nil
}

// Run consumes records from in until the channel is closed (the
// channel-close is this pipeline's sentinel: every worker ranging over the
// same closed channel observes its end deterministically, the Go-idiomatic
// equivalent of pushing one sentinel marker per consumer). It returns the
// list of partial-index file paths it produced, or an error on
// unrecoverable I/O failure. If ctx is cancelled first, it flushes what it
// holds, closes its document shard, and returns ctx's error.
func (w *Worker) Run(ctx context.Context, in <-chan corpus.Record) ([]string, error) {
	var partialPaths []string
	for {
		select {
		case rec, ok := <-in:
			if !ok {
				path, err := w.finalFlush()
				if err != nil {
					return partialPaths, err
				}
				if path != "" {
					partialPaths = append(partialPaths, path)
				}
				if err := w.docShard.Close(); err != nil {
					return partialPaths, fmt.Errorf("closing worker %d document shard: %w", w.id, err)
				}
				return partialPaths, nil
			}
			if err := w.index(rec); err != nil {
				return partialPaths, err
			}
			if w.idx.ShouldFlush(w.budgetBytes) {
				path, err := w.flush()
				if err != nil {
					return partialPaths, err
				}
				partialPaths = append(partialPaths, path)
			}
		case <-ctx.Done():
			path, err := w.finalFlush()
			if path != "" {
				partialPaths = append(partialPaths, path)
			}
			if closeErr := w.docShard.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("closing worker %d document shard: %w", w.id, closeErr)
			}
			if err != nil {
				return partialPaths, err
			}
			return partialPaths, ctx.Err()
		}
	}
}

// index tokenises one record and feeds it to the in-memory indexer and the
// document-index shard.
func (w *Worker) index(rec corpus.Record) error {
	terms := tokenizer.Tokenize(rec.Text)
	strTerms := make([]string, len(terms))
	for i, t := range terms {
		strTerms[i] = string(t)
	}
	w.idx.AddDocument(rec.ID, strTerms)
	if err := w.docShard.Write(docindex.Meta{
		DocID:  rec.ID,
		Tokens: len(terms),
		Chars:  len(rec.Text),
	}); err != nil {
		return fmt.Errorf("worker %d writing document metadata for %s: %w", w.id, rec.ID, err)
	}
	w.Stats.DocsSeen++
	w.Stats.TokensSeen += int64(len(terms))
	return nil
}

// flush drains the in-memory index and writes it as a new partial-index
// file, retrying transient I/O failures and recording the outcome in the
// worker's circuit breaker. A flush that still fails after its retries
// returns an ErrIO error, which ends the worker's Run.
func (w *Worker) flush() (string, error) {
	before := w.idx.MemoryEstimate()
	records := w.idx.DrainSorted()
	var path string
	err := w.breaker.Execute(func() error {
		return resilience.Retry(context.Background(), fmt.Sprintf("worker-%d-flush", w.id), resilience.RetryConfig{}, func() error {
			p, writeErr := w.writer.Write(records)
			if writeErr != nil {
				return writeErr
			}
			path = p
			return nil
		})
	})
	if w.observer != nil {
		w.observer(w.id, before, err == nil, w.breaker.GetState())
	}
	if err != nil {
		w.logger.Error("partial index flush failed", "error", err)
		return "", fmt.Errorf("%w: worker %d: %v", apperrors.ErrIO, w.id, err)
	}
	if w.idx.MemoryEstimate() != 0 {
		return "", fmt.Errorf("%w: worker %d: index not empty after drain", apperrors.ErrBudgetOverflow, w.id)
	}
	w.logger.Info("partial index flushed", "path", path, "pre_flush_bytes", before)
	return path, nil
}

// finalFlush flushes any remaining documents at shutdown, even if the
// budget threshold was never reached.
func (w *Worker) finalFlush() (string, error) {
	if w.idx.MemoryEstimate() == 0 {
		return "", nil
	}
	start := time.Now()
	path, err := w.flush()
	if err != nil {
		return "", err
	}
	w.logger.Info("final flush complete", "duration", time.Since(start))
	return path, nil
}

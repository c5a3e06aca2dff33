package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/corpus"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/stats"
)

// PoolResult is the combined output of every worker once the pool has
// drained the corpus.
type PoolResult struct {
	PartialIndexPaths   []string
	DocumentShardPaths  []string
	WorkerStats         []stats.Worker
}

// Pool fans a single corpus.Source out to N workers over a bounded,
// buffered channel. The reader goroutine closes the channel once the
// source is exhausted, which every worker observes as its shutdown signal.
type Pool struct {
	workers []*Worker
	logger  *slog.Logger
}

// NewPool creates numWorkers Workers, each budgeted memoryLimitBytes/numWorkers
// and writing into dataDir.
func NewPool(numWorkers int, memoryLimitBytes int64, dataDir string, observer FlushObserver) (*Pool, error) {
	if numWorkers <= 0 {
		return nil, fmt.Errorf("numWorkers must be positive, got %d", numWorkers)
	}
	perWorkerBudget := memoryLimitBytes / int64(numWorkers)
	workers := make([]*Worker, numWorkers)
	for i := 0; i < numWorkers; i++ {
		w, err := New(i, perWorkerBudget, dataDir, observer)
		if err != nil {
			return nil, err
		}
		workers[i] = w
	}
	return &Pool{
		workers: workers,
		logger:  slog.Default().With("component", "worker-pool", "num_workers", numWorkers),
	}, nil
}

// Run reads every record from src, distributes it over a shared queue to
// all workers, and blocks until the source is drained and every worker has
// flushed its remainder. queueDepth bounds how far the reader can run
// ahead of the slowest worker. A worker error cancels the run: the reader
// stops, the other workers flush and exit, and that error is returned.
func (p *Pool) Run(ctx context.Context, src corpus.Source, queueDepth int) (PoolResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	queue := make(chan corpus.Record, queueDepth)

	var wg sync.WaitGroup
	results := make([][]string, len(p.workers))
	errs := make([]error, len(p.workers))
	for i, w := range p.workers {
		wg.Add(1)
		go func(i int, w *Worker) {
			defer wg.Done()
			paths, err := w.Run(runCtx, queue)
			results[i] = paths
			errs[i] = err
			if err != nil {
				cancel()
			}
		}(i, w)
	}

	readErr := p.readInto(runCtx, src, queue)
	wg.Wait()

	var result PoolResult
	docShardPaths := make([]string, len(p.workers))
	for i, w := range p.workers {
		result.WorkerStats = append(result.WorkerStats, w.Stats)
		result.PartialIndexPaths = append(result.PartialIndexPaths, results[i]...)
		docShardPaths[i] = w.docShard.Path()
		if errs[i] != nil && (readErr == nil || (errors.Is(readErr, context.Canceled) && !errors.Is(errs[i], context.Canceled))) {
			readErr = errs[i]
		}
	}
	result.DocumentShardPaths = docShardPaths
	if readErr != nil {
		return result, readErr
	}
	p.logger.Info("worker pool finished",
		"partial_files", len(result.PartialIndexPaths),
		"docs_seen", sumDocs(result.WorkerStats),
	)
	return result, nil
}

// readInto is the single Document Reader goroutine: it pulls records from
// src and pushes them onto queue until the source is exhausted, then closes
// queue so every worker observes a clean shutdown.
func (p *Pool) readInto(ctx context.Context, src corpus.Source, queue chan<- corpus.Record) error {
	defer close(queue)
	for {
		rec, ok, err := src.Next(ctx)
		if err != nil {
			return fmt.Errorf("reading corpus: %w", err)
		}
		if !ok {
			return nil
		}
		select {
		case queue <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sumDocs(ws []stats.Worker) int64 {
	var n int64
	for _, w := range ws {
		n += w.DocsSeen
	}
	return n
}

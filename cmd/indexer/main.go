// Command indexer builds an inverted index and document index from a
// line-delimited JSON corpus.
//
// Documents are read once by a single reader goroutine and fanned out to a
// pool of worker goroutines, each maintaining its own memory-bounded
// in-memory index and flushing partial index files to disk. Once the
// corpus is exhausted, an external k-way merge consolidates every worker's
// partial files into the final index, lexicon, and document index.
//
// Usage:
//
//	go run ./cmd/indexer -m 512 -c corpus.jsonl -i ./out -w 4
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/analytics"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/corpus"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/merger"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/runstore"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/stats"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/worker"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/config"
	apperrors "github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/errors"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/kafka"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/logger"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/metrics"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/postgres"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/resilience"
)

func main() {
	memoryLimitMB := flag.Int("m", 0, "memory budget in MB (required)")
	flag.IntVar(memoryLimitMB, "memory_limit_mb", 0, "memory budget in MB (required)")
	corpusPath := flag.String("c", "", "path to corpus .jsonl (required unless --kafka_topic)")
	flag.StringVar(corpusPath, "corpus_path", "", "path to corpus .jsonl (required unless --kafka_topic)")
	indexDir := flag.String("i", "", "output directory (required)")
	flag.StringVar(indexDir, "index_dir", "", "output directory (required)")
	workers := flag.Int("w", runtime.NumCPU(), "number of indexing workers")
	flag.IntVar(workers, "workers", runtime.NumCPU(), "number of indexing workers")
	batchSize := flag.Int("batch_size", 64, "channel queue depth, in documents")
	kafkaTopic := flag.String("kafka_topic", "", "stream the corpus from this Kafka topic instead of a file")
	configPath := flag.String("config", "", "path to a YAML config overlay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *memoryLimitMB <= 0 {
		slog.Error("memory_limit_mb is required and must be positive", "error", apperrors.ErrConfig)
		os.Exit(1)
	}
	if *corpusPath == "" && *kafkaTopic == "" {
		slog.Error("one of corpus_path or kafka_topic is required", "error", apperrors.ErrConfig)
		os.Exit(1)
	}
	if *indexDir == "" {
		slog.Error("index_dir is required", "error", apperrors.ErrConfig)
		os.Exit(1)
	}
	if err := os.MkdirAll(*indexDir, 0o755); err != nil {
		slog.Error("failed to create index_dir", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsShutdown(shutdownCtx)
		}()
		slog.Info("prometheus metrics enabled", "port", cfg.Metrics.Port)
	}

	var runStore *runstore.Store
	var runID int64
	if db, err := postgres.New(cfg.Postgres); err != nil {
		slog.Warn("postgres not available, run history will not be persisted", "error", err)
	} else {
		defer db.Close()
		runStore = runstore.New(db)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := runStore.EnsureSchema(ctx); err != nil {
			slog.Warn("failed to ensure index_runs schema", "error", err)
			runStore = nil
		} else if runID, err = runStore.Start(ctx, *corpusPath, *memoryLimitMB, *workers); err != nil {
			slog.Warn("failed to record index run start", "error", err)
			runStore = nil
		}
		cancel()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src corpus.Source
	if *kafkaTopic != "" {
		src = corpus.NewKafkaSource(cfg.Kafka, *kafkaTopic)
		slog.Info("reading corpus from kafka", "topic", *kafkaTopic)
	} else {
		src, err = corpus.NewFileSource(*corpusPath)
		if err != nil {
			slog.Error("failed to open corpus", "error", err)
			os.Exit(1)
		}
		slog.Info("reading corpus from file", "path", *corpusPath)
	}
	if closer, ok := src.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	start := time.Now()
	memoryLimitBytes := int64(*memoryLimitMB) * 1024 * 1024

	var observer worker.FlushObserver
	if m != nil {
		observer = func(workerID int, memoryBytes int64, ok bool, breakerState resilience.State) {
			status := "ok"
			if !ok {
				status = "error"
			}
			m.WorkerFlushesTotal.WithLabelValues(fmt.Sprint(workerID), status).Inc()
			m.WorkerMemoryBytes.WithLabelValues(fmt.Sprint(workerID)).Set(float64(memoryBytes))
			m.CircuitBreakerState.WithLabelValues(fmt.Sprintf("worker-%d-flush", workerID)).Set(float64(breakerState))
		}
	}

	pool, err := worker.NewPool(*workers, memoryLimitBytes, *indexDir, observer)
	if err != nil {
		slog.Error("failed to create worker pool", "error", err)
		os.Exit(1)
	}

	result, err := pool.Run(ctx, src, *batchSize)
	if err != nil {
		slog.Error("indexing failed", "error", err)
		if runStore != nil {
			runStore.Fail(context.Background(), runID, err)
		}
		os.Exit(1)
	}
	slog.Info("indexing complete", "partial_files", len(result.PartialIndexPaths))

	mg := merger.New()
	outputs := merger.OutputPaths(*indexDir)
	mergeStart := time.Now()
	numTerms, err := mg.Merge(result.PartialIndexPaths, result.DocumentShardPaths, outputs)
	if m != nil {
		m.MergeDuration.Observe(time.Since(mergeStart).Seconds())
	}
	if err != nil {
		slog.Error("merge failed", "error", err)
		if runStore != nil {
			runStore.Fail(context.Background(), runID, err)
		}
		os.Exit(1)
	}
	if m != nil {
		m.MergeTermsTotal.Add(float64(numTerms))
	}

	global := stats.Merge(result.WorkerStats, src.Malformed())
	statsPath := *indexDir + "/stats.json"
	if err := stats.WriteJSON(statsPath, global); err != nil {
		slog.Error("failed to write stats", "error", err)
		os.Exit(1)
	}
	if m != nil {
		m.DocsIndexedTotal.Add(float64(global.NumDocuments))
		m.MalformedRecordsTotal.Add(float64(global.MalformedRecords))
	}

	duration := time.Since(start)
	if runStore != nil {
		if err := runStore.Complete(context.Background(), runID, global, numTerms); err != nil {
			slog.Warn("failed to record index run completion", "error", err)
		}
	}
	if cfg.Kafka.Topics.QueryEvents != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		emitter := analytics.NewEmitter(producer)
		emitter.EmitIndexRun(context.Background(), analytics.IndexRunEvent{
			CorpusPath:       *corpusPath,
			NumDocuments:     global.NumDocuments,
			NumTerms:         numTerms,
			MalformedRecords: global.MalformedRecords,
			DurationMs:       duration.Milliseconds(),
		})
		producer.Close()
	}

	slog.Info("index build finished",
		"documents", global.NumDocuments,
		"terms", numTerms,
		"malformed", global.MalformedRecords,
		"duration", duration,
	)
}

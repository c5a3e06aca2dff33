// Command processor answers ranked queries against a built index, either
// as a one-shot batch over a file of queries or as a resident HTTP query
// service (--serve).
//
// Usage:
//
//	go run ./cmd/processor -i ./out -q queries.txt -r bm25 -k 10
//	go run ./cmd/processor -i ./out -r bm25 --serve
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/analytics"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/cache"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/processor"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/queryservice"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/scorer"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/config"
	apperrors "github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/errors"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/health"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/kafka"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/logger"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/metrics"
	pkgredis "github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/redis"
)

func main() {
	indexDir := flag.String("i", "", "index directory produced by cmd/indexer, or the final index file inside it (required)")
	flag.StringVar(indexDir, "index_file_path", "", "index directory produced by cmd/indexer, or the final index file inside it (required)")
	queriesPath := flag.String("q", "", "path to a file of queries, one per line (required unless --serve)")
	flag.StringVar(queriesPath, "queries_file_path", "", "path to a file of queries, one per line (required unless --serve)")
	rankerFlag := flag.String("r", "", "ranker: bm25 or tfidf (required)")
	flag.StringVar(rankerFlag, "ranker", "", "ranker: bm25 or tfidf (required)")
	topK := flag.Int("k", 10, "number of results per query")
	flag.IntVar(topK, "top_k", 10, "number of results per query")
	serve := flag.Bool("serve", false, "start the resident HTTP query service instead of batch mode")
	configPath := flag.String("config", "", "path to a YAML config overlay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *indexDir == "" {
		slog.Error("index_dir (-i) is required", "error", apperrors.ErrConfig)
		os.Exit(1)
	}
	if !*serve && *queriesPath == "" {
		slog.Error("queries_file_path (-q) is required unless --serve", "error", apperrors.ErrConfig)
		os.Exit(1)
	}
	ranker := scorer.Ranker(*rankerFlag)
	if ranker != scorer.BM25 && ranker != scorer.TFIDF {
		slog.Error("ranker must be one of bm25, tfidf", "ranker", *rankerFlag, "error", apperrors.ErrConfig)
		os.Exit(1)
	}

	indexPath := filepath.Join(*indexDir, "final_inverted_index.jsonl")
	if fi, statErr := os.Stat(*indexDir); statErr == nil && !fi.IsDir() {
		indexPath = *indexDir
		*indexDir = filepath.Dir(*indexDir)
	}
	proc, err := processor.Load(
		indexPath,
		filepath.Join(*indexDir, "lexicon.jsonl"),
		filepath.Join(*indexDir, "document_index.jsonl"),
		filepath.Join(*indexDir, "stats.json"),
	)
	if err != nil {
		slog.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	defer proc.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsShutdown(shutdownCtx)
		}()
	}

	var queryCache *cache.QueryCache
	if redisClient, err := pkgredis.NewClient(cfg.Redis); err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr)
	}

	var emitter *analytics.Emitter
	if cfg.Kafka.Topics.QueryEvents != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		emitter = analytics.NewEmitter(producer)
	}

	if *serve {
		runServer(cfg, proc, queryCache, emitter, m, *topK)
		return
	}
	runBatch(proc, queryCache, emitter, m, ranker, *topK, *queriesPath)
}

// runBatch scores every query in queriesPath once and writes ranked
// results to stdout as JSON lines.
func runBatch(proc *processor.Processor, qc *cache.QueryCache, emitter *analytics.Emitter, m *metrics.Metrics, ranker scorer.Ranker, topK int, queriesPath string) {
	f, err := os.Open(queriesPath)
	if err != nil {
		slog.Error("failed to open queries file", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		query := sc.Text()
		if query == "" {
			continue
		}
		start := time.Now()
		compute := func() (*processor.Result, error) {
			return proc.Query(query, ranker, topK)
		}
		var result *processor.Result
		var cacheHit bool
		if qc != nil {
			result, cacheHit, err = qc.GetOrCompute(ctx, query, ranker, topK, compute)
		} else {
			result, err = compute()
		}
		duration := time.Since(start)
		if err != nil {
			slog.Error("query failed", "query", query, "error", err)
			if m != nil {
				m.QueriesTotal.WithLabelValues(string(ranker), "error").Inc()
			}
			continue
		}
		if m != nil {
			resultType := "hit"
			switch {
			case result.TotalHits == 0:
				resultType = "zero_result"
			case qc != nil && !cacheHit:
				resultType = "miss"
			}
			m.QueriesTotal.WithLabelValues(string(ranker), resultType).Inc()
			cacheStatus := "uncached"
			if qc != nil {
				if cacheHit {
					cacheStatus = "hit"
					m.CacheHitsTotal.Inc()
				} else {
					cacheStatus = "miss"
					m.CacheMissesTotal.Inc()
				}
			}
			m.QueryLatency.WithLabelValues(cacheStatus).Observe(duration.Seconds())
			m.QueryResultsCount.Observe(float64(len(result.Results)))
		}
		emitter.EmitSearch(ctx, analytics.SearchEvent{
			Query:     query,
			Ranker:    string(ranker),
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: duration.Milliseconds(),
			CacheHit:  cacheHit,
		})
		line, err := resultLine(result)
		if err != nil {
			slog.Error("failed to encode result", "query", query, "error", err)
			continue
		}
		out.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		slog.Error("error reading queries file", "error", err)
		os.Exit(1)
	}
}

// runServer starts the resident HTTP query service and blocks until a
// shutdown signal arrives.
func runServer(cfg *config.Config, proc *processor.Processor, qc *cache.QueryCache, emitter *analytics.Emitter, m *metrics.Metrics, defaultK int) {
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if qc != nil {
		checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	h := queryservice.NewHandler(proc, qc, emitter, m, defaultK)
	server := queryservice.NewServer(cfg.QueryService, h, checker, m, time.Minute)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		if err := server.Shutdown(context.Background(), cfg.QueryService.ShutdownTimeout); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil {
		slog.Error("query service error", "error", err)
		os.Exit(1)
	}
	slog.Info("query service stopped")
}

func resultLine(result *processor.Result) (string, error) {
	enc, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(enc) + "\n", nil
}

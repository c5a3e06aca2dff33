// Package analytics publishes query-processor activity to Kafka for
// downstream analysis. It emits events only; aggregation and dashboarding
// are out of scope for this module.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/kafka"
)

// EventType identifies the kind of analytics event.
type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
	EventIndexRun   EventType = "index_run"
)

// SearchEvent is emitted after each query and records the query text,
// result count, latency, ranker, and cache status.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Ranker    string    `json:"ranker"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexRunEvent is emitted once an index build completes, summarising the
// corpus that was processed.
type IndexRunEvent struct {
	Type             EventType `json:"type"`
	CorpusPath       string    `json:"corpus_path"`
	NumDocuments     int64     `json:"num_documents"`
	NumTerms         int       `json:"num_terms"`
	MalformedRecords int64     `json:"malformed_records"`
	DurationMs       int64     `json:"duration_ms"`
	Timestamp        time.Time `json:"timestamp"`
}

// Emitter publishes analytics events to a Kafka topic, logging and
// swallowing publish failures so analytics never blocks the query or
// indexing paths.
type Emitter struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

// NewEmitter wraps a Kafka producer for analytics events.
func NewEmitter(producer *kafka.Producer) *Emitter {
	return &Emitter{producer: producer, logger: slog.Default().With("component", "analytics-emitter")}
}

// EmitSearch publishes a SearchEvent, keyed by query so repeated queries
// land on the same partition.
func (e *Emitter) EmitSearch(ctx context.Context, ev SearchEvent) {
	if e == nil || e.producer == nil {
		return
	}
	if ev.TotalHits == 0 {
		ev.Type = EventZeroResult
	} else if ev.Type == "" {
		ev.Type = EventSearch
	}
	if err := e.producer.Publish(ctx, kafka.Event{Key: ev.Query, Value: ev}); err != nil {
		e.logger.Warn("failed to publish search event", "query", ev.Query, "error", err)
	}
}

// EmitIndexRun publishes an IndexRunEvent, keyed by corpus path.
func (e *Emitter) EmitIndexRun(ctx context.Context, ev IndexRunEvent) {
	if e == nil || e.producer == nil {
		return
	}
	ev.Type = EventIndexRun
	if err := e.producer.Publish(ctx, kafka.Event{Key: ev.CorpusPath, Value: ev}); err != nil {
		e.logger.Warn("failed to publish index run event", "corpus_path", ev.CorpusPath, "error", err)
	}
}

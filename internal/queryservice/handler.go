// Package queryservice exposes the Processor over HTTP for the resident
// --serve mode, wrapping the search, cache, health, and metrics endpoints in
// a request ID → CORS → rate limit → metrics middleware chain.
package queryservice

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/analytics"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/cache"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/processor"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/internal/scorer"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/metrics"
)

// Handler implements the query service's HTTP endpoints.
type Handler struct {
	proc     *processor.Processor
	cache    *cache.QueryCache
	emitter  *analytics.Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	defaultK int
}

// NewHandler creates a Handler. cache, emitter, and m may be nil, in which
// case caching, analytics emission, and Prometheus recording are skipped.
func NewHandler(proc *processor.Processor, qc *cache.QueryCache, emitter *analytics.Emitter, m *metrics.Metrics, defaultK int) *Handler {
	return &Handler{
		proc:     proc,
		cache:    qc,
		emitter:  emitter,
		metrics:  m,
		logger:   slog.Default().With("component", "query-service-handler"),
		defaultK: defaultK,
	}
}

// Search handles GET /api/v1/search?q=...&ranker=...&k=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	ranker := scorer.Ranker(r.URL.Query().Get("ranker"))
	if ranker == "" {
		ranker = scorer.BM25
	}
	k := h.defaultK
	if v := r.URL.Query().Get("k"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			k = parsed
		}
	}

	var result *processor.Result
	var cacheHit bool
	var err error
	compute := func() (*processor.Result, error) {
		return h.proc.Query(q, ranker, k)
	}
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(r.Context(), q, ranker, k, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		h.logger.Error("query failed", "query", q, "error", err)
		h.recordQueryMetrics(ranker, "error", cacheHit, 0, time.Since(start))
		h.writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	resultType := "hit"
	switch {
	case result.TotalHits == 0:
		resultType = "zero_result"
	case h.cache != nil && !cacheHit:
		resultType = "miss"
	}
	h.recordQueryMetrics(ranker, resultType, cacheHit, len(result.Results), time.Since(start))

	h.emitter.EmitSearch(r.Context(), analytics.SearchEvent{
		Query:     q,
		Ranker:    string(ranker),
		TotalHits: result.TotalHits,
		Returned:  len(result.Results),
		LatencyMs: time.Since(start).Milliseconds(),
		CacheHit:  cacheHit,
	})

	h.writeJSON(w, http.StatusOK, result)
}

// recordQueryMetrics updates Prometheus counters and histograms for the
// completed query.
func (h *Handler) recordQueryMetrics(ranker scorer.Ranker, resultType string, cacheHit bool, resultCount int, duration time.Duration) {
	if h.metrics == nil {
		return
	}

	h.metrics.QueriesTotal.WithLabelValues(string(ranker), resultType).Inc()

	cacheStatus := "uncached"
	if h.cache != nil {
		if cacheHit {
			cacheStatus = "hit"
			h.metrics.CacheHitsTotal.Inc()
		} else {
			cacheStatus = "miss"
			h.metrics.CacheMissesTotal.Inc()
		}
	}

	h.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(duration.Seconds())
	h.metrics.QueryResultsCount.Observe(float64(resultCount))
}

// CacheStats handles GET /api/v1/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	hits, misses := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"enabled": true,
		"hits":    hits,
		"misses":  misses,
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "cache disabled"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidate failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

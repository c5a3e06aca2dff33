package queryservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/config"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/health"
	"github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/metrics"
	pkgmw "github.com/GabrielTeixeiraC/Inverted-Index-and-Query-Processor/pkg/middleware"
)

// Server is the resident HTTP query service started by `cmd/processor --serve`.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the query service's route table and middleware chain
// (RequestID → CORS → RateLimit → Metrics) and wraps it in an http.Server.
//
// Route table:
//
//	GET  /api/v1/search            → Handler.Search
//	GET  /api/v1/cache/stats       → Handler.CacheStats
//	POST /api/v1/cache/invalidate  → Handler.CacheInvalidate
//	GET  /health/live              → health.Checker.LiveHandler
//	GET  /health/ready             → health.Checker.ReadyHandler
//	GET  /metrics                  → Prometheus handler, when m is non-nil
func NewServer(cfg config.QueryServiceConfig, h *Handler, checker *health.Checker, m *metrics.Metrics, limiterWindow time.Duration) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if m != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	limiter := newTokenBucketLimiter(limiterWindow)

	var chain http.Handler = mux
	if m != nil {
		chain = pkgmw.Metrics(m)(chain)
	}
	chain = rateLimit(limiter, cfg.RateLimitPerMin)(chain)
	chain = pkgmw.CORS(pkgmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      chain,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: slog.Default().With("component", "query-service"),
	}
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("query service starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("query service: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server within the given timeout.
func (s *Server) Shutdown(ctx context.Context, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

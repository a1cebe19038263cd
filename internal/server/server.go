package server

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/journal"
)

// Server provides the HTTP interface over the journal service and reporter.
type Server struct {
	server   *http.Server
	logger   *zap.Logger
	service  *journal.Service
	reporter *journal.Reporter
	limiter  *rate.Limiter
}

// NewServer wires the routes and the request rate limiter.
func NewServer(cfg config.Server, logger *zap.Logger, service *journal.Service, reporter *journal.Reporter) *Server {
	s := &Server{
		logger:   logger.Named("api-server"),
		service:  service,
		reporter: reporter,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("GET /api/trades", s.listTradesHandler)
	mux.HandleFunc("POST /api/trades", s.createTradeHandler)
	mux.HandleFunc("GET /api/trades/{id}", s.getTradeHandler)
	mux.HandleFunc("PATCH /api/trades/{id}", s.updateTradeHandler)
	mux.HandleFunc("DELETE /api/trades/{id}", s.deleteTradeHandler)
	mux.HandleFunc("POST /api/trades/import", s.importTradesHandler)
	mux.HandleFunc("POST /api/trades/recalculate", s.recalculateHandler)

	mux.HandleFunc("GET /api/preferences", s.getPreferencesHandler)
	mux.HandleFunc("PUT /api/preferences", s.savePreferencesHandler)

	mux.HandleFunc("GET /api/analytics/kpis", s.kpisHandler)
	mux.HandleFunc("GET /api/analytics/distributions", s.distributionsHandler)
	mux.HandleFunc("GET /api/analytics/insights", s.insightsHandler)
	mux.HandleFunc("GET /api/analytics/patterns", s.patternsHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.rateLimit(mux),
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

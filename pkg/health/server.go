// Package health serves liveness, readiness, chain status and metrics on a separate port.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dualexec/executor/pkg/circuitbreaker"
	"github.com/dualexec/executor/pkg/logger"
)

// ChainStatus reports the state of one chain connection
type ChainStatus interface {
	Chain() string
	Connected() bool
	Status(ctx context.Context) map[string]interface{}
}

// Server represents a health check HTTP server
type Server struct {
	port            string
	chains          []ChainStatus
	circuitBreakers map[string]*circuitbreaker.CircuitBreaker
	metricsAPIKey   string
	logger          logger.Logger
	server          *http.Server
}

// NewServer creates a new health check server
func NewServer(
	port string,
	metricsAPIKey string,
	chains []ChainStatus,
	breakers []*circuitbreaker.CircuitBreaker,
	log logger.Logger,
) *Server {
	byChain := make(map[string]*circuitbreaker.CircuitBreaker, len(breakers))
	for _, cb := range breakers {
		byChain[cb.Chain()] = cb
	}

	s := &Server{
		port:            port,
		chains:          chains,
		circuitBreakers: byChain,
		metricsAPIKey:   metricsAPIKey,
		logger:          log,
	}
	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		for _, chain := range s.chains {
			if !chain.Connected() {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("Chain %s client not connected", chain.Chain())))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/circuit/reset", s.handleCircuitReset)

	// Expose Prometheus metrics with API key authentication
	mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]interface{}, len(s.chains))

	for _, chain := range s.chains {
		chainStatus := chain.Status(r.Context())

		circuitStatus := "closed"
		if cb, ok := s.circuitBreakers[chain.Chain()]; ok && cb.IsOpen() {
			circuitStatus = "open"
			chainStatus["tripped_at"] = cb.GetTripTime().UTC().Format(time.RFC3339)
		}
		chainStatus["circuit"] = circuitStatus

		status[chain.Chain()] = chainStatus
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status JSON: %v", err)
	}
}

func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	chain := r.URL.Query().Get("chain")
	if chain == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Missing chain parameter"))
		return
	}

	cb, ok := s.circuitBreakers[chain]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(fmt.Sprintf("No circuit breaker for chain %s", chain)))
		return
	}

	cb.Reset()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fmt.Sprintf("Circuit breaker for chain %s reset", chain)))
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting health and metrics server on port %s", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

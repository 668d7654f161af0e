// Package api serves aggregated prices over HTTP in the format the feeder's
// price aggregator consumes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacksteroo/oracle-feeder/pkg/server/aggregator"
	"github.com/jacksteroo/oracle-feeder/pkg/server/sources"
)

// priceEntry is one currency quote in the /latest payload.
type priceEntry struct {
	Currency string `json:"currency"`
	Price    string `json:"price"`
}

// latestResponse is the payload the feeder expects: a creation timestamp it
// checks for freshness and the aggregated price list.
type latestResponse struct {
	CreatedAt time.Time    `json:"created_at"`
	Prices    []priceEntry `json:"prices"`
}

// Server aggregates source prices on demand and serves them at /latest.
type Server struct {
	addr       string
	sources    []sources.Source
	aggregator *aggregator.MedianAggregator
	cacheTTL   time.Duration
	logger     zerolog.Logger

	httpServer *http.Server

	mu       sync.Mutex
	cached   *latestResponse
	cachedAt time.Time
}

// NewServer creates a price API server over the given sources.
func NewServer(addr string, srcs []sources.Source, agg *aggregator.MedianAggregator, cacheTTL time.Duration, logger zerolog.Logger) *Server {
	return &Server{
		addr:       addr,
		sources:    srcs,
		aggregator: agg,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Start serves the price API. It blocks until Stop is called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", s.handleLatest)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("Starting price API server")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp, err := s.latest(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to aggregate prices")
		http.Error(w, "no prices available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	healthy := 0
	for _, src := range s.sources {
		if src.IsHealthy() {
			healthy++
		}
	}
	if healthy == 0 {
		http.Error(w, "no healthy sources", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// latest returns the cached aggregation if it is still fresh, otherwise
// re-aggregates from healthy sources.
func (s *Server) latest(ctx context.Context) (*latestResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cachedAt) < s.cacheTTL {
		return s.cached, nil
	}

	sourcePrices := make(map[string]map[string]sources.Price)
	for _, src := range s.sources {
		if !src.IsHealthy() {
			continue
		}
		prices, err := src.GetPrices(ctx)
		if err != nil || len(prices) == 0 {
			continue
		}
		sourcePrices[src.Name()] = prices
	}

	aggregated, err := s.aggregator.Aggregate(sourcePrices)
	if err != nil {
		return nil, err
	}

	entries := make([]priceEntry, 0, len(aggregated))
	for _, p := range aggregated {
		entries = append(entries, priceEntry{Currency: p.Currency, Price: p.Price.String()})
	}

	resp := &latestResponse{
		CreatedAt: time.Now(),
		Prices:    entries,
	}
	s.cached = resp
	s.cachedAt = resp.CreatedAt
	return resp, nil
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksteroo/oracle-feeder/pkg/server/aggregator"
	"github.com/jacksteroo/oracle-feeder/pkg/server/sources"
)

// staticSource serves a fixed price table.
type staticSource struct {
	name    string
	prices  map[string]sources.Price
	healthy bool
}

func (s *staticSource) Name() string                    { return s.name }
func (s *staticSource) Type() sources.SourceType        { return sources.SourceTypeCEX }
func (s *staticSource) Start(context.Context) error     { return nil }
func (s *staticSource) Stop() error                     { return nil }
func (s *staticSource) IsHealthy() bool                 { return s.healthy }
func (s *staticSource) LastUpdate() time.Time           { return time.Now() }
func (s *staticSource) GetPrices(context.Context) (map[string]sources.Price, error) {
	return s.prices, nil
}

func newStaticSource(name string, prices map[string]string) *staticSource {
	table := make(map[string]sources.Price, len(prices))
	for currency, value := range prices {
		table[currency] = sources.Price{
			Currency:  currency,
			Price:     decimal.RequireFromString(value),
			Timestamp: time.Now(),
			Source:    name,
		}
	}
	return &staticSource{name: name, prices: table, healthy: true}
}

func TestHandleLatest(t *testing.T) {
	server := NewServer(":0", []sources.Source{
		newStaticSource("a", map[string]string{"krw": "1350", "usd": "1"}),
	}, aggregator.NewMedianAggregator(zerolog.Nop()), time.Second, zerolog.Nop())

	rec := httptest.NewRecorder()
	server.handleLatest(rec, httptest.NewRequest(http.MethodGet, "/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CreatedAt time.Time `json:"created_at"`
		Prices    []struct {
			Currency string `json:"currency"`
			Price    string `json:"price"`
		} `json:"prices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.WithinDuration(t, time.Now(), resp.CreatedAt, 5*time.Second)
	assert.Len(t, resp.Prices, 2)
}

func TestHandleLatestNoHealthySources(t *testing.T) {
	unhealthy := newStaticSource("a", map[string]string{"krw": "1350"})
	unhealthy.healthy = false

	server := NewServer(":0", []sources.Source{unhealthy},
		aggregator.NewMedianAggregator(zerolog.Nop()), time.Second, zerolog.Nop())

	rec := httptest.NewRecorder()
	server.handleLatest(rec, httptest.NewRequest(http.MethodGet, "/latest", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleLatestMethodNotAllowed(t *testing.T) {
	server := NewServer(":0", nil, aggregator.NewMedianAggregator(zerolog.Nop()), time.Second, zerolog.Nop())

	rec := httptest.NewRecorder()
	server.handleLatest(rec, httptest.NewRequest(http.MethodPost, "/latest", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleLatestServesCachedResponse(t *testing.T) {
	source := newStaticSource("a", map[string]string{"krw": "1350"})
	server := NewServer(":0", []sources.Source{source},
		aggregator.NewMedianAggregator(zerolog.Nop()), time.Minute, zerolog.Nop())

	rec := httptest.NewRecorder()
	server.handleLatest(rec, httptest.NewRequest(http.MethodGet, "/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()

	// Mutating the source must not change the cached payload.
	source.prices["krw"] = sources.Price{
		Currency: "krw",
		Price:    decimal.RequireFromString("9999"),
		Source:   "a",
	}

	rec = httptest.NewRecorder()
	server.handleLatest(rec, httptest.NewRequest(http.MethodGet, "/latest", nil))
	assert.Equal(t, first, rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	healthy := newStaticSource("a", map[string]string{"krw": "1350"})
	server := NewServer(":0", []sources.Source{healthy},
		aggregator.NewMedianAggregator(zerolog.Nop()), time.Second, zerolog.Nop())

	rec := httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	healthy.healthy = false
	rec = httptest.NewRecorder()
	server.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

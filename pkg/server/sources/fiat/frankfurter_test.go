package fiat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frankfurterConfig(url string) map[string]interface{} {
	return map[string]interface{}{
		"currencies": []interface{}{"krw", "eur"},
		"url":        url,
		"logger":     zerolog.Nop(),
	}
}

func TestNewFrankfurterSourceFromConfig(t *testing.T) {
	src, err := NewFrankfurterSourceFromConfig(frankfurterConfig(""))
	require.NoError(t, err)
	assert.Equal(t, "frankfurter", src.Name())
}

func TestFrankfurterRequiresCurrencies(t *testing.T) {
	_, err := NewFrankfurterSourceFromConfig(map[string]interface{}{"logger": zerolog.Nop()})
	assert.Error(t, err)
}

func TestFrankfurterFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "USD", r.URL.Query().Get("from"))
		_, _ = w.Write([]byte(`{"base":"USD","date":"2024-01-02","rates":{"KRW":1350.42,"EUR":0.92}}`))
	}))
	t.Cleanup(server.Close)

	src, err := NewFrankfurterSourceFromConfig(frankfurterConfig(server.URL))
	require.NoError(t, err)
	frankfurter := src.(*FrankfurterSource)

	require.NoError(t, frankfurter.fetchPrices(context.Background()))

	prices, err := frankfurter.GetPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "1350.42", prices["krw"].Price.String())
	assert.True(t, frankfurter.IsHealthy())
}

func TestFrankfurterFetchEmptyRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"base":"USD","rates":{}}`))
	}))
	t.Cleanup(server.Close)

	src, err := NewFrankfurterSourceFromConfig(frankfurterConfig(server.URL))
	require.NoError(t, err)
	frankfurter := src.(*FrankfurterSource)

	assert.ErrorIs(t, frankfurter.fetchPrices(context.Background()), ErrEmptyRates)
}

func TestFrankfurterFetchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	src, err := NewFrankfurterSourceFromConfig(frankfurterConfig(server.URL))
	require.NoError(t, err)
	frankfurter := src.(*FrankfurterSource)

	assert.Error(t, frankfurter.fetchPrices(context.Background()))
}

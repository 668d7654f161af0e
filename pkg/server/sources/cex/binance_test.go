package cex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binanceConfig(url string) map[string]interface{} {
	return map[string]interface{}{
		"pairs": map[string]interface{}{
			"LUNCUSDT": "luna",
			"KRWUSDT":  "krw",
		},
		"url":    url,
		"logger": zerolog.Nop(),
	}
}

func TestNewBinanceSourceFromConfig(t *testing.T) {
	src, err := NewBinanceSourceFromConfig(binanceConfig(""))
	require.NoError(t, err)
	assert.Equal(t, "binance", src.Name())
}

func TestNewBinanceSourceRequiresPairs(t *testing.T) {
	_, err := NewBinanceSourceFromConfig(map[string]interface{}{"logger": zerolog.Nop()})
	assert.ErrorIs(t, err, ErrNoPairsConfigured)
}

func TestBinanceFetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{"symbol":"LUNCUSDT","price":"0.00008123"},
			{"symbol":"KRWUSDT","price":"0.00074"},
			{"symbol":"BTCUSDT","price":"50000"}
		]`))
	}))
	t.Cleanup(server.Close)

	src, err := NewBinanceSourceFromConfig(binanceConfig(server.URL))
	require.NoError(t, err)
	binance := src.(*BinanceSource)

	require.NoError(t, binance.fetchPrices(context.Background()))

	prices, err := binance.GetPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2, "unmapped symbols are ignored")
	assert.Equal(t, "0.00008123", prices["luna"].Price.String())
	assert.Equal(t, "0.00074", prices["krw"].Price.String())
	assert.True(t, binance.IsHealthy())
}

func TestBinanceFetchHandlesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	src, err := NewBinanceSourceFromConfig(binanceConfig(server.URL))
	require.NoError(t, err)
	binance := src.(*BinanceSource)

	assert.Error(t, binance.fetchPrices(context.Background()))
}

func TestBinanceFetchSkipsUnparseablePrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"symbol":"LUNCUSDT","price":"garbage"}]`))
	}))
	t.Cleanup(server.Close)

	src, err := NewBinanceSourceFromConfig(binanceConfig(server.URL))
	require.NoError(t, err)
	binance := src.(*BinanceSource)

	require.NoError(t, binance.fetchPrices(context.Background()))
	prices, _ := binance.GetPrices(context.Background())
	assert.Empty(t, prices)
}

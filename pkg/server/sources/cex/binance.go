package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jacksteroo/oracle-feeder/pkg/server/sources"
)

const defaultBinanceURL = "https://api.binance.com/api/v3/ticker/price"

func init() {
	sources.Register("cex.binance", NewBinanceSourceFromConfig)
}

// BinanceSource polls Binance REST ticker prices. Pairs map exchange symbols
// to the currency codes the oracle votes on (e.g. "LUNCUSDT" -> "luna").
type BinanceSource struct {
	*sources.BaseSource

	url      string
	pairs    map[string]string // exchange symbol -> currency code
	interval time.Duration
	client   *http.Client
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// NewBinanceSourceFromConfig creates a BinanceSource from config.
func NewBinanceSourceFromConfig(config map[string]interface{}) (sources.Source, error) {
	pairs, err := pairsFromConfig(config)
	if err != nil {
		return nil, err
	}

	interval := 5 * time.Second
	if i, ok := config["interval"].(int); ok {
		interval = time.Duration(i) * time.Millisecond
	}

	url := defaultBinanceURL
	if u, ok := config["url"].(string); ok && u != "" {
		url = u
	}

	currencies := make([]string, 0, len(pairs))
	for _, c := range pairs {
		currencies = append(currencies, c)
	}

	base := sources.NewBaseSource("binance", sources.SourceTypeCEX, currencies, sources.LoggerFromConfig(config))

	return &BinanceSource{
		BaseSource: base,
		url:        url,
		pairs:      pairs,
		interval:   interval,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

// Start begins the periodic ticker poll.
func (s *BinanceSource) Start(ctx context.Context) error {
	s.Logger().Info().Int("pairs", len(s.pairs)).Msg("Starting Binance source")

	if err := s.fetchPrices(ctx); err != nil {
		s.Logger().Warn().Err(err).Msg("Initial ticker fetch failed")
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.StopChan():
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.fetchPrices(ctx); err != nil {
					s.Logger().Warn().Err(err).Msg("Ticker fetch failed")
					s.SetHealthy(false)
				}
			}
		}
	}()

	return nil
}

func (s *BinanceSource) fetchPrices(ctx context.Context) error {
	symbols := make([]string, 0, len(s.pairs))
	for symbol := range s.pairs {
		symbols = append(symbols, fmt.Sprintf("%q", symbol))
	}
	url := fmt.Sprintf("%s?symbols=[%s]", s.url, strings.Join(symbols, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch tickers: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w", sources.ErrRateLimitExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", sources.ErrUnexpectedStatus, resp.StatusCode)
	}

	var tickers []binanceTicker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(tickers) == 0 {
		return ErrEmptyTicker
	}

	now := time.Now()
	for _, t := range tickers {
		currency, ok := s.pairs[t.Symbol]
		if !ok {
			continue
		}
		value, err := decimal.NewFromString(t.Price)
		if err != nil {
			s.Logger().Warn().Str("symbol", t.Symbol).Str("price", t.Price).Msg("Unparseable ticker price")
			continue
		}
		s.SetPrice(currency, value, now)
	}

	s.Logger().Debug().Int("count", len(tickers)).Msg("Updated tickers")
	return nil
}

// GetPrices returns the current prices.
func (s *BinanceSource) GetPrices(_ context.Context) (map[string]sources.Price, error) {
	return s.GetAllPrices(), nil
}

// Stop stops the source.
func (s *BinanceSource) Stop() error {
	s.Close()
	return nil
}

// pairsFromConfig extracts the symbol -> currency mapping from config.
func pairsFromConfig(config map[string]interface{}) (map[string]string, error) {
	raw, ok := config["pairs"]
	if !ok {
		return nil, ErrNoPairsConfigured
	}
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return nil, ErrInvalidPairs
	}

	pairs := make(map[string]string, len(rawMap))
	for symbol, currencyRaw := range rawMap {
		currency, ok := currencyRaw.(string)
		if !ok || currency == "" {
			continue
		}
		pairs[strings.ToUpper(symbol)] = strings.ToLower(currency)
	}
	if len(pairs) == 0 {
		return nil, ErrNoPairsConfigured
	}
	return pairs, nil
}

package fiat

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

const defaultFrankfurterURL = "https://api.frankfurter.app/latest"

func init() {
	sources.Register("fiat.frankfurter", NewFrankfurterSourceFromConfig)
}

// FrankfurterSource fetches fiat rates from the Frankfurter API (free, no
// API key). Rates come back as USD→currency and are stored unchanged, as
// units of the currency per USD.
type FrankfurterSource struct {
	*sources.BaseSource

	url      string
	interval time.Duration
	client   *http.Client
}

type frankfurterResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// NewFrankfurterSourceFromConfig creates a FrankfurterSource from config.
func NewFrankfurterSourceFromConfig(config map[string]interface{}) (sources.Source, error) {
	currencies, err := sources.CurrenciesFromConfig(config)
	if err != nil {
		return nil, err
	}

	interval := 15 * time.Second
	if i, ok := config["interval"].(int); ok {
		interval = time.Duration(i) * time.Millisecond
	}

	url := defaultFrankfurterURL
	if u, ok := config["url"].(string); ok && u != "" {
		url = u
	}

	base := sources.NewBaseSource("frankfurter", sources.SourceTypeFiat, currencies, sources.LoggerFromConfig(config))

	return &FrankfurterSource{
		BaseSource: base,
		url:        url,
		interval:   interval,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

// Start begins the periodic fetch loop.
func (s *FrankfurterSource) Start(ctx context.Context) error {
	s.Logger().Info().Int("currencies", len(s.Currencies())).Msg("Starting Frankfurter source")

	if err := s.fetchPrices(ctx); err != nil {
		s.Logger().Warn().Err(err).Msg("Initial price fetch failed")
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
					s.Logger().Warn().Err(err).Msg("Price fetch failed")
					s.SetHealthy(false)
				}
			}
		}
	}()

	return nil
}

func (s *FrankfurterSource) fetchPrices(ctx context.Context) error {
	symbols := make([]string, 0, len(s.Currencies()))
	for _, c := range s.Currencies() {
		symbols = append(symbols, strings.ToUpper(c))
	}
	if len(symbols) == 0 {
		return ErrNoCurrenciesToFetch
	}

	url := fmt.Sprintf("%s?from=USD&to=%s", s.url, strings.Join(symbols, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch rates: %w", err)
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

	var data frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(data.Rates) == 0 {
		return ErrEmptyRates
	}

	now := time.Now()
	for currency, rate := range data.Rates {
		if rate == 0 {
			continue
		}
		// USD->KRW rate becomes the ukrw quote: units of currency per USD.
		s.SetPrice(strings.ToLower(currency), decimal.NewFromFloat(rate), now)
	}

	s.Logger().Debug().Int("count", len(data.Rates)).Msg("Updated fiat rates")
	return nil
}

// GetPrices returns the current prices.
func (s *FrankfurterSource) GetPrices(_ context.Context) (map[string]sources.Price, error) {
	return s.GetAllPrices(), nil
}

// Stop stops the source.
func (s *FrankfurterSource) Stop() error {
	s.Close()
	return nil
}

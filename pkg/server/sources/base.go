package sources

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jacksteroo/oracle-feeder/pkg/metrics"
)

// BaseSource provides the bookkeeping shared by all price sources: the
// current price table, health state and the stop channel.
type BaseSource struct {
	name       string
	sourcetype SourceType
	currencies []string

	prices   map[string]Price
	pricesMu sync.RWMutex

	lastUpdate time.Time
	healthy    bool
	healthMu   sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once
	logger   zerolog.Logger
}

// NewBaseSource creates the shared source state for the given currencies.
func NewBaseSource(name string, sourcetype SourceType, currencies []string, logger zerolog.Logger) *BaseSource {
	return &BaseSource{
		name:       name,
		sourcetype: sourcetype,
		currencies: currencies,
		prices:     make(map[string]Price),
		stopChan:   make(chan struct{}),
		logger:     logger.With().Str("source", name).Logger(),
	}
}

// Name returns the source name.
func (b *BaseSource) Name() string {
	return b.name
}

// Type returns the source type.
func (b *BaseSource) Type() SourceType {
	return b.sourcetype
}

// Currencies returns the currency codes this source quotes.
func (b *BaseSource) Currencies() []string {
	return b.currencies
}

// IsHealthy reports whether the source delivered data recently.
func (b *BaseSource) IsHealthy() bool {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.healthy
}

// SetHealthy updates the health state and the exported gauge.
func (b *BaseSource) SetHealthy(healthy bool) {
	b.healthMu.Lock()
	b.healthy = healthy
	b.healthMu.Unlock()
	metrics.SetSourceHealth(b.name, healthy)
}

// LastUpdate returns the time of the last successful price update.
func (b *BaseSource) LastUpdate() time.Time {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.lastUpdate
}

// SetPrice records a price for a currency.
func (b *BaseSource) SetPrice(currency string, value decimal.Decimal, timestamp time.Time) {
	b.pricesMu.Lock()
	b.prices[currency] = Price{
		Currency:  currency,
		Price:     value,
		Timestamp: timestamp,
		Source:    b.name,
	}
	b.pricesMu.Unlock()

	b.healthMu.Lock()
	b.lastUpdate = timestamp
	b.healthy = true
	b.healthMu.Unlock()
	metrics.SetSourceHealth(b.name, true)
}

// GetAllPrices returns a copy of the current price table.
func (b *BaseSource) GetAllPrices() map[string]Price {
	b.pricesMu.RLock()
	defer b.pricesMu.RUnlock()

	prices := make(map[string]Price, len(b.prices))
	for k, v := range b.prices {
		prices[k] = v
	}
	return prices
}

// StopChan returns the stop channel.
func (b *BaseSource) StopChan() <-chan struct{} {
	return b.stopChan
}

// Close closes the stop channel.
func (b *BaseSource) Close() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
}

// Logger returns the source-scoped logger.
func (b *BaseSource) Logger() *zerolog.Logger {
	return &b.logger
}

// CurrenciesFromConfig extracts the currency list from a source config map.
func CurrenciesFromConfig(config map[string]interface{}) ([]string, error) {
	raw, ok := config["currencies"]
	if !ok {
		return nil, ErrMissingCurrencies
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, ErrInvalidCurrencies
	}

	currencies := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			currencies = append(currencies, s)
		}
	}
	if len(currencies) == 0 {
		return nil, ErrMissingCurrencies
	}
	return currencies, nil
}

// LoggerFromConfig extracts the logger injected by the command layer.
func LoggerFromConfig(config map[string]interface{}) zerolog.Logger {
	if l, ok := config["logger"].(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}

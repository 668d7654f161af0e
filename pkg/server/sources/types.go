package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SourceType classifies where a price source gets its data.
type SourceType string

const (
	SourceTypeCEX  SourceType = "cex"
	SourceTypeFiat SourceType = "fiat"
)

// Price is a quote for a currency against USD at a specific time.
type Price struct {
	Currency  string          `json:"currency"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// Source is a continuously-updating price source.
type Source interface {
	// Name returns the unique name of this source.
	Name() string

	// Type returns the type of this source.
	Type() SourceType

	// Start begins fetching prices in the background.
	Start(ctx context.Context) error

	// Stop halts the source and cleans up resources.
	Stop() error

	// GetPrices returns the current prices by currency code.
	GetPrices(ctx context.Context) (map[string]Price, error)

	// IsHealthy reports whether the source delivered data recently.
	IsHealthy() bool

	// LastUpdate returns the timestamp of the last successful update.
	LastUpdate() time.Time
}

// SourceFactory creates a Source from its configuration map.
type SourceFactory func(config map[string]interface{}) (Source, error)

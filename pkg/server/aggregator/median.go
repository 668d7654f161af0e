package aggregator

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jacksteroo/oracle-feeder/pkg/metrics"
	"github.com/jacksteroo/oracle-feeder/pkg/server/sources"
)

// outlierThreshold is the fractional deviation from the initial median
// beyond which a quote is discarded.
var outlierThreshold = decimal.NewFromFloat(0.10)

// MedianAggregator combines per-source quotes into one price per currency
// using the median with outlier rejection.
type MedianAggregator struct {
	logger zerolog.Logger
}

// NewMedianAggregator creates a median aggregator.
func NewMedianAggregator(logger zerolog.Logger) *MedianAggregator {
	return &MedianAggregator{logger: logger}
}

// Aggregate computes the median price for every currency quoted by at least
// one source.
func (a *MedianAggregator) Aggregate(sourcePrices map[string]map[string]sources.Price) (map[string]sources.Price, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAggregation("median", time.Since(start))
	}()

	if len(sourcePrices) == 0 {
		return nil, ErrNoSourcePrices
	}

	byCurrency := make(map[string][]sources.Price)
	for _, prices := range sourcePrices {
		for currency, p := range prices {
			byCurrency[currency] = append(byCurrency[currency], p)
		}
	}

	result := make(map[string]sources.Price, len(byCurrency))
	for currency, quotes := range byCurrency {
		median, err := a.medianWithOutlierRejection(currency, quotes)
		if err != nil {
			a.logger.Warn().Err(err).Str("currency", currency).Msg("Failed to aggregate currency")
			continue
		}
		result[currency] = sources.Price{
			Currency:  currency,
			Price:     median,
			Timestamp: time.Now(),
			Source:    "median",
		}
	}

	if len(result) == 0 {
		return nil, ErrNoPricesComputed
	}

	a.logger.Debug().Int("currencies", len(result)).Msg("Aggregated prices")
	return result, nil
}

// medianWithOutlierRejection discards quotes deviating more than 10% from
// the initial median, then recomputes.
func (a *MedianAggregator) medianWithOutlierRejection(currency string, quotes []sources.Price) (decimal.Decimal, error) {
	if len(quotes) == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoSourcePrices, currency)
	}
	if len(quotes) == 1 {
		return quotes[0].Price, nil
	}

	sort.Slice(quotes, func(i, j int) bool {
		return quotes[i].Price.LessThan(quotes[j].Price)
	})
	initial := median(quotes)
	if initial.IsZero() {
		return initial, nil
	}

	filtered := make([]sources.Price, 0, len(quotes))
	for _, q := range quotes {
		deviation := q.Price.Sub(initial).Abs().Div(initial)
		if deviation.GreaterThan(outlierThreshold) {
			a.logger.Debug().
				Str("currency", currency).
				Str("source", q.Source).
				Str("price", q.Price.String()).
				Str("median", initial.String()).
				Msg("Rejecting outlier quote")
			continue
		}
		filtered = append(filtered, q)
	}
	if len(filtered) == 0 {
		filtered = quotes
	}

	return median(filtered), nil
}

// median of a sorted quote list.
func median(quotes []sources.Price) decimal.Decimal {
	n := len(quotes)
	if n == 0 {
		return decimal.Zero
	}
	if n%2 == 1 {
		return quotes[n/2].Price
	}
	return quotes[n/2-1].Price.Add(quotes[n/2].Price).Div(decimal.NewFromInt(2))
}

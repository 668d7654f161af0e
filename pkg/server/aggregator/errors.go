// Package aggregator combines prices from multiple sources.
package aggregator

import "errors"

// Aggregation errors.
var (
	ErrNoSourcePrices   = errors.New("no source prices available")
	ErrNoPricesComputed = errors.New("no prices could be aggregated")
)

// Package cex provides centralized-exchange price sources.
package cex

import "errors"

// CEX source errors.
var (
	ErrNoPairsConfigured = errors.New("config must map at least one pair to a currency")
	ErrInvalidPairs      = errors.New("pairs must map exchange symbols to currency codes")
	ErrEmptyTicker       = errors.New("exchange returned no ticker data")
)

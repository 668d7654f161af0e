// Package price fetches price observations from configured price servers.
package price

import "errors"

// Aggregator errors.
var (
	ErrNoSources     = errors.New("at least one price source is required")
	ErrNoFreshPrices = errors.New("no price source returned a fresh response")
)

// Package voter implements the block-height-driven oracle voting loop.
package voter

import "errors"

// Voter errors.
var (
	ErrNoValidators   = errors.New("at least one validator is required")
	ErrZeroVotePeriod = errors.New("vote period must be positive")
)

// Package sources provides price sources for the price server.
package sources

import "errors"

// Source errors.
var (
	ErrUnknownSource      = errors.New("unknown source")
	ErrUnexpectedStatus   = errors.New("unexpected HTTP status")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrMissingCurrencies  = errors.New("config must list at least one currency")
	ErrInvalidCurrencies  = errors.New("currencies must be a list of strings")
)

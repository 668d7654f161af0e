// Package fiat provides fiat exchange rate sources.
package fiat

import "errors"

// Fiat source errors.
var (
	ErrNoCurrenciesToFetch = errors.New("no currencies to fetch")
	ErrEmptyRates          = errors.New("provider returned no rates")
)

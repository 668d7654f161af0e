// Package tx builds, signs and broadcasts legacy StdTx transactions.
package tx

import "errors"

// Transaction errors.
var (
	ErrNoMessages      = errors.New("transaction must contain at least one message")
	ErrInvalidGasPrice = errors.New("invalid gas price")
)

// Package client provides REST (LCD) access to the chain.
package client

import "errors"

// Chain client errors.
var (
	ErrTransient        = errors.New("transient chain error")
	ErrTxNotFound       = errors.New("transaction not found")
	ErrMalformedAccount = errors.New("malformed account response")
	ErrMalformedParams  = errors.New("malformed oracle params response")
	ErrTxRejected       = errors.New("transaction rejected")
	ErrConfirmTimeout   = errors.New("transaction confirmation timed out")
)

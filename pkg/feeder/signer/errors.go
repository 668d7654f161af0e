// Package signer abstracts software and hardware transaction signing.
package signer

import "errors"

// Signer errors.
var (
	ErrDeviceUnavailable = errors.New("ledger device unavailable")
	ErrNilKey            = errors.New("signing key must not be nil")
)

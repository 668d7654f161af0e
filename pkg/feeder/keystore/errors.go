// Package keystore stores the feeder mnemonic encrypted on disk and derives
// the signing key from it.
package keystore

import "errors"

// Keystore errors.
var (
	ErrPassphraseTooShort = errors.New("passphrase must be at least 8 characters")
	ErrInvalidMnemonic    = errors.New("invalid BIP39 mnemonic")
	ErrWrongPassphrase    = errors.New("wrong passphrase or corrupted keystore")
	ErrMalformedKeystore  = errors.New("malformed keystore file")
)

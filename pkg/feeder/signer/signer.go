package signer

import (
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Signer produces signatures over canonical sign bytes. Implementations hide
// whether the key lives in memory or on a hardware device.
type Signer interface {
	// AccAddress returns the feeder account address of the signing key.
	AccAddress() sdk.AccAddress

	// PubKey returns the public key matching the signatures.
	PubKey() cryptotypes.PubKey

	// Sign signs the canonical sign bytes. Hardware implementations may
	// block awaiting user confirmation.
	Sign(signBytes []byte) ([]byte, error)

	// Close releases the key source; for hardware keys it drains any
	// in-flight signing request before returning.
	Close() error
}

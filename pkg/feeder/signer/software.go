package signer

import (
	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// SoftwareSigner signs with a decrypted keystore key held in memory.
type SoftwareSigner struct {
	priv *secp256k1.PrivKey
}

var _ Signer = (*SoftwareSigner)(nil)

// NewSoftwareSigner wraps a decrypted secp256k1 key.
func NewSoftwareSigner(priv *secp256k1.PrivKey) (*SoftwareSigner, error) {
	if priv == nil {
		return nil, ErrNilKey
	}
	return &SoftwareSigner{priv: priv}, nil
}

// AccAddress returns the account address derived from the key.
func (s *SoftwareSigner) AccAddress() sdk.AccAddress {
	return sdk.AccAddress(s.priv.PubKey().Address())
}

// PubKey returns the public key.
func (s *SoftwareSigner) PubKey() cryptotypes.PubKey {
	return s.priv.PubKey()
}

// Sign signs the canonical sign bytes with the in-memory key.
func (s *SoftwareSigner) Sign(signBytes []byte) ([]byte, error) {
	return s.priv.Sign(signBytes)
}

// Close zeroes the in-memory key material.
func (s *SoftwareSigner) Close() error {
	for i := range s.priv.Key {
		s.priv.Key[i] = 0
	}
	return nil
}

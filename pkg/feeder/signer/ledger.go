package signer

import (
	"fmt"
	"sync"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	"github.com/cosmos/cosmos-sdk/crypto/ledger"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/jacksteroo/oracle-feeder/pkg/feeder/keystore"
)

// LedgerSigner delegates signing to a connected Ledger device. Each Sign may
// block until the user confirms on the device. The device is an exclusive
// resource; Sign calls are serialized.
type LedgerSigner struct {
	mu   sync.Mutex
	priv cryptotypes.LedgerPrivKey
}

var _ Signer = (*LedgerSigner)(nil)

// NewLedgerSigner connects to the Ledger at the feeder derivation path.
// An absent device is fatal at startup.
func NewLedgerSigner() (*LedgerSigner, error) {
	path := *hd.NewFundraiserParams(0, keystore.CoinType, 0)
	priv, err := ledger.NewPrivKeySecp256k1Unsafe(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return &LedgerSigner{priv: priv}, nil
}

// AccAddress returns the account address of the device key.
func (s *LedgerSigner) AccAddress() sdk.AccAddress {
	return sdk.AccAddress(s.priv.PubKey().Address())
}

// PubKey returns the device public key.
func (s *LedgerSigner) PubKey() cryptotypes.PubKey {
	return s.priv.PubKey()
}

// Sign sends the canonical sign bytes to the device. The device shows the
// decoded sign doc and waits for user confirmation. A device that went away
// mid-run surfaces as a skippable error, not a crash.
func (s *LedgerSigner) Sign(signBytes []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, err := s.priv.Sign(signBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return sig, nil
}

// Close waits for any in-flight signing request to finish and returns; it
// closes no device handle of its own.
func (s *LedgerSigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil
}

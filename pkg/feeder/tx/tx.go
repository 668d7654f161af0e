package tx

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jacksteroo/oracle-feeder/pkg/feeder/client"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/oracle"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/signer"
)

const (
	baseGas   = 50_000
	gasPerMsg = 7_500

	// BroadcastModeSync returns once the tx is accepted into the mempool;
	// inclusion is confirmed by a subsequent tx query.
	BroadcastModeSync = "sync"

	pubKeyTypeSecp256k1 = "tendermint/PubKeySecp256k1"
)

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// StdFee is the fee and gas wanted for a transaction.
type StdFee struct {
	Amount []Coin `json:"amount"`
	Gas    string `json:"gas"`
}

// StdSignature is a signature plus the public key that produced it.
type StdSignature struct {
	Signature string    `json:"signature"`
	PubKey    StdPubKey `json:"pub_key"`
}

// StdPubKey is the amino-JSON public key envelope.
type StdPubKey struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StdTx is the legacy transaction body the LCD accepts.
type StdTx struct {
	Msg        []oracle.Msg   `json:"msg"`
	Fee        StdFee         `json:"fee"`
	Signatures []StdSignature `json:"signatures"`
	Memo       string         `json:"memo"`
}

// EstimateGas returns the gas wanted for a transaction by message count.
// The formula is a chain-policy constant.
func EstimateGas(numMsgs int) uint64 {
	return baseGas + gasPerMsg*uint64(numMsgs)
}

// CalculateFee computes ceil(gas * gasPrice) in the fee denom.
func CalculateFee(gas uint64, gasPrice decimal.Decimal, feeDenom string) ([]Coin, error) {
	if !gasPrice.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGasPrice, gasPrice)
	}
	amount := decimal.NewFromInt(int64(gas)).Mul(gasPrice).Ceil()
	return []Coin{{Denom: feeDenom, Amount: amount.String()}}, nil
}

// Chain is the subset of the LCD client the broadcaster needs.
type Chain interface {
	Account(ctx context.Context, addr sdk.AccAddress) (client.Account, error)
	Broadcast(ctx context.Context, tx interface{}, mode string) (*client.TxResult, error)
}

// Broadcaster assembles, signs and broadcasts oracle transactions.
type Broadcaster struct {
	chain    Chain
	signer   signer.Signer
	chainID  string
	gasPrice decimal.Decimal
	feeDenom string
	memo     string
	logger   zerolog.Logger
}

// BroadcasterConfig holds configuration for creating a Broadcaster.
type BroadcasterConfig struct {
	Chain    Chain
	Signer   signer.Signer
	ChainID  string
	GasPrice decimal.Decimal
	FeeDenom string
	Memo     string
	Logger   zerolog.Logger
}

// NewBroadcaster creates a transaction broadcaster.
func NewBroadcaster(cfg BroadcasterConfig) *Broadcaster {
	return &Broadcaster{
		chain:    cfg.Chain,
		signer:   cfg.Signer,
		chainID:  cfg.ChainID,
		gasPrice: cfg.GasPrice,
		feeDenom: cfg.FeeDenom,
		memo:     cfg.Memo,
		logger:   cfg.Logger,
	}
}

// Broadcast fetches the account's current sequence, builds and signs a StdTx
// around the messages, and submits it in sync mode. A non-zero application
// code in the response is returned as an error carrying the raw log.
func (b *Broadcaster) Broadcast(ctx context.Context, msgs []oracle.Msg) (*client.TxResult, error) {
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	account, err := b.chain.Account(ctx, b.signer.AccAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}

	gas := EstimateGas(len(msgs))
	fee, err := CalculateFee(gas, b.gasPrice, b.feeDenom)
	if err != nil {
		return nil, err
	}
	stdFee := StdFee{Amount: fee, Gas: strconv.FormatUint(gas, 10)}

	signDoc := SignDoc{
		AccountNumber: strconv.FormatUint(account.AccountNumber, 10),
		ChainID:       b.chainID,
		Fee:           stdFee,
		Memo:          b.memo,
		Msgs:          msgs,
		Sequence:      strconv.FormatUint(account.Sequence, 10),
	}
	signBytes, err := signDoc.CanonicalBytes()
	if err != nil {
		return nil, err
	}

	b.logger.Debug().
		Uint64("account_number", account.AccountNumber).
		Uint64("sequence", account.Sequence).
		Int("num_msgs", len(msgs)).
		Uint64("gas", gas).
		Msg("Signing transaction")

	sig, err := b.signer.Sign(signBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	stdTx := StdTx{
		Msg: msgs,
		Fee: stdFee,
		Signatures: []StdSignature{{
			Signature: base64.StdEncoding.EncodeToString(sig),
			PubKey: StdPubKey{
				Type:  pubKeyTypeSecp256k1,
				Value: base64.StdEncoding.EncodeToString(b.signer.PubKey().Bytes()),
			},
		}},
		Memo: b.memo,
	}

	result, err := b.chain.Broadcast(ctx, stdTx, BroadcastModeSync)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	if result.Code != abcitypes.CodeTypeOK {
		return result, fmt.Errorf("%w: code=%d, log=%s", client.ErrTxRejected, result.Code, result.RawLog)
	}

	b.logger.Info().
		Str("tx_hash", result.TxHash).
		Uint64("sequence", account.Sequence).
		Uint64("gas", gas).
		Msg("Transaction accepted into mempool")

	return result, nil
}

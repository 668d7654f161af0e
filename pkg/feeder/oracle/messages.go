package oracle

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Msg is an amino-JSON message envelope as the LCD expects it.
type Msg struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// MsgExchangeRatePrevote carries a commitment hash for one denom.
type MsgExchangeRatePrevote struct {
	Hash      string `json:"hash"`
	Denom     string `json:"denom"`
	Feeder    string `json:"feeder"`
	Validator string `json:"validator"`
}

// MsgExchangeRateVote reveals the price and salt committed in the previous
// period's prevote.
type MsgExchangeRateVote struct {
	ExchangeRate string `json:"exchange_rate"`
	Salt         string `json:"salt"`
	Denom        string `json:"denom"`
	Feeder       string `json:"feeder"`
	Validator    string `json:"validator"`
}

// NewPrevoteMsg builds a prevote message envelope.
func NewPrevoteMsg(hash, denom string, feeder sdk.AccAddress, validator sdk.ValAddress) Msg {
	return Msg{
		Type: "oracle/MsgExchangeRatePrevote",
		Value: MsgExchangeRatePrevote{
			Hash:      hash,
			Denom:     denom,
			Feeder:    feeder.String(),
			Validator: validator.String(),
		},
	}
}

// NewVoteMsg builds a reveal message envelope. The rate and salt must come
// from prevote memory, never from a fresh sample, or the chain's hash check
// will fail.
func NewVoteMsg(rate, salt, denom string, feeder sdk.AccAddress, validator sdk.ValAddress) Msg {
	return Msg{
		Type: "oracle/MsgExchangeRateVote",
		Value: MsgExchangeRateVote{
			ExchangeRate: rate,
			Salt:         salt,
			Denom:        denom,
			Feeder:       feeder.String(),
			Validator:    validator.String(),
		},
	}
}

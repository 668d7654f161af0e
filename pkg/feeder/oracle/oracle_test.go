package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSalt(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, salt, 4)
	_, err = hex.DecodeString(salt)
	assert.NoError(t, err, "salt must be hex")
}

func TestGenerateSaltVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		salt, err := GenerateSalt()
		require.NoError(t, err)
		seen[salt] = true
	}
	// 64 draws from a 16-bit space should be almost all distinct.
	assert.Greater(t, len(seen), 32)
}

func TestVoteHash(t *testing.T) {
	salt := "0ab1"
	price := "2052.048"
	denom := "ukrw"
	validator := "terravaloper1xx"

	got := VoteHash(salt, price, denom, validator)

	digest := sha256.Sum256([]byte("0ab1:2052.048:ukrw:terravaloper1xx"))
	want := hex.EncodeToString(digest[:20])
	assert.Equal(t, want, got)
	assert.Len(t, got, 40)
}

func TestVoteHashBindsEveryField(t *testing.T) {
	base := VoteHash("aaaa", "1.5", "ukrw", "val1")

	tests := []struct {
		name string
		hash string
	}{
		{"different salt", VoteHash("bbbb", "1.5", "ukrw", "val1")},
		{"different price", VoteHash("aaaa", "1.6", "ukrw", "val1")},
		{"different denom", VoteHash("aaaa", "1.5", "uusd", "val1")},
		{"different validator", VoteHash("aaaa", "1.5", "ukrw", "val2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, tt.hash)
		})
	}
}

func TestVerifyPrevoteHash(t *testing.T) {
	validator := sdk.ValAddress([]byte("test_validator_oper_"))
	hash := VoteHash("ab12", "1.5", "ukrw", validator.String())

	assert.NoError(t, VerifyPrevoteHash(hash, "ab12", "1.5", "ukrw", validator))

	err := VerifyPrevoteHash(hash, "ab13", "1.5", "ukrw", validator)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestDenomForCurrency(t *testing.T) {
	tests := []struct {
		currency string
		expected string
	}{
		{"krw", "ukrw"},
		{"usd", "uusd"},
		{"KRW", "ukrw"},
		{"mnt", "umnt"},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			assert.Equal(t, tt.expected, DenomForCurrency(tt.currency))
		})
	}
}

func TestMessageEnvelopes(t *testing.T) {
	feeder := sdk.AccAddress([]byte("test_feeder_account_"))
	validator := sdk.ValAddress([]byte("test_validator_oper_"))

	prevote := NewPrevoteMsg("deadbeef", "ukrw", feeder, validator)
	assert.Equal(t, "oracle/MsgExchangeRatePrevote", prevote.Type)
	value, ok := prevote.Value.(MsgExchangeRatePrevote)
	require.True(t, ok)
	assert.Equal(t, "deadbeef", value.Hash)
	assert.Equal(t, "ukrw", value.Denom)
	assert.Equal(t, feeder.String(), value.Feeder)
	assert.Equal(t, validator.String(), value.Validator)

	vote := NewVoteMsg("2052.048", "ab12", "ukrw", feeder, validator)
	assert.Equal(t, "oracle/MsgExchangeRateVote", vote.Type)
	voteValue, ok := vote.Value.(MsgExchangeRateVote)
	require.True(t, ok)
	assert.Equal(t, "2052.048", voteValue.ExchangeRate)
	assert.Equal(t, "ab12", voteValue.Salt)
}

package voter

import (
	"context"
	"errors"
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacksteroo/oracle-feeder/pkg/feeder/client"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/oracle"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/price"
)

// fakeChain serves scripted heights and inclusion results.
type fakeChain struct {
	height      uint64
	heightErr   error
	included    *client.TxResult
	includedErr error
	prevotes    map[string]*client.PrevoteRecord
}

func (f *fakeChain) LatestBlock(context.Context) (client.Block, error) {
	if f.heightErr != nil {
		return client.Block{}, f.heightErr
	}
	return client.Block{Height: f.height}, nil
}

func (f *fakeChain) WaitForInclusion(context.Context, string) (*client.TxResult, error) {
	if f.includedErr != nil {
		return nil, f.includedErr
	}
	return f.included, nil
}

func (f *fakeChain) Prevote(_ context.Context, denom string, _ sdk.ValAddress) (*client.PrevoteRecord, error) {
	record, ok := f.prevotes[denom]
	if !ok {
		return nil, client.ErrTxNotFound
	}
	return record, nil
}

// fakePrices returns a fixed observation set.
type fakePrices struct {
	prices []price.Price
	err    error
}

func (f *fakePrices) Fetch(context.Context) ([]price.Price, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.prices, nil
}

// fakeBroadcaster records the message batches it was asked to submit.
type fakeBroadcaster struct {
	batches [][]oracle.Msg
	result  *client.TxResult
	err     error
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, msgs []oracle.Msg) (*client.TxResult, error) {
	f.batches = append(f.batches, msgs)
	if f.err != nil {
		return f.result, f.err
	}
	return f.result, nil
}

func testAddrs(t *testing.T) (sdk.AccAddress, sdk.ValAddress) {
	t.Helper()
	feeder := sdk.AccAddress([]byte("test_feeder_account_"))
	validator := sdk.ValAddress([]byte("test_validator_oper_"))
	return feeder, validator
}

func newTestVoter(t *testing.T, chain *fakeChain, prices *fakePrices, bc *fakeBroadcaster) *Voter {
	t.Helper()
	feeder, validator := testAddrs(t)
	v, err := New(Config{
		Feeder:     feeder,
		Validators: []sdk.ValAddress{validator},
		VotePeriod: 5,
	}, chain, prices, bc, zerolog.Nop())
	require.NoError(t, err)
	return v
}

func samplePrices() []price.Price {
	return []price.Price{
		{Currency: "krw", Price: decimal.RequireFromString("2052.048")},
		{Currency: "usd", Price: decimal.RequireFromString("1.7")},
	}
}

func splitMsgs(msgs []oracle.Msg) (prevotes []oracle.MsgExchangeRatePrevote, votes []oracle.MsgExchangeRateVote) {
	for _, m := range msgs {
		switch v := m.Value.(type) {
		case oracle.MsgExchangeRatePrevote:
			prevotes = append(prevotes, v)
		case oracle.MsgExchangeRateVote:
			votes = append(votes, v)
		}
	}
	return prevotes, votes
}

func TestColdStartFirstPeriods(t *testing.T) {
	chain := &fakeChain{height: 97}
	bc := &fakeBroadcaster{
		result: &client.TxResult{TxHash: "AA", Height: 98},
	}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	// Height 97: idx=2, three blocks left in the period, too early.
	out := v.tick(context.Background())
	assert.Equal(t, tickContinue, out)
	assert.Empty(t, bc.batches)

	// Height 98: idx=3, last two blocks, act.
	chain.height = 98
	chain.included = &client.TxResult{TxHash: "AA", Height: 98}
	out = v.tick(context.Background())
	assert.True(t, out.voted)

	require.Len(t, bc.batches, 1)
	prevotes, votes := splitMsgs(bc.batches[0])
	assert.Len(t, prevotes, 2, "one prevote per currency per validator")
	assert.Empty(t, votes, "no reveals on cold start")

	period, ok := v.LastPrevotePeriod()
	require.True(t, ok)
	assert.Equal(t, uint64(19), period)
	assert.Len(t, v.prevoteMemory, 2)
}

func TestPairedReveal(t *testing.T) {
	chain := &fakeChain{height: 98, included: &client.TxResult{TxHash: "AA", Height: 98}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	out := v.tick(context.Background())
	require.True(t, out.voted)

	remembered := make(map[string]prevoteEntry, len(v.prevoteMemory))
	for c, e := range v.prevoteMemory {
		remembered[c] = e
	}

	// Next period, height 103: idx=3, period 20 pairs with 19.
	chain.height = 103
	chain.included = &client.TxResult{TxHash: "BB", Height: 103}
	bc.result = &client.TxResult{TxHash: "BB"}
	out = v.tick(context.Background())
	require.True(t, out.voted)

	require.Len(t, bc.batches, 2)
	prevotes, votes := splitMsgs(bc.batches[1])
	assert.Len(t, prevotes, 2)
	require.Len(t, votes, 2)

	// Reveals must carry the remembered price and salt, not the current sample.
	for _, vote := range votes {
		currency := vote.Denom[1:] // strip the "u" prefix
		entry, ok := remembered[currency]
		require.True(t, ok)
		assert.Equal(t, entry.price, vote.ExchangeRate)
		assert.Equal(t, entry.salt, vote.Salt)
	}

	period, _ := v.LastPrevotePeriod()
	assert.Equal(t, uint64(20), period)
}

func TestRevealHashesMatchCommitments(t *testing.T) {
	chain := &fakeChain{height: 98, included: &client.TxResult{TxHash: "AA", Height: 98}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	require.True(t, v.tick(context.Background()).voted)
	committed, _ := splitMsgs(bc.batches[0])

	chain.height = 103
	chain.included = &client.TxResult{TxHash: "BB", Height: 103}
	require.True(t, v.tick(context.Background()).voted)
	_, votes := splitMsgs(bc.batches[1])

	hashes := make(map[string]string, len(committed))
	for _, p := range committed {
		hashes[p.Denom] = p.Hash
	}
	for _, vote := range votes {
		expect := oracle.VoteHash(vote.Salt, vote.ExchangeRate, vote.Denom, vote.Validator)
		assert.Equal(t, hashes[vote.Denom], expect, "reveal must hash to committed value")
	}
}

func TestRejectedBroadcastLeavesMemoryUnchanged(t *testing.T) {
	chain := &fakeChain{height: 98, included: &client.TxResult{TxHash: "AA", Height: 98}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	require.True(t, v.tick(context.Background()).voted)
	before := make(map[string]prevoteEntry, len(v.prevoteMemory))
	for c, e := range v.prevoteMemory {
		before[c] = e
	}

	chain.height = 103
	bc.result = &client.TxResult{TxHash: "BB", Code: 4, RawLog: "insufficient fee"}
	bc.err = errors.New("transaction rejected: code=4")
	out := v.tick(context.Background())
	assert.NotEmpty(t, out.skip)

	assert.Equal(t, before, v.prevoteMemory, "memory must keep period-19 entries")
	period, _ := v.LastPrevotePeriod()
	assert.Equal(t, uint64(19), period)
}

func TestConfirmTimeoutLeavesMemoryUnchanged(t *testing.T) {
	chain := &fakeChain{height: 98, includedErr: client.ErrConfirmTimeout}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	out := v.tick(context.Background())
	assert.NotEmpty(t, out.skip)
	assert.Empty(t, v.prevoteMemory)
	_, ok := v.LastPrevotePeriod()
	assert.False(t, ok)
}

func TestOnChainFailureLeavesMemoryUnchanged(t *testing.T) {
	chain := &fakeChain{height: 98, included: &client.TxResult{TxHash: "AA", Height: 98, Code: 5, RawLog: "oops"}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	out := v.tick(context.Background())
	assert.Equal(t, "tx failed on-chain", out.skip)
	assert.Empty(t, v.prevoteMemory)
}

func TestWrongPeriodInclusion(t *testing.T) {
	// Sampled at height 153 (period 30), included at height 155 (period 31).
	chain := &fakeChain{height: 153, included: &client.TxResult{TxHash: "AA", Height: 155}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	require.True(t, v.tick(context.Background()).voted)

	period, _ := v.LastPrevotePeriod()
	assert.Equal(t, uint64(31), period, "period must come from the included height")
	for _, entry := range v.prevoteMemory {
		assert.Equal(t, uint64(31), entry.period)
	}

	// Period 32 (height 163) pairs with the included period, not the sampled one.
	chain.height = 163
	chain.included = &client.TxResult{TxHash: "BB", Height: 163}
	require.True(t, v.tick(context.Background()).voted)
	_, votes := splitMsgs(bc.batches[1])
	assert.Len(t, votes, 2, "reveal must be scheduled for period 32")
}

func TestRestartSkipsOnePeriodOfReveals(t *testing.T) {
	// Fresh voter with empty memory mid-protocol: only prevotes go out.
	chain := &fakeChain{height: 103, included: &client.TxResult{TxHash: "AA", Height: 103}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	require.True(t, v.tick(context.Background()).voted)
	prevotes, votes := splitMsgs(bc.batches[0])
	assert.Len(t, prevotes, 2)
	assert.Empty(t, votes)

	// Normal pairing resumes the following period.
	chain.height = 108
	chain.included = &client.TxResult{TxHash: "BB", Height: 108}
	require.True(t, v.tick(context.Background()).voted)
	_, votes = splitMsgs(bc.batches[1])
	assert.Len(t, votes, 2)
}

func TestOncePerPeriod(t *testing.T) {
	chain := &fakeChain{height: 98, included: &client.TxResult{TxHash: "AA", Height: 98}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	require.True(t, v.tick(context.Background()).voted)

	// Next tick in the same period must not broadcast again.
	chain.height = 99
	out := v.tick(context.Background())
	assert.Equal(t, tickContinue, out)
	assert.Len(t, bc.batches, 1)
}

func TestDenomFilter(t *testing.T) {
	feeder, validator := testAddrs(t)
	chain := &fakeChain{height: 98, included: &client.TxResult{TxHash: "AA", Height: 98}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v, err := New(Config{
		Feeder:     feeder,
		Validators: []sdk.ValAddress{validator},
		Denoms:     map[string]bool{"krw": true},
		VotePeriod: 5,
	}, chain, &fakePrices{prices: samplePrices()}, bc, zerolog.Nop())
	require.NoError(t, err)

	require.True(t, v.tick(context.Background()).voted)
	prevotes, _ := splitMsgs(bc.batches[0])
	require.Len(t, prevotes, 1)
	assert.Equal(t, "ukrw", prevotes[0].Denom)
	assert.NotContains(t, v.prevoteMemory, "usd")
}

func TestPriceFetchFailureSkipsTick(t *testing.T) {
	chain := &fakeChain{height: 98}
	bc := &fakeBroadcaster{}
	v := newTestVoter(t, chain, &fakePrices{err: price.ErrNoFreshPrices}, bc)

	out := v.tick(context.Background())
	assert.NotEmpty(t, out.skip)
	assert.Empty(t, bc.batches)
	assert.Empty(t, v.prevoteMemory)
}

func TestHeightFailureSkipsTick(t *testing.T) {
	chain := &fakeChain{heightErr: client.ErrTransient}
	bc := &fakeBroadcaster{}
	v := newTestVoter(t, chain, &fakePrices{prices: samplePrices()}, bc)

	out := v.tick(context.Background())
	assert.NotEmpty(t, out.skip)
	assert.Empty(t, bc.batches)
}

func TestMessagesPerValidator(t *testing.T) {
	feeder, validator := testAddrs(t)
	second := sdk.ValAddress([]byte("other_validator_oper"))
	chain := &fakeChain{height: 98, included: &client.TxResult{TxHash: "AA", Height: 98}}
	bc := &fakeBroadcaster{result: &client.TxResult{TxHash: "AA"}}
	v, err := New(Config{
		Feeder:     feeder,
		Validators: []sdk.ValAddress{validator, second},
		VotePeriod: 5,
	}, chain, &fakePrices{prices: samplePrices()}, bc, zerolog.Nop())
	require.NoError(t, err)

	require.True(t, v.tick(context.Background()).voted)
	prevotes, _ := splitMsgs(bc.batches[0])
	assert.Len(t, prevotes, 4, "2 currencies x 2 validators")

	// Same salt per currency; hashes differ because the validator is bound in.
	byDenom := make(map[string][]oracle.MsgExchangeRatePrevote)
	for _, p := range prevotes {
		byDenom[p.Denom] = append(byDenom[p.Denom], p)
	}
	for denom, ps := range byDenom {
		require.Len(t, ps, 2, denom)
		assert.NotEqual(t, ps[0].Hash, ps[1].Hash)
	}
}

func TestSafeTickRecoversPanic(t *testing.T) {
	v := newTestVoter(t, &fakeChain{}, &fakePrices{}, &fakeBroadcaster{})
	v.chain = nil // force a nil-pointer panic inside the tick

	out := v.safeTick(context.Background())
	assert.Equal(t, "panic", out.skip)
}

func TestPaceArithmetic(t *testing.T) {
	v := newTestVoter(t, &fakeChain{}, &fakePrices{}, &fakeBroadcaster{})
	v.tickTarget = 30 * time.Millisecond
	v.tickMin = 10 * time.Millisecond

	// Fast iteration: sleep tops up to the target.
	start := time.Now()
	require.NoError(t, v.pace(context.Background(), start))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// Slow iteration: the minimum interval still applies.
	start = time.Now().Add(-time.Second)
	before := time.Now()
	require.NoError(t, v.pace(context.Background(), start))
	assert.GreaterOrEqual(t, time.Since(before), 10*time.Millisecond)
}

func TestPaceCancellation(t *testing.T) {
	v := newTestVoter(t, &fakeChain{}, &fakePrices{}, &fakeBroadcaster{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := v.pace(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

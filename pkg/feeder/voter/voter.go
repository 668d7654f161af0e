package voter

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/jacksteroo/oracle-feeder/pkg/feeder/client"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/oracle"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/price"
	"github.com/jacksteroo/oracle-feeder/pkg/metrics"
)

const (
	// actWithinBlocks is how close to the end of a vote period the loop
	// acts: only in the last two blocks. Acting late maximizes the chance
	// that the prevote and the following reveal land in their intended
	// periods despite mempool latency.
	actWithinBlocks = 2

	tickTarget = 6 * time.Second
	tickMin    = 5 * time.Second
)

// Chain is the read side of the chain the loop needs.
type Chain interface {
	LatestBlock(ctx context.Context) (client.Block, error)
	WaitForInclusion(ctx context.Context, hash string) (*client.TxResult, error)
	Prevote(ctx context.Context, denom string, validator sdk.ValAddress) (*client.PrevoteRecord, error)
}

// Broadcaster submits a batch of oracle messages as one transaction.
type Broadcaster interface {
	Broadcast(ctx context.Context, msgs []oracle.Msg) (*client.TxResult, error)
}

// PriceSource yields the current price observations.
type PriceSource interface {
	Fetch(ctx context.Context) ([]price.Price, error)
}

// prevoteEntry remembers what was committed for one currency. Reveals read
// from here, never from the current price sample, so the revealed values
// always hash to the committed value.
type prevoteEntry struct {
	price  string
	salt   string
	period uint64
}

// Config contains voter configuration.
type Config struct {
	Feeder     sdk.AccAddress
	Validators []sdk.ValAddress
	Denoms     map[string]bool // nil means vote on every sampled currency
	VotePeriod uint64
	Verify     bool
}

// Voter runs the voting state machine. It is a single logical task: ticks
// never overlap, so prevote memory needs no locks.
type Voter struct {
	chain       Chain
	prices      PriceSource
	broadcaster Broadcaster
	logger      zerolog.Logger

	feeder     sdk.AccAddress
	validators []sdk.ValAddress
	denoms     map[string]bool
	votePeriod uint64
	verify     bool

	prevoteMemory     map[string]prevoteEntry
	lastPrevotePeriod uint64
	hasPrevoted       bool

	tickTarget time.Duration
	tickMin    time.Duration
}

// New creates a voter. VotePeriod comes from the chain's oracle params.
func New(cfg Config, chain Chain, prices PriceSource, broadcaster Broadcaster, logger zerolog.Logger) (*Voter, error) {
	if len(cfg.Validators) == 0 {
		return nil, ErrNoValidators
	}
	if cfg.VotePeriod == 0 {
		return nil, ErrZeroVotePeriod
	}

	return &Voter{
		chain:         chain,
		prices:        prices,
		broadcaster:   broadcaster,
		logger:        logger,
		feeder:        cfg.Feeder,
		validators:    cfg.Validators,
		denoms:        cfg.Denoms,
		votePeriod:    cfg.VotePeriod,
		verify:        cfg.Verify,
		prevoteMemory: make(map[string]prevoteEntry),
		tickTarget:    tickTarget,
		tickMin:       tickMin,
	}, nil
}

// outcome is the result of a single tick. A skipped tick carries its reason;
// everything else continues silently to pacing.
type outcome struct {
	voted bool
	skip  string
}

func skipTick(reason string) outcome {
	return outcome{skip: reason}
}

var tickContinue = outcome{}

// Run executes the voting loop until the context is cancelled. A voter that
// crashes is worse than one that skips a period, so any tick failure leaves
// state unchanged and schedules another tick.
func (v *Voter) Run(ctx context.Context) error {
	v.logger.Info().
		Uint64("vote_period", v.votePeriod).
		Int("validators", len(v.validators)).
		Str("feeder", v.feeder.String()).
		Msg("Starting oracle voting loop")

	for {
		start := time.Now()

		out := v.safeTick(ctx)
		if out.skip != "" {
			v.logger.Warn().Str("reason", out.skip).Msg("Skipping tick")
			metrics.RecordTickSkip(out.skip)
		}

		if err := v.pace(ctx, start); err != nil {
			v.logger.Info().Msg("Voting loop stopped")
			return err
		}
	}
}

// safeTick runs one tick and converts panics into skipped ticks.
func (v *Voter) safeTick(ctx context.Context) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error().Interface("panic", r).Msg("Tick panicked")
			out = skipTick("panic")
		}
	}()
	return v.tick(ctx)
}

// tick is one pass of the state machine.
func (v *Voter) tick(ctx context.Context) outcome {
	block, err := v.chain.LatestBlock(ctx)
	if err != nil {
		return skipTick(fmt.Sprintf("latest block: %v", err))
	}

	period := block.Height / v.votePeriod
	idx := block.Height % v.votePeriod

	// Too early in the period; wait for the closing blocks.
	if v.votePeriod-idx > actWithinBlocks {
		return tickContinue
	}

	// Already acted this period.
	if v.hasPrevoted && v.lastPrevotePeriod == period {
		return tickContinue
	}

	prices, err := v.prices.Fetch(ctx)
	if err != nil {
		return skipTick(fmt.Sprintf("fetch prices: %v", err))
	}

	filtered := v.filterPrices(prices)
	if len(filtered) == 0 {
		return skipTick("no prices for configured denoms")
	}

	msgs, newEntries, err := v.buildMessages(filtered, period)
	if err != nil {
		return skipTick(fmt.Sprintf("build messages: %v", err))
	}

	broadcastAt := time.Now()
	result, err := v.broadcaster.Broadcast(ctx, msgs)
	if err != nil {
		if result != nil {
			v.logger.Error().
				Uint32("code", result.Code).
				Str("raw_log", result.RawLog).
				Msg("Transaction rejected by application")
		}
		return skipTick(fmt.Sprintf("broadcast: %v", err))
	}

	included, err := v.chain.WaitForInclusion(ctx, result.TxHash)
	if err != nil {
		return skipTick(fmt.Sprintf("confirm: %v", err))
	}
	if included.Code != 0 {
		v.logger.Error().
			Uint32("code", included.Code).
			Str("raw_log", included.RawLog).
			Str("tx_hash", included.TxHash).
			Msg("Transaction failed on-chain")
		return skipTick("tx failed on-chain")
	}
	metrics.ObserveConfirmDuration(time.Since(broadcastAt))

	// The tx may land in a later period than the one sampled at the top of
	// the tick. The reveal must pair with the period that actually contains
	// the commitment, so memory records the included period.
	includedPeriod := included.Height / v.votePeriod
	for currency, entry := range newEntries {
		entry.period = includedPeriod
		v.prevoteMemory[currency] = entry
	}
	v.lastPrevotePeriod = includedPeriod
	v.hasPrevoted = true
	metrics.RecordVoteSubmitted()

	v.logger.Info().
		Uint64("height", included.Height).
		Uint64("period", includedPeriod).
		Int("num_msgs", len(msgs)).
		Str("tx_hash", included.TxHash).
		Msg("Vote transaction confirmed")

	if v.verify {
		v.verifyPrevotes(ctx)
	}

	return outcome{voted: true}
}

// buildMessages assembles the combined reveal + prevote batch for one tick.
// Reveals come first, one per eligible currency per validator, using the
// remembered price and salt. Fresh prevotes follow for every sampled
// currency. Returns the entries to commit to memory once inclusion is
// confirmed.
func (v *Voter) buildMessages(prices []price.Price, period uint64) ([]oracle.Msg, map[string]prevoteEntry, error) {
	var msgs []oracle.Msg

	for _, p := range prices {
		entry, ok := v.prevoteMemory[p.Currency]
		if !ok || period-entry.period != 1 {
			continue
		}
		denom := oracle.DenomForCurrency(p.Currency)
		for _, validator := range v.validators {
			msgs = append(msgs, oracle.NewVoteMsg(entry.price, entry.salt, denom, v.feeder, validator))
		}
	}

	newEntries := make(map[string]prevoteEntry, len(prices))
	for _, p := range prices {
		salt, err := oracle.GenerateSalt()
		if err != nil {
			return nil, nil, err
		}
		rate := p.Price.String()
		denom := oracle.DenomForCurrency(p.Currency)
		for _, validator := range v.validators {
			hash := oracle.VoteHash(salt, rate, denom, validator.String())
			msgs = append(msgs, oracle.NewPrevoteMsg(hash, denom, v.feeder, validator))
		}
		newEntries[p.Currency] = prevoteEntry{price: rate, salt: salt}
	}

	return msgs, newEntries, nil
}

// filterPrices applies the configured denom filter.
func (v *Voter) filterPrices(prices []price.Price) []price.Price {
	if v.denoms == nil {
		return prices
	}
	filtered := make([]price.Price, 0, len(prices))
	for _, p := range prices {
		if v.denoms[p.Currency] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// verifyPrevotes compares remembered commitments against the chain's prevote
// records. Diagnostic only; mismatches are logged, not acted on.
func (v *Voter) verifyPrevotes(ctx context.Context) {
	for currency, entry := range v.prevoteMemory {
		denom := oracle.DenomForCurrency(currency)
		for _, validator := range v.validators {
			record, err := v.chain.Prevote(ctx, denom, validator)
			if err != nil {
				v.logger.Debug().Err(err).Str("denom", denom).Msg("Prevote lookup failed")
				continue
			}
			if err := oracle.VerifyPrevoteHash(record.Hash, entry.salt, entry.price, denom, validator); err != nil {
				v.logger.Error().
					Err(err).
					Str("denom", denom).
					Str("validator", validator.String()).
					Msg("On-chain prevote does not match local commitment")
			}
		}
	}
}

// pace sleeps so that iterations start about tickTarget apart, with at
// least tickMin between them.
func (v *Voter) pace(ctx context.Context, start time.Time) error {
	delay := v.tickTarget - time.Since(start)
	if delay < v.tickMin {
		delay = v.tickMin
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LastPrevotePeriod reports the period of the last confirmed prevote.
func (v *Voter) LastPrevotePeriod() (uint64, bool) {
	return v.lastPrevotePeriod, v.hasPrevoted
}

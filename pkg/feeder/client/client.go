package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
)

const (
	requestTimeout  = 15 * time.Second
	confirmTimeout  = 45 * time.Second
	confirmInterval = 1 * time.Second
)

// Block holds the latest block height.
type Block struct {
	Height uint64
}

// Account holds the feeder account's signing metadata. Sequence is
// server-authoritative; callers refetch it before every broadcast.
type Account struct {
	AccountNumber uint64
	Sequence      uint64
}

// OracleParams holds the oracle module parameters the feeder needs.
type OracleParams struct {
	VotePeriod uint64
}

// TxResult is the outcome of a broadcast or transaction lookup.
type TxResult struct {
	TxHash string
	Height uint64
	Code   uint32
	RawLog string
}

// PrevoteRecord is the chain's view of a submitted prevote.
type PrevoteRecord struct {
	Hash        string
	Denom       string
	Voter       string
	SubmitBlock uint64
}

// LCDClient is a stateless wrapper over the chain's REST endpoint. The
// underlying http.Client reuses keep-alive connections across all calls.
type LCDClient struct {
	baseURL string
	hc      *http.Client
	logger  zerolog.Logger

	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

// NewLCDClient creates a chain client for the given LCD base URL.
func NewLCDClient(baseURL string, logger zerolog.Logger) *LCDClient {
	return &LCDClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc: &http.Client{
			Timeout: requestTimeout,
		},
		logger:          logger,
		confirmTimeout:  confirmTimeout,
		confirmInterval: confirmInterval,
	}
}

// LatestBlock queries the current chain head.
func (c *LCDClient) LatestBlock(ctx context.Context) (Block, error) {
	var resp struct {
		Block struct {
			Header struct {
				Height string `json:"height"`
			} `json:"header"`
		} `json:"block"`
	}
	if err := c.get(ctx, "/blocks/latest", &resp); err != nil {
		return Block{}, err
	}

	height, err := strconv.ParseUint(resp.Block.Header.Height, 10, 64)
	if err != nil {
		return Block{}, fmt.Errorf("%w: invalid block height %q", ErrTransient, resp.Block.Header.Height)
	}
	return Block{Height: height}, nil
}

// Account queries the account number and sequence for the given address.
// A missing or non-numeric account_number, or a non-numeric sequence, is
// reported as ErrMalformedAccount rather than as a transient error. An empty
// or absent sequence is not rejected; it is read as 0.
func (c *LCDClient) Account(ctx context.Context, addr sdk.AccAddress) (Account, error) {
	var resp struct {
		Value struct {
			AccountNumber string `json:"account_number"`
			Sequence      string `json:"sequence"`
		} `json:"value"`
	}
	if err := c.get(ctx, "/auth/accounts/"+addr.String(), &resp); err != nil {
		return Account{}, err
	}

	accNum, err := strconv.ParseUint(resp.Value.AccountNumber, 10, 64)
	if err != nil {
		return Account{}, fmt.Errorf("%w: account_number %q", ErrMalformedAccount, resp.Value.AccountNumber)
	}
	// The LCD reports a fresh account with an empty sequence.
	seq := uint64(0)
	if resp.Value.Sequence != "" {
		seq, err = strconv.ParseUint(resp.Value.Sequence, 10, 64)
		if err != nil {
			return Account{}, fmt.Errorf("%w: sequence %q", ErrMalformedAccount, resp.Value.Sequence)
		}
	}

	return Account{AccountNumber: accNum, Sequence: seq}, nil
}

// OracleParams queries the oracle module parameters. Called once at startup;
// failure is fatal there.
func (c *LCDClient) OracleParams(ctx context.Context) (OracleParams, error) {
	var resp struct {
		VotePeriod string `json:"vote_period"`
		Result     struct {
			VotePeriod string `json:"vote_period"`
		} `json:"result"`
	}
	if err := c.get(ctx, "/oracle/params", &resp); err != nil {
		return OracleParams{}, err
	}

	raw := resp.VotePeriod
	if raw == "" {
		raw = resp.Result.VotePeriod
	}
	votePeriod, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || votePeriod == 0 {
		return OracleParams{}, fmt.Errorf("%w: vote_period %q", ErrMalformedParams, raw)
	}

	return OracleParams{VotePeriod: votePeriod}, nil
}

// Prevote queries the current prevote record for a denom and validator.
// Used as a post-confirmation diagnostic.
func (c *LCDClient) Prevote(ctx context.Context, denom string, validator sdk.ValAddress) (*PrevoteRecord, error) {
	var resp struct {
		Hash        string `json:"hash"`
		Denom       string `json:"denom"`
		Voter       string `json:"voter"`
		SubmitBlock string `json:"submit_block"`
		Result      *struct {
			Hash        string `json:"hash"`
			Denom       string `json:"denom"`
			Voter       string `json:"voter"`
			SubmitBlock string `json:"submit_block"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/oracle/denoms/%s/prevotes/%s", denom, validator.String())
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	record := PrevoteRecord{Hash: resp.Hash, Denom: resp.Denom, Voter: resp.Voter}
	submitBlock := resp.SubmitBlock
	if resp.Result != nil {
		record = PrevoteRecord{Hash: resp.Result.Hash, Denom: resp.Result.Denom, Voter: resp.Result.Voter}
		submitBlock = resp.Result.SubmitBlock
	}
	if submitBlock != "" {
		if h, err := strconv.ParseUint(submitBlock, 10, 64); err == nil {
			record.SubmitBlock = h
		}
	}
	return &record, nil
}

// Tx looks up a transaction by hash. A 404 means the transaction has not
// been included yet and is reported as ErrTxNotFound.
func (c *LCDClient) Tx(ctx context.Context, hash string) (*TxResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/txs/"+hash, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, hash)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw struct {
		TxHash string `json:"txhash"`
		Height string `json:"height"`
		Code   uint32 `json:"code"`
		RawLog string `json:"raw_log"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode tx response: %w", ErrTransient, err)
	}

	height, err := strconv.ParseUint(raw.Height, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tx height %q", ErrTransient, raw.Height)
	}

	return &TxResult{TxHash: raw.TxHash, Height: height, Code: raw.Code, RawLog: raw.RawLog}, nil
}

// Broadcast submits a signed transaction. A non-zero application code in the
// response is surfaced on the result, not as an error; callers decide policy.
func (c *LCDClient) Broadcast(ctx context.Context, tx interface{}, mode string) (*TxResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"tx":   tx,
		"mode": mode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode broadcast body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/txs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var raw struct {
		TxHash string `json:"txhash"`
		Code   uint32 `json:"code"`
		RawLog string `json:"raw_log"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode broadcast response: %w", ErrTransient, err)
	}

	return &TxResult{TxHash: raw.TxHash, Code: raw.Code, RawLog: raw.RawLog}, nil
}

// WaitForInclusion polls Tx at 1 Hz until the transaction is found in a
// block or the 45 s confirmation window expires. Not-yet-found and transient
// lookup errors are retried within the window.
func (c *LCDClient) WaitForInclusion(ctx context.Context, hash string) (*TxResult, error) {
	deadline := time.Now().Add(c.confirmTimeout)
	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		result, err := c.Tx(ctx, hash)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug().Err(err).Str("tx_hash", hash).Msg("Transaction not yet included")

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrConfirmTimeout, hash)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// get issues a GET request and decodes a 2xx JSON response into out.
func (c *LCDClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s: status %d: %s", ErrTransient, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", ErrTransient, path, err)
	}
	return nil
}

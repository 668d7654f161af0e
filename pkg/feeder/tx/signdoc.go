package tx

import (
	"encoding/json"
	"fmt"

	"github.com/jacksteroo/oracle-feeder/pkg/feeder/oracle"
)

// SignDoc is the canonical structure the chain verifies signatures over:
// the transaction plus chain ID, account number and sequence, JSON-encoded
// with sorted keys.
type SignDoc struct {
	AccountNumber string       `json:"account_number"`
	ChainID       string       `json:"chain_id"`
	Fee           StdFee       `json:"fee"`
	Memo          string       `json:"memo"`
	Msgs          []oracle.Msg `json:"msgs"`
	Sequence      string       `json:"sequence"`
}

// CanonicalBytes returns the deterministic encoding of the sign doc: UTF-8
// JSON with lexicographically sorted keys and no insignificant whitespace.
func (d SignDoc) CanonicalBytes() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign doc: %w", err)
	}
	return sortJSON(raw)
}

// sortJSON re-encodes a JSON document with object keys sorted at every
// nesting level. Go's encoding/json marshals map keys in sorted order, so a
// decode/encode round trip canonicalizes the document.
func sortJSON(raw []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to canonicalize sign doc: %w", err)
	}
	sorted, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize sign doc: %w", err)
	}
	return sorted, nil
}

// Package oracle builds oracle vote messages and commitment hashes.
package oracle

import "errors"

// Oracle message errors.
var (
	ErrSaltGeneration   = errors.New("failed to generate salt")
	ErrHashMismatch     = errors.New("prevote hash mismatch")
	ErrEmptyVoteInputs  = errors.New("salt, price, denom and validator are all required")
)

package oracle

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// voteHashLen is the number of hash bytes the chain keeps from the SHA-256
// digest when checking a reveal against its commitment.
const voteHashLen = 20

// GenerateSalt produces a 4-hex-character salt from a cryptographic RNG.
// The chain caps salt length at 4 characters.
func GenerateSalt() (string, error) {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSaltGeneration, err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// VoteHash derives the commitment hash binding a salt, price, denom and
// validator. The chain checks the reveal against the hex of the first 20
// bytes of SHA-256 over "{salt}:{price}:{denom}:{validator}".
func VoteHash(salt, price, denom, validator string) string {
	preimage := strings.Join([]string{salt, price, denom, validator}, ":")
	digest := sha256.Sum256([]byte(preimage))
	return hex.EncodeToString(digest[:voteHashLen])
}

// VerifyPrevoteHash checks a remembered (salt, price) pair against the hash
// the chain recorded for the prevote.
func VerifyPrevoteHash(chainHash, salt, price, denom string, validator sdk.ValAddress) error {
	local := VoteHash(salt, price, denom, validator.String())
	if !strings.EqualFold(local, chainHash) {
		return fmt.Errorf("%w: chain has %s, local is %s", ErrHashMismatch, chainHash, local)
	}
	return nil
}

// DenomForCurrency derives the on-chain denom from a currency code.
func DenomForCurrency(currency string) string {
	return "u" + strings.ToLower(currency)
}

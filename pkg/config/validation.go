package config

import (
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/shopspring/decimal"
)

// ValidateFeeder checks the feeder configuration for fatal startup errors.
func ValidateFeeder(cfg *Config) error {
	if cfg.Feeder.LCDURL == "" {
		return ErrMissingLCDURL
	}
	if cfg.Feeder.ChainID == "" {
		return ErrMissingChainID
	}
	if len(cfg.Feeder.Sources) == 0 {
		return ErrNoPriceSources
	}
	if cfg.Feeder.Keystore == "" && !cfg.Feeder.Ledger {
		return ErrNoSigningKey
	}

	if _, err := ParseDenoms(cfg.Feeder.Denoms); err != nil {
		return err
	}

	gp, err := decimal.NewFromString(cfg.Feeder.GasPrice)
	if err != nil || !gp.IsPositive() {
		return fmt.Errorf("%w: %q", ErrInvalidGasPrice, cfg.Feeder.GasPrice)
	}

	for _, val := range cfg.Feeder.Validators {
		if _, err := sdk.ValAddressFromBech32(val); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidValidator, val, err)
		}
	}

	return nil
}

// ValidateServer checks the price server configuration.
func ValidateServer(cfg *Config) error {
	enabled := 0
	for _, src := range cfg.Sources {
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return ErrNoServerSources
	}
	return nil
}

// ParseDenoms normalizes the denom filter flag. It returns nil for "all"
// (no filtering) or a set of lowercase currency codes.
func ParseDenoms(denoms string) (map[string]bool, error) {
	if strings.EqualFold(denoms, "all") {
		return nil, nil
	}

	filter := make(map[string]bool)
	for _, part := range strings.Split(denoms, ",") {
		code := strings.ToLower(strings.TrimSpace(part))
		if code == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDenoms, denoms)
		}
		filter[code] = true
	}
	if len(filter) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDenoms, denoms)
	}
	return filter, nil
}

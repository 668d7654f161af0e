package config

import "errors"

// Configuration errors.
var (
	ErrMissingLCDURL     = errors.New("lcd_url is required")
	ErrMissingChainID    = errors.New("chain_id is required")
	ErrNoPriceSources    = errors.New("at least one price source URL is required")
	ErrNoSigningKey      = errors.New("either a keystore path or --ledger is required")
	ErrInvalidDenoms     = errors.New("denoms must be \"all\" or a comma-separated list of currency codes")
	ErrInvalidGasPrice   = errors.New("gas_price must be a positive decimal")
	ErrInvalidValidator  = errors.New("invalid validator operator address")
	ErrNoServerSources   = errors.New("at least one enabled source is required in server mode")
)

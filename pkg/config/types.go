package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Feeder  FeederConfig   `yaml:"feeder"`
	Server  ServerConfig   `yaml:"server"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
	Sources []SourceConfig `yaml:"sources"`
}

// FeederConfig configures the feeder component.
type FeederConfig struct {
	LCDURL      string   `yaml:"lcd_url"`      // Chain LCD (REST) endpoint
	ChainID     string   `yaml:"chain_id"`     // Chain ID (e.g., "columbus-5")
	Sources     []string `yaml:"sources"`      // Price server URLs, in tie-break order
	Validators  []string `yaml:"validators"`   // Validator operator addresses to vote for
	Denoms      string   `yaml:"denoms"`       // "all" or comma-separated currency codes
	Keystore    string   `yaml:"keystore"`     // Path to the encrypted keystore file
	Password    string   `yaml:"password"`     // Keystore passphrase (or use PasswordEnv)
	PasswordEnv string   `yaml:"password_env"` // Environment variable holding the passphrase
	Ledger      bool     `yaml:"ledger"`       // Sign with a Ledger device instead of the keystore
	FeeDenom    string   `yaml:"fee_denom"`    // Fee denomination (default "uluna")
	GasPrice    string   `yaml:"gas_price"`    // Gas price for fee calculation (default "0.015")
	Memo        string   `yaml:"memo"`         // Transaction memo
	Verify      bool     `yaml:"verify"`       // Verify confirmed prevote hashes against the chain
}

// ServerConfig configures the price server component.
type ServerConfig struct {
	Addr     string   `yaml:"addr"`      // Listen address for the price API
	CacheTTL Duration `yaml:"cache_ttl"` // How long aggregated prices are cached
}

// SourceConfig configures a single price server source.
type SourceConfig struct {
	Type    string                 `yaml:"type"`
	Name    string                 `yaml:"name"`
	Enabled bool                   `yaml:"enabled"`
	Config  map[string]interface{} `yaml:"config"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

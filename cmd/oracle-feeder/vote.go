package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jacksteroo/oracle-feeder/pkg/config"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/client"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/keystore"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/price"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/signer"
	feedertx "github.com/jacksteroo/oracle-feeder/pkg/feeder/tx"
	"github.com/jacksteroo/oracle-feeder/pkg/feeder/voter"
	"github.com/jacksteroo/oracle-feeder/pkg/logging"
	"github.com/jacksteroo/oracle-feeder/pkg/metrics"
)

func voteCmd() *cobra.Command {
	var (
		configFile string
		lcdURL     string
		chainID    string
		srcURLs    []string
		validators []string
		denoms     string
		ksPath     string
		password   string
		useLedger  bool
		feeDenom   string
		gasPrice   string
		verify     bool
	)

	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Run the oracle voting loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}

			// Flags override config file values.
			flags := cmd.Flags()
			if flags.Changed("lcd") {
				cfg.Feeder.LCDURL = lcdURL
			}
			if flags.Changed("chain-id") {
				cfg.Feeder.ChainID = chainID
			}
			if flags.Changed("source") {
				cfg.Feeder.Sources = srcURLs
			}
			if flags.Changed("validator") {
				cfg.Feeder.Validators = validators
			}
			if flags.Changed("denoms") {
				cfg.Feeder.Denoms = denoms
			}
			if flags.Changed("keystore") {
				cfg.Feeder.Keystore = ksPath
			}
			if flags.Changed("password") {
				cfg.Feeder.Password = password
			}
			if flags.Changed("ledger") {
				cfg.Feeder.Ledger = useLedger
			}
			if flags.Changed("fee-denom") {
				cfg.Feeder.FeeDenom = feeDenom
			}
			if flags.Changed("gas-price") {
				cfg.Feeder.GasPrice = gasPrice
			}
			if flags.Changed("verify") {
				cfg.Feeder.Verify = verify
			}

			if err := config.ValidateFeeder(cfg); err != nil {
				return err
			}

			return runVote(cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to configuration file")
	cmd.Flags().StringVar(&lcdURL, "lcd", "", "Chain LCD (REST) endpoint")
	cmd.Flags().StringVar(&chainID, "chain-id", "", "Chain ID")
	cmd.Flags().StringArrayVar(&srcURLs, "source", nil, "Price server URL (repeatable, order breaks ties)")
	cmd.Flags().StringArrayVar(&validators, "validator", nil, "Validator operator address (repeatable)")
	cmd.Flags().StringVar(&denoms, "denoms", "all", "\"all\" or comma-separated currency codes")
	cmd.Flags().StringVar(&ksPath, "keystore", "", "Path to the encrypted keystore file")
	cmd.Flags().StringVar(&password, "password", "", "Keystore passphrase (prompted when omitted)")
	cmd.Flags().BoolVar(&useLedger, "ledger", false, "Sign with a Ledger device")
	cmd.Flags().StringVar(&feeDenom, "fee-denom", "", "Fee denomination")
	cmd.Flags().StringVar(&gasPrice, "gas-price", "", "Gas price for fee calculation")
	cmd.Flags().BoolVar(&verify, "verify", false, "Verify confirmed prevotes against the chain")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runVote(cfg *config.Config) error {
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	metrics.Init()
	if cfg.Metrics.Enabled {
		go func() {
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("Starting metrics server")
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Build the signer. A missing or unreadable key source is fatal.
	var sgn signer.Signer
	if cfg.Feeder.Ledger {
		sgn, err = signer.NewLedgerSigner()
		if err != nil {
			return err
		}
	} else {
		passphrase := cfg.Feeder.Password
		if passphrase == "" && cfg.Feeder.PasswordEnv != "" {
			passphrase = os.Getenv(cfg.Feeder.PasswordEnv)
		}
		if passphrase == "" {
			passphrase, err = promptPassword("Keystore passphrase: ")
			if err != nil {
				return err
			}
		}

		priv, err := keystore.Load(cfg.Feeder.Keystore, passphrase)
		if err != nil {
			return err
		}
		sgn, err = signer.NewSoftwareSigner(priv)
		if err != nil {
			return err
		}
	}
	defer func() {
		_ = sgn.Close()
	}()

	feeder := sgn.AccAddress()
	logger.Info().Str("feeder", feeder.String()).Msg("Loaded feeder account")

	// Validators default to the feeder's own operator address.
	validators := make([]sdk.ValAddress, 0, len(cfg.Feeder.Validators))
	for _, val := range cfg.Feeder.Validators {
		parsed, err := sdk.ValAddressFromBech32(val)
		if err != nil {
			return fmt.Errorf("invalid validator address %s: %w", val, err)
		}
		validators = append(validators, parsed)
	}
	if len(validators) == 0 {
		validators = append(validators, sdk.ValAddress(feeder))
	}

	denomFilter, err := config.ParseDenoms(cfg.Feeder.Denoms)
	if err != nil {
		return err
	}

	gasPrice, err := decimal.NewFromString(cfg.Feeder.GasPrice)
	if err != nil {
		return fmt.Errorf("invalid gas price %q: %w", cfg.Feeder.GasPrice, err)
	}

	lcd := client.NewLCDClient(cfg.Feeder.LCDURL, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Oracle params are required before the first tick; failure here is fatal.
	params, err := lcd.OracleParams(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch oracle params: %w", err)
	}
	logger.Info().Uint64("vote_period", params.VotePeriod).Msg("Fetched oracle params")

	aggregator, err := price.NewAggregator(cfg.Feeder.Sources, logger)
	if err != nil {
		return err
	}

	broadcaster := feedertx.NewBroadcaster(feedertx.BroadcasterConfig{
		Chain:    lcd,
		Signer:   sgn,
		ChainID:  cfg.Feeder.ChainID,
		GasPrice: gasPrice,
		FeeDenom: cfg.Feeder.FeeDenom,
		Memo:     cfg.Feeder.Memo,
		Logger:   logger,
	})

	v, err := voter.New(voter.Config{
		Feeder:     feeder,
		Validators: validators,
		Denoms:     denomFilter,
		VotePeriod: params.VotePeriod,
		Verify:     cfg.Feeder.Verify,
	}, lcd, aggregator, broadcaster, logger)
	if err != nil {
		return err
	}

	if err := v.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

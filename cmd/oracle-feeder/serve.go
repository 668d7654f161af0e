package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacksteroo/oracle-feeder/pkg/config"
	"github.com/jacksteroo/oracle-feeder/pkg/logging"
	"github.com/jacksteroo/oracle-feeder/pkg/metrics"
	"github.com/jacksteroo/oracle-feeder/pkg/server/aggregator"
	"github.com/jacksteroo/oracle-feeder/pkg/server/api"
	"github.com/jacksteroo/oracle-feeder/pkg/server/sources"

	// Register sources.
	_ "github.com/jacksteroo/oracle-feeder/pkg/server/sources/cex"
	_ "github.com/jacksteroo/oracle-feeder/pkg/server/sources/fiat"
)

func serveCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the price server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := config.ValidateServer(cfg); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "config.yaml", "Path to configuration file")

	return cmd
}

func runServer(cfg *config.Config) error {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var allSources []sources.Source
	for _, sourceCfg := range cfg.Sources {
		if !sourceCfg.Enabled {
			continue
		}

		if sourceCfg.Config == nil {
			sourceCfg.Config = make(map[string]interface{})
		}
		sourceCfg.Config["logger"] = logger

		source, err := sources.Create(sourceCfg.Type, sourceCfg.Name, sourceCfg.Config)
		if err != nil {
			logger.Warn().Err(err).Str("type", sourceCfg.Type).Str("name", sourceCfg.Name).Msg("Failed to create source")
			continue
		}
		if err := source.Start(ctx); err != nil {
			logger.Warn().Err(err).Str("source", source.Name()).Msg("Failed to start source")
			continue
		}

		allSources = append(allSources, source)
		logger.Info().Str("source", source.Name()).Msg("Source started")
	}

	if len(allSources) == 0 {
		return fmt.Errorf("no sources available")
	}

	server := api.NewServer(
		cfg.Server.Addr,
		allSources,
		aggregator.NewMedianAggregator(logger),
		cfg.Server.CacheTTL.ToDuration(),
		logger,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Stop(shutdownCtx)

		for _, source := range allSources {
			_ = source.Stop()
		}
		cancel()
	}()

	return server.Start()
}

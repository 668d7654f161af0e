package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/jacksteroo/oracle-feeder/pkg/server/sources"
)

const defaultBinanceWSURL = "wss://stream.binance.com:9443/stream"

func init() {
	sources.Register("cex.binance_ws", NewBinanceStreamSourceFromConfig)
}

// BinanceStreamSource subscribes to Binance miniTicker websocket streams
// instead of polling. Reconnects with backoff when the stream drops.
type BinanceStreamSource struct {
	*sources.BaseSource

	url   string
	pairs map[string]string // exchange symbol -> currency code
}

type miniTickerEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

// NewBinanceStreamSourceFromConfig creates a BinanceStreamSource from config.
func NewBinanceStreamSourceFromConfig(config map[string]interface{}) (sources.Source, error) {
	pairs, err := pairsFromConfig(config)
	if err != nil {
		return nil, err
	}

	url := defaultBinanceWSURL
	if u, ok := config["url"].(string); ok && u != "" {
		url = u
	}

	currencies := make([]string, 0, len(pairs))
	for _, c := range pairs {
		currencies = append(currencies, c)
	}

	base := sources.NewBaseSource("binance_ws", sources.SourceTypeCEX, currencies, sources.LoggerFromConfig(config))

	return &BinanceStreamSource{
		BaseSource: base,
		url:        url,
		pairs:      pairs,
	}, nil
}

// Start opens the stream and keeps it alive in the background.
func (s *BinanceStreamSource) Start(ctx context.Context) error {
	s.Logger().Info().Int("pairs", len(s.pairs)).Msg("Starting Binance stream source")

	go s.run(ctx)
	return nil
}

func (s *BinanceStreamSource) run(ctx context.Context) {
	backoff := time.Second
	for {
		select {
		case <-s.StopChan():
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := s.stream(ctx); err != nil {
			s.Logger().Warn().Err(err).Dur("backoff", backoff).Msg("Stream dropped, reconnecting")
			s.SetHealthy(false)
		}

		select {
		case <-s.StopChan():
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// stream connects, subscribes and consumes events until the connection
// breaks or the source stops.
func (s *BinanceStreamSource) stream(ctx context.Context) error {
	streams := make([]string, 0, len(s.pairs))
	for symbol := range s.pairs {
		streams = append(streams, strings.ToLower(symbol)+"@miniTicker")
	}
	url := fmt.Sprintf("%s?streams=%s", s.url, strings.Join(streams, "/"))

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial stream: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() {
		_ = conn.Close()
	}()

	// Unblock ReadMessage when the source is stopped.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.StopChan():
		case <-ctx.Done():
		case <-done:
		}
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read stream: %w", err)
		}

		var event miniTickerEvent
		if err := json.Unmarshal(message, &event); err != nil {
			s.Logger().Debug().Err(err).Msg("Unparseable stream event")
			continue
		}

		currency, ok := s.pairs[strings.ToUpper(event.Data.Symbol)]
		if !ok {
			continue
		}
		value, err := decimal.NewFromString(event.Data.Close)
		if err != nil {
			continue
		}
		s.SetPrice(currency, value, time.Now())
	}
}

// GetPrices returns the current prices.
func (s *BinanceStreamSource) GetPrices(_ context.Context) (map[string]sources.Price, error) {
	return s.GetAllPrices(), nil
}

// Stop stops the source and closes the stream.
func (s *BinanceStreamSource) Stop() error {
	s.Close()
	return nil
}

package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jacksteroo/oracle-feeder/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	maxAge         = 30 * time.Second
)

// Price is a single observation from a price server.
type Price struct {
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
}

// response is the wire format served by price servers.
type response struct {
	CreatedAt time.Time `json:"created_at"`
	Prices    []Price   `json:"prices"`
}

// Aggregator queries all configured price servers concurrently and accepts
// the first fresh, non-empty response. Source order breaks ties among
// responses that arrive together.
type Aggregator struct {
	sources []string
	hc      *http.Client
	maxAge  time.Duration
	logger  zerolog.Logger

	now func() time.Time
}

// NewAggregator creates an aggregator over the given source URLs.
func NewAggregator(sources []string, logger zerolog.Logger) (*Aggregator, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return &Aggregator{
		sources: sources,
		hc: &http.Client{
			Timeout: requestTimeout,
		},
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Fetch returns the price list from the first source that answers with a
// fresh, non-empty response. Remaining in-flight requests are cancelled once
// a winner is chosen. If no source qualifies, the tick should be skipped.
func (a *Aggregator) Fetch(ctx context.Context) ([]Price, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		index  int
		prices []Price
		err    error
	}

	results := make(chan result, len(a.sources))
	for i, source := range a.sources {
		go func(i int, source string) {
			prices, err := a.fetchOne(ctx, source)
			results <- result{index: i, prices: prices, err: err}
		}(i, source)
	}

	// Collect results as they arrive. Responses already queued are drained
	// before picking, so that configuration order breaks ties among sources
	// that answered together.
	received := make([]*result, len(a.sources))
	reported := make([]bool, len(a.sources))
	pending := len(a.sources)
	for pending > 0 {
		var r result
		select {
		case r = <-results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		received[r.index] = &r
		pending--

		for drained := false; !drained && pending > 0; {
			select {
			case extra := <-results:
				received[extra.index] = &extra
				pending--
			default:
				drained = true
			}
		}

		for i, candidate := range received {
			if candidate == nil || candidate.err == nil || reported[i] {
				continue
			}
			a.logger.Warn().Err(candidate.err).Str("source", a.sources[i]).Msg("Price source failed")
			metrics.RecordSourceError(a.sources[i])
			reported[i] = true
		}

		for _, candidate := range received {
			if candidate != nil && candidate.err == nil {
				return candidate.prices, nil
			}
		}
	}

	return nil, ErrNoFreshPrices
}

// fetchOne queries a single price server and validates freshness.
func (a *Aggregator) fetchOne(ctx context.Context, source string) ([]Price, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("price server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data response
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if age := a.now().Sub(data.CreatedAt); age > a.maxAge {
		return nil, fmt.Errorf("stale response: created %s ago", age.Truncate(time.Second))
	}
	if len(data.Prices) == 0 {
		return nil, fmt.Errorf("empty price list")
	}

	normalized := make([]Price, 0, len(data.Prices))
	for _, p := range data.Prices {
		if p.Currency == "" {
			continue
		}
		normalized = append(normalized, Price{
			Currency: strings.ToLower(p.Currency),
			Price:    p.Price,
		})
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("no usable prices in response")
	}

	return normalized, nil
}

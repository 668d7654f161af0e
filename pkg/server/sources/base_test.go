package sources

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSourcePriceTable(t *testing.T) {
	b := NewBaseSource("test", SourceTypeCEX, []string{"krw"}, zerolog.Nop())

	assert.False(t, b.IsHealthy())
	assert.Empty(t, b.GetAllPrices())

	now := time.Now()
	b.SetPrice("krw", decimal.RequireFromString("1350.5"), now)

	assert.True(t, b.IsHealthy())
	assert.Equal(t, now, b.LastUpdate())

	prices := b.GetAllPrices()
	require.Contains(t, prices, "krw")
	assert.Equal(t, "1350.5", prices["krw"].Price.String())
	assert.Equal(t, "test", prices["krw"].Source)
}

func TestBaseSourceCloseIsIdempotent(t *testing.T) {
	b := NewBaseSource("test", SourceTypeCEX, nil, zerolog.Nop())
	b.Close()
	b.Close()

	select {
	case <-b.StopChan():
	default:
		t.Fatal("stop channel should be closed")
	}
}

func TestCurrenciesFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]interface{}
		want    []string
		wantErr error
	}{
		{
			name:   "valid list",
			config: map[string]interface{}{"currencies": []interface{}{"krw", "usd"}},
			want:   []string{"krw", "usd"},
		},
		{
			name:    "missing key",
			config:  map[string]interface{}{},
			wantErr: ErrMissingCurrencies,
		},
		{
			name:    "wrong type",
			config:  map[string]interface{}{"currencies": "krw"},
			wantErr: ErrInvalidCurrencies,
		},
		{
			name:    "empty list",
			config:  map[string]interface{}{"currencies": []interface{}{}},
			wantErr: ErrMissingCurrencies,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CurrenciesFromConfig(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry(t *testing.T) {
	Register("test.dummy", func(config map[string]interface{}) (Source, error) {
		return nil, nil
	})

	_, err := Create("test", "dummy", nil)
	assert.NoError(t, err)

	_, err = Create("test", "unknown", nil)
	assert.ErrorIs(t, err, ErrUnknownSource)

	assert.Contains(t, List(), "test.dummy")
}

package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMultiplier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		class  AssetClass
		symbol string
		want   string
		ok     bool
	}{
		{Stock, "AAPL", "1", true},
		{Option, "SPY 17Jan25 450C", "100", true},
		{Future, "ES", "50", true},
		{Future, "nq", "20", true},
		{Future, "CL Dec24", "1000", true},
		{Future, "SI", "1000", true},
		{Future, "ZB", "0", false},
		{Future, "", "0", false},
		{"Crypto", "BTC", "0", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class)+"/"+tt.symbol, func(t *testing.T) {
			got, ok := DefaultMultiplier(tt.class, tt.symbol)
			assert.Equal(t, tt.ok, ok)
			assertDec(t, tt.want, got)
		})
	}
}

func TestOptionSymbol(t *testing.T) {
	t.Parallel()

	exp := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SPY 17Jan25 450C", OptionSymbol(" spy ", Call, d("450"), exp))
	assert.Equal(t, "QQQ 17Jan25 402.5P", OptionSymbol("QQQ", Put, d("402.50"), exp))
}

func TestParsers(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]AssetClass{"stock": Stock, "Stocks": Stock, "FUTURE": Future, "options": Option} {
		got, err := ParseAssetClass(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseAssetClass("bond")
	assert.ErrorIs(t, err, ErrInvalidInput)

	for in, want := range map[string]Direction{"long": Long, "Short": Short, "BUY": Long, "sell": Short} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err = ParseDirection("flat")
	assert.ErrorIs(t, err, ErrInvalidInput)

	typ, err := ParseOptionType("c")
	require.NoError(t, err)
	assert.Equal(t, Call, typ)
	_, err = ParseOptionType("straddle")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

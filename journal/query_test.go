package journal

import (
	"context"
	"testing"
	"time"

	"github.com/rustyeddy/tradejournal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedClosed opens and fully exits one stock position per entry, closing at
// the given time with the given exit price against an entry of 100.
func seedClosed(t *testing.T, l *ledger.Ledger, symbol string, exitPrice string, closedAt time.Time) ledger.Position {
	t.Helper()

	p := mustOpen(t, l, ledger.OpenRequest{
		AssetClass: ledger.Stock, Symbol: symbol, Direction: ledger.Long,
		EntryPrice: d("100"), Quantity: 10,
	})
	mustExit(t, l, p.ID, ledger.ExitRequest{Quantity: 10, Price: d(exitPrice), Timestamp: closedAt})

	got, err := l.Get(p.ID)
	require.NoError(t, err)
	return got
}

func TestListClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	l := newTestLedger(t, j)
	ctx := context.Background()

	day := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	late := seedClosed(t, l, "AAPL", "105", day.Add(15*time.Hour))
	early := seedClosed(t, l, "MSFT", "98", day.Add(9*time.Hour))
	seedClosed(t, l, "NVDA", "120", day.Add(-time.Minute))
	seedClosed(t, l, "AMD", "90", day.Add(24*time.Hour))
	mustOpen(t, l, ledger.OpenRequest{AssetClass: ledger.Stock, Symbol: "OPEN", Direction: ledger.Long, EntryPrice: d("1"), Quantity: 1})

	got, err := j.ListClosedBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID, "oldest close first")
	assert.Equal(t, late.ID, got[1].ID)
	assert.Len(t, got[0].Exits, 1)

	total, err := j.RealizedPnLBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	// +50 and -20
	assert.True(t, d("30").Equal(total), total.String())
}

func TestListClosedBetweenEmpty(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	got, err := j.ListClosedBetween(context.Background(), t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)

	total, err := j.RealizedPnLBetween(context.Background(), t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestListBySymbol(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	l := newTestLedger(t, j)

	first := seedClosed(t, l, "AAPL", "110", t0)
	seedClosed(t, l, "MSFT", "110", t0)
	second := mustOpen(t, l, ledger.OpenRequest{AssetClass: ledger.Stock, Symbol: "AAPL", Direction: ledger.Short, EntryPrice: d("120"), Quantity: 5})

	got, err := j.ListBySymbol(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Empty(t, got[1].Exits)
}

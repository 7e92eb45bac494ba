package journal

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/tradejournal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func newTestLedger(t *testing.T, store ledger.Store) *ledger.Ledger {
	t.Helper()

	var n atomic.Int64
	return ledger.New(
		ledger.WithStore(store),
		ledger.WithIDFunc(func() string { return fmt.Sprintf("01HX%06d", n.Add(1)) }),
		ledger.WithClock(func() time.Time { return t0 }),
	)
}

func mustOpen(t *testing.T, l *ledger.Ledger, req ledger.OpenRequest) ledger.Position {
	t.Helper()
	p, err := l.Open(context.Background(), req)
	require.NoError(t, err)
	return p
}

func mustExit(t *testing.T, l *ledger.Ledger, id string, req ledger.ExitRequest) ledger.Exit {
	t.Helper()
	e, err := l.ApplyExit(context.Background(), id, req)
	require.NoError(t, err)
	return e
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('positions','exits','cash_flows')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["positions"])
	assert.True(t, found["exits"])
	assert.True(t, found["cash_flows"])
}

func TestSQLitePositionRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	l := newTestLedger(t, j)

	p := mustOpen(t, l, ledger.OpenRequest{
		AssetClass: ledger.Option,
		Symbol:     "SPY 17Jan25 450C",
		Direction:  ledger.Long,
		EntryDate:  time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		EntryPrice: d("2.50"),
		Quantity:   3,
		Reason:     "breakout",
		Strategy:   "momentum",
		Details:    "above VWAP",
		StopLoss:   decimal.NewNullDecimal(d("1.20")),
	})
	e := mustExit(t, l, p.ID, ledger.ExitRequest{
		Quantity:   2,
		Price:      d("3.40"),
		Commission: d("1.95"),
		Timestamp:  t0.Add(time.Hour),
		Notes:      "trimmed into strength",
	})

	got, err := j.LoadPosition(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, ledger.Option, got.AssetClass)
	assert.Equal(t, "SPY 17Jan25 450C", got.Symbol)
	assert.Equal(t, ledger.Long, got.Direction)
	assert.True(t, got.EntryDate.Equal(p.EntryDate))
	assert.True(t, d("2.50").Equal(got.EntryPrice))
	assert.True(t, d("100").Equal(got.Multiplier))
	assert.Equal(t, int64(3), got.OriginalQuantity)
	assert.Equal(t, int64(1), got.RemainingQuantity)
	assert.True(t, d("178.05").Equal(got.TotalRealizedPnL), got.TotalRealizedPnL.String())
	assert.Nil(t, got.ClosedAt)
	assert.Equal(t, "breakout", got.Reason)
	assert.Equal(t, "momentum", got.Strategy)
	assert.Equal(t, "above VWAP", got.Details)
	assert.True(t, got.StopLoss.Valid)
	assert.True(t, d("1.2").Equal(got.StopLoss.Decimal))
	assert.False(t, got.Target.Valid)
	assert.Equal(t, int64(2), got.Version)

	require.Len(t, got.Exits, 1)
	assert.Equal(t, e.ID, got.Exits[0].ID)
	assert.Equal(t, p.ID, got.Exits[0].PositionID)
	assert.Equal(t, int64(2), got.Exits[0].Quantity)
	assert.True(t, d("3.4").Equal(got.Exits[0].Price))
	assert.True(t, d("1.95").Equal(got.Exits[0].Commission))
	assert.True(t, d("178.05").Equal(got.Exits[0].PnL))
	assert.True(t, got.Exits[0].Timestamp.Equal(t0.Add(time.Hour)))
	assert.Equal(t, "trimmed into strength", got.Exits[0].Notes)
}

func TestSQLiteClosedPositionKeepsClosedAt(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	l := newTestLedger(t, j)

	p := mustOpen(t, l, ledger.OpenRequest{
		AssetClass: ledger.Future, Symbol: "ES", Direction: ledger.Short,
		EntryPrice: d("5000"), Quantity: 2,
	})
	mustExit(t, l, p.ID, ledger.ExitRequest{Quantity: 1, Price: d("4990"), Timestamp: t0.Add(time.Hour)})
	mustExit(t, l, p.ID, ledger.ExitRequest{Quantity: 1, Price: d("4980"), Timestamp: t0.Add(2 * time.Hour)})

	got, err := j.LoadPosition(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusClosed, got.Status())
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(t0.Add(2*time.Hour)))
	// (5000-4990)*50 + (5000-4980)*50
	assert.True(t, d("1500").Equal(got.TotalRealizedPnL))
	assert.Len(t, got.Exits, 2)
	assert.Equal(t, int64(3), got.Version)
}

func TestSQLiteLoadNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	_, err := j.LoadPosition(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ledger.ErrPositionNotFound)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestSQLiteVersionConflict(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	p := ledger.Position{
		ID: "P1", AssetClass: ledger.Stock, Symbol: "AAPL", Direction: ledger.Long,
		EntryDate: t0, EntryPrice: d("100"), OriginalQuantity: 10, RemainingQuantity: 10,
		Multiplier: d("1"), TotalRealizedPnL: decimal.Zero, Version: 1,
	}
	require.NoError(t, j.SavePosition(ctx, p))

	assert.ErrorIs(t, j.SavePosition(ctx, p), ledger.ErrVersionConflict, "duplicate insert")

	p.Version = 3
	assert.ErrorIs(t, j.SavePosition(ctx, p), ledger.ErrVersionConflict, "skipped a version")

	p.Version = 2
	p.RemainingQuantity = 5
	require.NoError(t, j.SavePosition(ctx, p))

	got, err := j.LoadPosition(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.RemainingQuantity)
	assert.Equal(t, int64(2), got.Version)
}

func TestSQLiteExitsAreAppendOnly(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()

	p := ledger.Position{
		ID: "P1", AssetClass: ledger.Stock, Symbol: "AAPL", Direction: ledger.Long,
		EntryDate: t0, EntryPrice: d("100"), OriginalQuantity: 10, RemainingQuantity: 10,
		Multiplier: d("1"), TotalRealizedPnL: decimal.Zero, Version: 1,
	}
	require.NoError(t, j.SavePosition(ctx, p))

	next, _, err := ledger.Apply(p, "E1", ledger.ExitRequest{Quantity: 4, Price: d("110"), Timestamp: t0})
	require.NoError(t, err)
	require.NoError(t, j.SavePosition(ctx, next))

	next, _, err = ledger.Apply(next, "E2", ledger.ExitRequest{Quantity: 6, Price: d("90"), Timestamp: t0.Add(time.Minute)})
	require.NoError(t, err)
	require.NoError(t, j.SavePosition(ctx, next))

	got, err := j.LoadPosition(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, got.Exits, 2)
	assert.Equal(t, "E1", got.Exits[0].ID)
	assert.Equal(t, "E2", got.Exits[1].ID)
	assert.True(t, d("-20").Equal(got.TotalRealizedPnL))
}

func TestSQLiteLedgerReload(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	l := newTestLedger(t, j)

	a := mustOpen(t, l, ledger.OpenRequest{AssetClass: ledger.Stock, Symbol: "MSFT", Direction: ledger.Long, EntryPrice: d("400"), Quantity: 10})
	b := mustOpen(t, l, ledger.OpenRequest{AssetClass: ledger.Stock, Symbol: "TSLA", Direction: ledger.Short, EntryPrice: d("200"), Quantity: 5})
	mustExit(t, l, a.ID, ledger.ExitRequest{Quantity: 10, Price: d("410"), Timestamp: t0})
	mustExit(t, l, b.ID, ledger.ExitRequest{Quantity: 2, Price: d("190"), Timestamp: t0})
	_, err := l.RecordCashFlow(ctx, ledger.CashFlow{Kind: ledger.Deposit, Amount: d("2500"), Note: "top up"})
	require.NoError(t, err)

	reloaded := ledger.New(ledger.WithStore(j))
	require.NoError(t, reloaded.Load(ctx))

	want, got := l.List(), reloaded.List()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].RemainingQuantity, got[i].RemainingQuantity)
		assert.Equal(t, want[i].Version, got[i].Version)
		assert.Len(t, got[i].Exits, len(want[i].Exits))
		assert.True(t, want[i].TotalRealizedPnL.Equal(got[i].TotalRealizedPnL))
	}
	require.Len(t, reloaded.CashFlows(), 1)
	flow := reloaded.CashFlows()[0]
	assert.Equal(t, ledger.Deposit, flow.Kind)
	assert.True(t, d("2500").Equal(flow.Amount))
	assert.Equal(t, "top up", flow.Note)

	before := l.Summary(d("10000"))
	after := reloaded.Summary(d("10000"))
	assert.True(t, before.CurrentEquity.Equal(after.CurrentEquity))
	assert.True(t, d("12620").Equal(after.CurrentEquity), after.CurrentEquity.String())

	// The reloaded ledger continues where the first one stopped.
	_, err = reloaded.ApplyExit(ctx, b.ID, ledger.ExitRequest{Quantity: 3, Price: d("180"), Timestamp: t0})
	require.NoError(t, err)
	_, err = l.ApplyExit(ctx, b.ID, ledger.ExitRequest{Quantity: 1, Price: d("180"), Timestamp: t0})
	assert.ErrorIs(t, err, ledger.ErrVersionConflict)
}

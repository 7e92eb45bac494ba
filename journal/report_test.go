package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/tradejournal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportPositions() []ledger.Position {
	closed := func(id string, ac ledger.AssetClass, symbol, pnl string) ledger.Position {
		at := t0
		return ledger.Position{
			ID: id, AssetClass: ac, Symbol: symbol, Direction: ledger.Long,
			EntryPrice: d("100"), Multiplier: d("1"), OriginalQuantity: 10,
			TotalRealizedPnL: d(pnl), ClosedAt: &at,
		}
	}
	return []ledger.Position{
		closed("a", ledger.Stock, "AAPL", "300"),
		closed("b", ledger.Stock, "MSFT", "-100"),
		closed("c", ledger.Future, "ES", "100"),
		closed("d", ledger.Option, "SPY 17Jan25 450C", "-50"),
		{ID: "e", AssetClass: ledger.Stock, Symbol: "OPEN", OriginalQuantity: 2, RemainingQuantity: 2, EntryPrice: d("1"), Multiplier: d("1"), TotalRealizedPnL: d("20")},
	}
}

func TestNewReport(t *testing.T) {
	t.Parallel()

	acct := ledger.Account{InitialCapital: d("10000"), Deposits: d("500"), Withdrawals: d("500")}
	r := NewReport("March", "USD", reportPositions(), acct, t0)

	assert.Equal(t, 4, r.Overall.Count)
	assert.True(t, d("250").Equal(r.Overall.TotalPnL))
	assert.True(t, d("270").Equal(r.Account.RealizedPnL), "open positions count toward account P&L")
	assert.True(t, d("10270").Equal(r.Account.CurrentEquity))

	require.Len(t, r.Classes, 3)
	assert.Equal(t, ledger.Stock, r.Classes[0].Class)
	assert.Equal(t, 2, r.Classes[0].Count)
	assert.Equal(t, ledger.Future, r.Classes[1].Class)
	assert.Equal(t, ledger.Option, r.Classes[2].Class)

	require.NotNil(t, r.Best)
	require.NotNil(t, r.Worst)
	assert.Equal(t, "AAPL", r.Best.Symbol)
	assert.Equal(t, "MSFT", r.Worst.Symbol)
}

func TestNewReportSingleClassHasNoBreakdown(t *testing.T) {
	t.Parallel()

	r := NewReport("", "USD", reportPositions()[:2], ledger.Account{InitialCapital: d("1000")}, t0)
	assert.Empty(t, r.Classes)
}

func TestReportWriteOrg(t *testing.T) {
	t.Parallel()

	r := NewReport("March", "USD", reportPositions(), ledger.Account{InitialCapital: d("10000")}, t0)
	r.Notes = []string{"cut losers faster"}

	var buf bytes.Buffer
	require.NoError(t, r.WriteOrg(&buf))
	out := buf.String()

	assert.Contains(t, out, "* REPORT: March")
	assert.Contains(t, out, ":GENERATED:   [2024-03-15 Fri 14:30]")
	assert.Contains(t, out, ":CURRENCY:    USD")
	assert.Contains(t, out, ":START_DATE:  -")
	assert.Contains(t, out, ":TRADES:      4")
	assert.Contains(t, out, ":WIN_RATE:    50.00")
	assert.Contains(t, out, ":NET_PNL:     250.00")
	assert.Contains(t, out, ":PROFIT_FAC:  2.67")
	assert.Contains(t, out, "| Current Equity    | 10270.00 |")
	assert.Contains(t, out, "| Return on Capital | 2.70% |")
	assert.Contains(t, out, "- Average Win:      *200.00*")
	assert.Contains(t, out, "- Average Loss:     *-75.00*")
	assert.Contains(t, out, "** By Asset Class")
	assert.Contains(t, out, "| Future | 1 | 100.00 | 100.00 | 100.00 | - | ∞ |")
	assert.Contains(t, out, "- Best:  AAPL 300.00")
	assert.Contains(t, out, "- Worst: MSFT -100.00")
	assert.Contains(t, out, "- cut losers faster")
}

func TestReportWriteOrgEmpty(t *testing.T) {
	t.Parallel()

	r := NewReport("", "", nil, ledger.Account{InitialCapital: d("5000")}, t0)

	var buf bytes.Buffer
	require.NoError(t, r.WriteOrg(&buf))
	out := buf.String()

	assert.Contains(t, out, "* REPORT: Trading Journal")
	assert.Contains(t, out, ":CURRENCY:    (currency?)")
	assert.Contains(t, out, "No closed trades yet.")
	assert.Contains(t, out, ":PROFIT_FAC:  0.00")
	assert.NotContains(t, out, "** By Asset Class")
	assert.NotContains(t, out, "** Extremes")
}

func TestReportWriteOrgFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.org")
	r := NewReport("File", "USD", reportPositions(), ledger.Account{InitialCapital: d("10000")}, time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, r.WriteOrgFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "* REPORT: File")
}

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustedCapital(t *testing.T) {
	t.Parallel()

	a := AccountFromFlows(d("10000"), []CashFlow{
		{Kind: Deposit, Amount: d("500")},
		{Kind: Withdrawal, Amount: d("200")},
		{Kind: Deposit, Amount: d("100")},
	})
	assertDec(t, "600", a.Deposits)
	assertDec(t, "200", a.Withdrawals)
	assertDec(t, "10400", a.AdjustedCapital())
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		initial    string
		flows      []CashFlow
		positions  []Position
		wantAdj    string
		wantPnL    string
		wantEquity string
		wantReturn string
	}{
		{
			name:       "no trades",
			initial:    "10000",
			wantAdj:    "10000",
			wantPnL:    "0",
			wantEquity: "10000",
			wantReturn: "0",
		},
		{
			name:    "closed and partially exited positions both count",
			initial: "10000",
			positions: []Position{
				closedPosition("a", Stock, "300", t0),
				openPosition("b", Future, "200"),
			},
			wantAdj:    "10000",
			wantPnL:    "500",
			wantEquity: "10500",
			wantReturn: "5",
		},
		{
			name:    "cash flows adjust the base",
			initial: "8000",
			flows: []CashFlow{
				{Kind: Deposit, Amount: d("3000")},
				{Kind: Withdrawal, Amount: d("1000")},
			},
			positions:  []Position{closedPosition("a", Stock, "-1000", t0)},
			wantAdj:    "10000",
			wantPnL:    "-1000",
			wantEquity: "9000",
			wantReturn: "-10",
		},
		{
			name:       "non-positive capital yields zero return",
			initial:    "0",
			positions:  []Position{closedPosition("a", Stock, "50", t0)},
			wantAdj:    "0",
			wantPnL:    "50",
			wantEquity: "50",
			wantReturn: "0",
		},
		{
			name:       "withdrawn below zero",
			initial:    "100",
			flows:      []CashFlow{{Kind: Withdrawal, Amount: d("150")}},
			positions:  []Position{closedPosition("a", Stock, "10", t0)},
			wantAdj:    "-50",
			wantPnL:    "10",
			wantEquity: "-40",
			wantReturn: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(AccountFromFlows(d(tt.initial), tt.flows), tt.positions)
			assertDec(t, tt.wantAdj, s.AdjustedCapital)
			assertDec(t, tt.wantPnL, s.RealizedPnL)
			assertDec(t, tt.wantEquity, s.CurrentEquity)
			assertDec(t, tt.wantReturn, s.ReturnOnCapitalPct)
		})
	}
}

func TestLedgerSummary(t *testing.T) {
	t.Parallel()

	l := newLedger(t)
	p := openStock(t, l, Long, "50", 10)
	exit(t, l, p.ID, 4, "60")

	_, err := l.RecordCashFlow(context.Background(), CashFlow{Kind: Deposit, Amount: d("1000"), Time: t0.Add(time.Hour)})
	require.NoError(t, err)

	s := l.Summary(d("9000"))
	assertDec(t, "10000", s.AdjustedCapital)
	assertDec(t, "40", s.RealizedPnL)
	assertDec(t, "10040", s.CurrentEquity)
	assertDec(t, "0.4", s.ReturnOnCapitalPct)
	assert.Len(t, l.CashFlows(), 1)
}

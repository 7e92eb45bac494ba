package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashFlowKind string

const (
	Deposit    CashFlowKind = "deposit"
	Withdrawal CashFlowKind = "withdrawal"
)

// CashFlow is a deposit into or withdrawal from the trading account.
type CashFlow struct {
	ID     string
	Kind   CashFlowKind
	Amount decimal.Decimal // always positive
	Time   time.Time
	Note   string
}

// Account is the capital base returns are measured against.
type Account struct {
	InitialCapital decimal.Decimal
	Deposits       decimal.Decimal
	Withdrawals    decimal.Decimal
}

// AccountFromFlows folds cash flows into the starting capital.
func AccountFromFlows(initial decimal.Decimal, flows []CashFlow) Account {
	a := Account{InitialCapital: initial, Deposits: decimal.Zero, Withdrawals: decimal.Zero}
	for _, f := range flows {
		a = a.Apply(f)
	}
	return a
}

func (a Account) Apply(f CashFlow) Account {
	switch f.Kind {
	case Deposit:
		a.Deposits = a.Deposits.Add(f.Amount)
	case Withdrawal:
		a.Withdrawals = a.Withdrawals.Add(f.Amount)
	}
	return a
}

func (a Account) AdjustedCapital() decimal.Decimal {
	return a.InitialCapital.Add(a.Deposits).Sub(a.Withdrawals)
}

type AccountSummary struct {
	AdjustedCapital    decimal.Decimal
	RealizedPnL        decimal.Decimal
	CurrentEquity      decimal.Decimal
	ReturnOnCapitalPct decimal.Decimal
}

// Summarize sums realized P&L over every position, open or closed, since a
// partial exit locks in P&L before the position is closed.
func Summarize(a Account, ps []Position) AccountSummary {
	realized := decimal.Zero
	for _, p := range ps {
		realized = realized.Add(p.TotalRealizedPnL)
	}
	adjusted := a.AdjustedCapital()

	s := AccountSummary{
		AdjustedCapital:    adjusted,
		RealizedPnL:        realized,
		CurrentEquity:      adjusted.Add(realized),
		ReturnOnCapitalPct: decimal.Zero,
	}
	if adjusted.IsPositive() {
		s.ReturnOnCapitalPct = realized.Div(adjusted).Mul(hundred)
	}
	return s
}

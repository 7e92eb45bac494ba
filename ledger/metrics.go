package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Performance summarizes a set of closed positions.
type Performance struct {
	Count     int
	WinCount  int
	LossCount int

	// WinRate is a percentage, 0 for an empty set.
	WinRate decimal.Decimal

	// AvgWin and AvgLoss are invalid when there are no winners / losers.
	AvgWin  decimal.NullDecimal
	AvgLoss decimal.NullDecimal

	TotalPnL    decimal.Decimal
	GrossProfit decimal.Decimal
	GrossLoss   decimal.Decimal // absolute value

	// ProfitFactor = GrossProfit / GrossLoss. When nothing was lost but
	// something was won the ratio is unbounded and ProfitFactor is zero.
	ProfitFactor          decimal.Decimal
	ProfitFactorUnbounded bool
}

// ProfitFactorString renders the profit factor, using ∞ for the unbounded case.
func (p Performance) ProfitFactorString() string {
	if p.ProfitFactorUnbounded {
		return "∞"
	}
	return p.ProfitFactor.StringFixed(2)
}

// AggregatePerformance computes win/loss statistics over the closed
// positions in ps. Open positions are ignored. A position counts as a win
// when its total realized P&L is strictly positive.
func AggregatePerformance(ps []Position) Performance {
	perf := Performance{
		WinRate:      decimal.Zero,
		TotalPnL:     decimal.Zero,
		GrossProfit:  decimal.Zero,
		GrossLoss:    decimal.Zero,
		ProfitFactor: decimal.Zero,
	}

	lossSum := decimal.Zero
	for _, p := range ps {
		if p.IsOpen() {
			continue
		}
		perf.Count++
		pnl := p.TotalRealizedPnL
		perf.TotalPnL = perf.TotalPnL.Add(pnl)
		if pnl.IsPositive() {
			perf.WinCount++
			perf.GrossProfit = perf.GrossProfit.Add(pnl)
		} else {
			perf.LossCount++
			lossSum = lossSum.Add(pnl)
		}
	}
	perf.GrossLoss = lossSum.Abs()

	if perf.Count == 0 {
		return perf
	}

	perf.WinRate = decimal.NewFromInt(int64(perf.WinCount)).Mul(hundred).
		Div(decimal.NewFromInt(int64(perf.Count)))

	if perf.WinCount > 0 {
		perf.AvgWin = decimal.NewNullDecimal(perf.GrossProfit.Div(decimal.NewFromInt(int64(perf.WinCount))))
	}
	if perf.LossCount > 0 {
		perf.AvgLoss = decimal.NewNullDecimal(lossSum.Div(decimal.NewFromInt(int64(perf.LossCount))))
	}

	switch {
	case !perf.GrossLoss.IsZero():
		perf.ProfitFactor = perf.GrossProfit.Div(perf.GrossLoss)
	case perf.WinCount > 0:
		perf.ProfitFactorUnbounded = true
	}
	return perf
}

// InvestedValue is the cost basis of the whole original quantity.
func InvestedValue(p Position) decimal.Decimal {
	return decimal.NewFromInt(p.OriginalQuantity).Mul(p.EntryPrice).Mul(p.Multiplier)
}

// ReturnPct is realized P&L as a percentage of invested value, or 0 when
// nothing was invested.
func ReturnPct(p Position) decimal.Decimal {
	invested := InvestedValue(p)
	if invested.IsZero() {
		return decimal.Zero
	}
	return p.TotalRealizedPnL.Div(invested).Mul(hundred)
}

// ExitReturnPct is one exit's P&L against the cost basis of the quantity it
// closed.
func ExitReturnPct(p Position, e Exit) decimal.Decimal {
	basis := decimal.NewFromInt(e.Quantity).Mul(p.EntryPrice).Mul(p.Multiplier)
	if basis.IsZero() {
		return decimal.Zero
	}
	return e.PnL.Div(basis).Mul(hundred)
}

// AverageExitPrice is the quantity-weighted mean exit price. It is invalid
// when the position has no exits.
func AverageExitPrice(p Position) decimal.NullDecimal {
	var qty int64
	notional := decimal.Zero
	for _, e := range p.Exits {
		qty += e.Quantity
		notional = notional.Add(e.Price.Mul(decimal.NewFromInt(e.Quantity)))
	}
	if qty == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(notional.Div(decimal.NewFromInt(qty)))
}

// GroupByAssetClass partitions ps by asset class, preserving relative order.
func GroupByAssetClass(ps []Position) map[AssetClass][]Position {
	out := make(map[AssetClass][]Position)
	for _, p := range ps {
		out[p.AssetClass] = append(out[p.AssetClass], p)
	}
	return out
}

// PresentAssetClasses returns the distinct asset classes in ps in order of
// first appearance.
func PresentAssetClasses(ps []Position) []AssetClass {
	seen := make(map[AssetClass]bool)
	var out []AssetClass
	for _, p := range ps {
		if !seen[p.AssetClass] {
			seen[p.AssetClass] = true
			out = append(out, p.AssetClass)
		}
	}
	return out
}

// SortByClose orders ps newest close first. Open positions sort last.
func SortByClose(ps []Position) []Position {
	out := make([]Position, len(ps))
	copy(out, ps)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ClosedAt, out[j].ClosedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return out
}

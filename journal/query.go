package journal

import (
	"context"
	"slices"
	"time"

	"github.com/rustyeddy/tradejournal/ledger"
	"github.com/shopspring/decimal"
)

// ListClosedBetween returns positions whose closed_at is within [start, end),
// oldest close first.
func (j *SQLite) ListClosedBetween(ctx context.Context, start, end time.Time) ([]ledger.Position, error) {
	ps, err := j.queryPositions(ctx,
		"WHERE closed_at IS NOT NULL AND closed_at >= ? AND closed_at < ?", start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(ps, func(a, b ledger.Position) int {
		return a.ClosedAt.Compare(*b.ClosedAt)
	})
	return ps, nil
}

// ListBySymbol returns every position on symbol, in open order.
func (j *SQLite) ListBySymbol(ctx context.Context, symbol string) ([]ledger.Position, error) {
	return j.queryPositions(ctx, "WHERE symbol = ?", symbol)
}

// RealizedPnLBetween totals realized P&L over positions closed in [start, end).
func (j *SQLite) RealizedPnLBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	ps, err := j.ListClosedBetween(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(p.TotalRealizedPnL)
	}
	return total, nil
}

package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/tradejournal/ledger"
)

var (
	positionHeader = []string{
		"position_id", "asset_class", "symbol", "direction", "entry_date", "entry_price",
		"quantity", "remaining", "multiplier", "avg_exit_price", "closed_at",
		"realized_pnl", "return_pct", "strategy", "reason",
	}
	exitHeader = []string{
		"exit_id", "position_id", "symbol", "timestamp", "quantity", "price",
		"commission", "pnl", "return_pct", "notes",
	}
)

// CSVWriter exports positions to one file and their exits to another.
type CSVWriter struct {
	positions *csv.Writer
	exits     *csv.Writer
	pf, ef    *os.File
}

func NewCSV(positionsPath, exitsPath string) (*CSVWriter, error) {
	pf, err := os.Create(positionsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(exitsPath)
	if err != nil {
		_ = pf.Close()
		return nil, err
	}

	w := &CSVWriter{positions: csv.NewWriter(pf), exits: csv.NewWriter(ef), pf: pf, ef: ef}
	if err := w.positions.Write(positionHeader); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.exits.Write(exitHeader); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

// WritePosition writes one position row and a row per exit.
func (w *CSVWriter) WritePosition(p ledger.Position) error {
	closedAt := ""
	if p.ClosedAt != nil {
		closedAt = p.ClosedAt.UTC().Format(time.RFC3339)
	}
	avgExit := ""
	if avg := ledger.AverageExitPrice(p); avg.Valid {
		avgExit = avg.Decimal.StringFixed(4)
	}

	err := w.positions.Write([]string{
		p.ID,
		string(p.AssetClass),
		p.Symbol,
		string(p.Direction),
		p.EntryDate.Format(time.DateOnly),
		p.EntryPrice.String(),
		strconv.FormatInt(p.OriginalQuantity, 10),
		strconv.FormatInt(p.RemainingQuantity, 10),
		p.Multiplier.String(),
		avgExit,
		closedAt,
		p.TotalRealizedPnL.StringFixed(2),
		ledger.ReturnPct(p).StringFixed(2),
		p.Strategy,
		p.Reason,
	})
	if err != nil {
		return err
	}

	for _, e := range p.Exits {
		if err := w.exits.Write([]string{
			e.ID,
			p.ID,
			p.Symbol,
			e.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.Quantity, 10),
			e.Price.String(),
			e.Commission.StringFixed(2),
			e.PnL.StringFixed(2),
			ledger.ExitReturnPct(p, e).StringFixed(2),
			e.Notes,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) WriteAll(ps []ledger.Position) error {
	for _, p := range ps {
		if err := w.WritePosition(p); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) Close() error {
	w.positions.Flush()
	if err := w.positions.Error(); err != nil {
		return err
	}
	w.exits.Flush()
	if err := w.exits.Error(); err != nil {
		return err
	}

	if err := w.pf.Close(); err != nil {
		return err
	}
	return w.ef.Close()
}

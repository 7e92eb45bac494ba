package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradejournal/ledger"
)

// BlobWriter is the upload side the archiver needs. *Writer satisfies it.
type BlobWriter interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
}

// positionRecord is the JSONL shape of an archived position.
type positionRecord struct {
	ID               string           `json:"id"`
	AssetClass       string           `json:"asset_class"`
	Symbol           string           `json:"symbol"`
	Direction        string           `json:"direction"`
	EntryDate        time.Time        `json:"entry_date"`
	EntryPrice       decimal.Decimal  `json:"entry_price"`
	Quantity         int64            `json:"quantity"`
	Multiplier       decimal.Decimal  `json:"multiplier"`
	AvgExitPrice     *decimal.Decimal `json:"avg_exit_price,omitempty"`
	TotalRealizedPnL decimal.Decimal  `json:"total_realized_pnl"`
	ReturnPct        decimal.Decimal  `json:"return_pct"`
	ClosedAt         time.Time        `json:"closed_at"`
	ExitCount        int              `json:"exit_count"`
	Strategy         string           `json:"strategy,omitempty"`
	Reason           string           `json:"reason,omitempty"`
}

type exitRecord struct {
	ID         string          `json:"id"`
	PositionID string          `json:"position_id"`
	Symbol     string          `json:"symbol"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	PnL        decimal.Decimal `json:"pnl"`
	Timestamp  time.Time       `json:"timestamp"`
	Notes      string          `json:"notes,omitempty"`
}

// ArchiveResult summarizes one Archive call.
type ArchiveResult struct {
	Positions int
	Exits     int
	Keys      []string
}

// Archiver writes closed positions and their exits as JSONL, one object per
// kind per close month:
//
//	<prefix>/positions/2024-03.jsonl
//	<prefix>/exits/2024-03.jsonl
//
// Archived positions are not removed from the primary store.
type Archiver struct {
	writer BlobWriter
	prefix string
	log    *slog.Logger

	// Concurrency caps in-flight uploads.
	Concurrency int
}

func NewArchiver(writer BlobWriter, prefix string, log *slog.Logger) *Archiver {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Archiver{writer: writer, prefix: prefix, log: log, Concurrency: 4}
}

// Archive uploads every closed position in ps that closed before cutoff.
// Open positions are skipped.
func (a *Archiver) Archive(ctx context.Context, ps []ledger.Position, cutoff time.Time) (ArchiveResult, error) {
	months := make(map[string][]ledger.Position)
	for _, p := range ps {
		if p.IsOpen() || p.ClosedAt == nil || !p.ClosedAt.Before(cutoff) {
			continue
		}
		m := p.ClosedAt.UTC().Format("2006-01")
		months[m] = append(months[m], p)
	}

	var (
		res ArchiveResult
		mu  sync.Mutex
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.Concurrency, 1))

	for month, batch := range months {
		positions := make([]positionRecord, 0, len(batch))
		var exits []exitRecord
		for _, p := range batch {
			positions = append(positions, toPositionRecord(p))
			for _, e := range p.Exits {
				exits = append(exits, toExitRecord(p, e))
			}
		}

		posBuf, err := marshalJSONL(positions)
		if err != nil {
			return ArchiveResult{}, fmt.Errorf("s3blob: archive positions marshal: %w", err)
		}
		exitBuf, err := marshalJSONL(exits)
		if err != nil {
			return ArchiveResult{}, fmt.Errorf("s3blob: archive exits marshal: %w", err)
		}

		upload := func(kind string, buf []byte, n int) {
			key := a.key(kind, month)
			g.Go(func() error {
				if err := a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
					return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
				}
				a.log.Debug("archive uploaded", "key", key, "records", n)

				mu.Lock()
				defer mu.Unlock()
				res.Keys = append(res.Keys, key)
				return nil
			})
		}
		upload("positions", posBuf, len(positions))
		if len(exits) > 0 {
			upload("exits", exitBuf, len(exits))
		}

		res.Positions += len(positions)
		res.Exits += len(exits)
	}

	if err := g.Wait(); err != nil {
		return ArchiveResult{}, err
	}
	slices.Sort(res.Keys)

	a.log.Info("archive complete",
		"positions", res.Positions,
		"exits", res.Exits,
		"objects", len(res.Keys),
		"cutoff", cutoff.Format(time.RFC3339),
	)
	return res, nil
}

func (a *Archiver) key(kind, month string) string {
	return path.Join(a.prefix, kind, month+".jsonl")
}

func toPositionRecord(p ledger.Position) positionRecord {
	r := positionRecord{
		ID:               p.ID,
		AssetClass:       string(p.AssetClass),
		Symbol:           p.Symbol,
		Direction:        string(p.Direction),
		EntryDate:        p.EntryDate.UTC(),
		EntryPrice:       p.EntryPrice,
		Quantity:         p.OriginalQuantity,
		Multiplier:       p.Multiplier,
		TotalRealizedPnL: p.TotalRealizedPnL,
		ReturnPct:        ledger.ReturnPct(p).Round(4),
		ClosedAt:         p.ClosedAt.UTC(),
		ExitCount:        len(p.Exits),
		Strategy:         p.Strategy,
		Reason:           p.Reason,
	}
	if avg := ledger.AverageExitPrice(p); avg.Valid {
		v := avg.Decimal.Round(6)
		r.AvgExitPrice = &v
	}
	return r
}

func toExitRecord(p ledger.Position, e ledger.Exit) exitRecord {
	return exitRecord{
		ID:         e.ID,
		PositionID: p.ID,
		Symbol:     p.Symbol,
		Quantity:   e.Quantity,
		Price:      e.Price,
		Commission: e.Commission,
		PnL:        e.PnL,
		Timestamp:  e.Timestamp.UTC(),
		Notes:      e.Notes,
	}
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

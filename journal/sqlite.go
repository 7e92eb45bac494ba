// Package journal is the durable SQLite side of the trading journal: a
// ledger.Store plus the CSV, Org-mode and report exports built on top of it.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/tradejournal/ledger"
)

// SQLite stores positions, exits and cash flows in a single database file.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

var _ ledger.Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// One writer at a time; SQLite serializes them anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &SQLite{db: db, log: slog.Default().With("store", "sqlite")}, nil
}

// DB exposes the handle for ad-hoc reporting queries.
func (j *SQLite) DB() *sql.DB {
	return j.db
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

const positionColumns = `id, asset_class, symbol, direction, entry_date, entry_price,
	original_quantity, remaining_quantity, multiplier, total_realized_pnl, closed_at,
	reason, strategy, details, stop_loss, target, version`

const exitColumns = `id, position_id, quantity, price, commission, pnl, timestamp, notes`

// SavePosition inserts a new position (Version 1) or updates an existing one
// whose stored version is p.Version-1. New exits are appended in the same
// transaction.
func (j *SQLite) SavePosition(ctx context.Context, p ledger.Position) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: save position %s: %w", p.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	closedAt := sql.NullTime{}
	if p.ClosedAt != nil {
		closedAt = sql.NullTime{Time: p.ClosedAt.UTC(), Valid: true}
	}

	if p.Version == 1 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO positions (`+positionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, string(p.AssetClass), p.Symbol, string(p.Direction), p.EntryDate.UTC(), p.EntryPrice,
			p.OriginalQuantity, p.RemainingQuantity, p.Multiplier, p.TotalRealizedPnL, closedAt,
			p.Reason, p.Strategy, p.Details, p.StopLoss, p.Target, p.Version,
		)
		if isConstraintError(err) {
			return ledger.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("sqlite: insert position %s: %w", p.ID, err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE positions SET
				remaining_quantity = ?, total_realized_pnl = ?, closed_at = ?,
				reason = ?, strategy = ?, details = ?, stop_loss = ?, target = ?,
				version = ?
			WHERE id = ? AND version = ?`,
			p.RemainingQuantity, p.TotalRealizedPnL, closedAt,
			p.Reason, p.Strategy, p.Details, p.StopLoss, p.Target,
			p.Version, p.ID, p.Version-1,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update position %s: %w", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: update position %s: %w", p.ID, err)
		}
		if n == 0 {
			return ledger.ErrVersionConflict
		}
	}

	for _, e := range p.Exits {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO exits (`+exitColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, p.ID, e.Quantity, e.Price, e.Commission, e.PnL, e.Timestamp.UTC(), e.Notes,
		); err != nil {
			return fmt.Errorf("sqlite: insert exit %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit position %s: %w", p.ID, err)
	}
	j.log.Debug("position saved", "position_id", p.ID, "version", p.Version)
	return nil
}

// LoadPosition returns one position with its exits, or ledger.ErrPositionNotFound.
func (j *SQLite) LoadPosition(ctx context.Context, id string) (ledger.Position, error) {
	ps, err := j.queryPositions(ctx, "WHERE id = ?", id)
	if err != nil {
		return ledger.Position{}, err
	}
	if len(ps) == 0 {
		return ledger.Position{}, fmt.Errorf("position %q: %w", id, ledger.ErrPositionNotFound)
	}
	return ps[0], nil
}

// ListPositions returns every position in the order it was opened.
func (j *SQLite) ListPositions(ctx context.Context) ([]ledger.Position, error) {
	return j.queryPositions(ctx, "")
}

func (j *SQLite) SaveCashFlow(ctx context.Context, f ledger.CashFlow) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO cash_flows (id, kind, amount, time, note)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, string(f.Kind), f.Amount, f.Time.UTC(), f.Note,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save cash flow %s: %w", f.ID, err)
	}
	return nil
}

func (j *SQLite) ListCashFlows(ctx context.Context) ([]ledger.CashFlow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, amount, time, note
		FROM cash_flows
		ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list cash flows: %w", err)
	}
	defer rows.Close()

	var out []ledger.CashFlow
	for rows.Next() {
		var (
			f    ledger.CashFlow
			kind string
		)
		if err := rows.Scan(&f.ID, &kind, &f.Amount, &f.Time, &f.Note); err != nil {
			return nil, fmt.Errorf("sqlite: scan cash flow: %w", err)
		}
		f.Kind = ledger.CashFlowKind(kind)
		f.Time = f.Time.UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

// queryPositions loads the positions matching where (a clause over the
// positions table) and attaches their exits in recorded order.
func (j *SQLite) queryPositions(ctx context.Context, where string, args ...any) ([]ledger.Position, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+positionColumns+` FROM positions `+where+` ORDER BY seq ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query positions: %w", err)
	}

	var (
		out   []ledger.Position
		index = make(map[string]int)
	)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: query positions: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}

	erows, err := j.db.QueryContext(ctx,
		`SELECT `+exitColumns+` FROM exits
		WHERE position_id IN (SELECT id FROM positions `+where+`)
		ORDER BY seq ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query exits: %w", err)
	}
	defer erows.Close()

	for erows.Next() {
		var e ledger.Exit
		if err := erows.Scan(&e.ID, &e.PositionID, &e.Quantity, &e.Price, &e.Commission,
			&e.PnL, &e.Timestamp, &e.Notes); err != nil {
			return nil, fmt.Errorf("sqlite: scan exit: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		if i, ok := index[e.PositionID]; ok {
			out[i].Exits = append(out[i].Exits, e)
		}
	}
	if err := erows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: query exits: %w", err)
	}
	return out, nil
}

func scanPosition(rows *sql.Rows) (ledger.Position, error) {
	var (
		p         ledger.Position
		class     string
		direction string
		closedAt  sql.NullTime
	)
	err := rows.Scan(
		&p.ID, &class, &p.Symbol, &direction, &p.EntryDate, &p.EntryPrice,
		&p.OriginalQuantity, &p.RemainingQuantity, &p.Multiplier, &p.TotalRealizedPnL, &closedAt,
		&p.Reason, &p.Strategy, &p.Details, &p.StopLoss, &p.Target, &p.Version,
	)
	if err != nil {
		return ledger.Position{}, fmt.Errorf("sqlite: scan position: %w", err)
	}
	p.AssetClass = ledger.AssetClass(class)
	p.Direction = ledger.Direction(direction)
	p.EntryDate = p.EntryDate.UTC()
	if closedAt.Valid {
		t := closedAt.Time.UTC()
		p.ClosedAt = &t
	}
	return p, nil
}

func isConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

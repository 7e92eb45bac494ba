package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rustyeddy/tradejournal/ledger"
)

// PositionStore implements ledger.Store using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*PositionStore)(nil)

func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, asset_class, symbol, direction, entry_date, entry_price,
	original_quantity, remaining_quantity, multiplier, total_realized_pnl, closed_at,
	reason, strategy, details, stop_loss, target, version`

const exitSelectCols = `id, position_id, quantity, price, commission, pnl, ts, notes`

func scanPosition(row pgx.Row) (ledger.Position, error) {
	var (
		p                ledger.Position
		class, direction string
	)
	err := row.Scan(
		&p.ID, &class, &p.Symbol, &direction, &p.EntryDate, &p.EntryPrice,
		&p.OriginalQuantity, &p.RemainingQuantity, &p.Multiplier, &p.TotalRealizedPnL, &p.ClosedAt,
		&p.Reason, &p.Strategy, &p.Details, &p.StopLoss, &p.Target, &p.Version,
	)
	if err != nil {
		return ledger.Position{}, err
	}
	p.AssetClass = ledger.AssetClass(class)
	p.Direction = ledger.Direction(direction)
	p.EntryDate = p.EntryDate.UTC()
	if p.ClosedAt != nil {
		t := p.ClosedAt.UTC()
		p.ClosedAt = &t
	}
	return p, nil
}

func scanExitRows(rows pgx.Rows) ([]ledger.Exit, error) {
	var exits []ledger.Exit
	for rows.Next() {
		var e ledger.Exit
		if err := rows.Scan(&e.ID, &e.PositionID, &e.Quantity, &e.Price, &e.Commission,
			&e.PnL, &e.Timestamp, &e.Notes); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		exits = append(exits, e)
	}
	return exits, rows.Err()
}

// SavePosition inserts a Version 1 position, or updates the stored row when
// its version is p.Version-1. Exits not yet stored are appended in the same
// transaction.
func (s *PositionStore) SavePosition(ctx context.Context, p ledger.Position) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: save position %s: %w", p.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if p.Version == 1 {
		const query = `
			INSERT INTO positions (` + positionSelectCols + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
		_, err := tx.Exec(ctx, query,
			p.ID, string(p.AssetClass), p.Symbol, string(p.Direction), p.EntryDate, p.EntryPrice,
			p.OriginalQuantity, p.RemainingQuantity, p.Multiplier, p.TotalRealizedPnL, p.ClosedAt,
			p.Reason, p.Strategy, p.Details, p.StopLoss, p.Target, p.Version,
		)
		if isDuplicateKeyError(err) {
			return ledger.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
		}
	} else {
		const query = `
			UPDATE positions SET
				remaining_quantity = $2,
				total_realized_pnl = $3,
				closed_at          = $4,
				reason             = $5,
				strategy           = $6,
				details            = $7,
				stop_loss          = $8,
				target             = $9,
				version            = $10,
				updated_at         = NOW()
			WHERE id = $1 AND version = $11`
		tag, err := tx.Exec(ctx, query,
			p.ID, p.RemainingQuantity, p.TotalRealizedPnL, p.ClosedAt,
			p.Reason, p.Strategy, p.Details, p.StopLoss, p.Target,
			p.Version, p.Version-1,
		)
		if err != nil {
			return fmt.Errorf("postgres: update position %s: %w", p.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return ledger.ErrVersionConflict
		}
	}

	for _, e := range p.Exits {
		const query = `
			INSERT INTO exits (` + exitSelectCols + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`
		if _, err := tx.Exec(ctx, query,
			e.ID, p.ID, e.Quantity, e.Price, e.Commission, e.PnL, e.Timestamp, e.Notes,
		); err != nil {
			return fmt.Errorf("postgres: create exit %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit position %s: %w", p.ID, err)
	}
	return nil
}

// LoadPosition returns a position with its exits, or ledger.ErrPositionNotFound.
func (s *PositionStore) LoadPosition(ctx context.Context, id string) (ledger.Position, error) {
	p, err := scanPosition(s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Position{}, fmt.Errorf("position %q: %w", id, ledger.ErrPositionNotFound)
	}
	if err != nil {
		return ledger.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+exitSelectCols+` FROM exits WHERE position_id = $1 ORDER BY seq`, id)
	if err != nil {
		return ledger.Position{}, fmt.Errorf("postgres: list exits %s: %w", id, err)
	}
	defer rows.Close()

	p.Exits, err = scanExitRows(rows)
	if err != nil {
		return ledger.Position{}, fmt.Errorf("postgres: scan exits %s: %w", id, err)
	}
	return p, nil
}

// ListPositions returns every position in the order it was opened.
func (s *PositionStore) ListPositions(ctx context.Context) ([]ledger.Position, error) {
	return s.list(ctx, "", "ORDER BY p.seq")
}

// ListClosedBetween returns positions closed within [start, end), oldest
// close first.
func (s *PositionStore) ListClosedBetween(ctx context.Context, start, end time.Time) ([]ledger.Position, error) {
	return s.list(ctx, "WHERE p.closed_at >= $1 AND p.closed_at < $2", "ORDER BY p.closed_at, p.seq", start, end)
}

func (s *PositionStore) list(ctx context.Context, where, order string, args ...any) ([]ledger.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions p `+where+` `+order, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}

	var (
		positions []ledger.Position
		index     = make(map[string]int)
	)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		index[p.ID] = len(positions)
		positions = append(positions, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	if len(positions) == 0 {
		return positions, nil
	}

	erows, err := s.pool.Query(ctx,
		`SELECT `+exitSelectCols+` FROM exits
		WHERE position_id IN (SELECT p.id FROM positions p `+where+`)
		ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list exits: %w", err)
	}
	defer erows.Close()

	exits, err := scanExitRows(erows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan exits: %w", err)
	}
	for _, e := range exits {
		if i, ok := index[e.PositionID]; ok {
			positions[i].Exits = append(positions[i].Exits, e)
		}
	}
	return positions, nil
}

func (s *PositionStore) SaveCashFlow(ctx context.Context, f ledger.CashFlow) error {
	const query = `
		INSERT INTO cash_flows (id, kind, amount, ts, note)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, f.ID, string(f.Kind), f.Amount, f.Time, f.Note); err != nil {
		return fmt.Errorf("postgres: create cash flow %s: %w", f.ID, err)
	}
	return nil
}

func (s *PositionStore) ListCashFlows(ctx context.Context) ([]ledger.CashFlow, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, kind, amount, ts, note FROM cash_flows ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cash flows: %w", err)
	}
	defer rows.Close()

	var flows []ledger.CashFlow
	for rows.Next() {
		var (
			f    ledger.CashFlow
			kind string
		)
		if err := rows.Scan(&f.ID, &kind, &f.Amount, &f.Time, &f.Note); err != nil {
			return nil, fmt.Errorf("postgres: scan cash flow: %w", err)
		}
		f.Kind = ledger.CashFlowKind(kind)
		f.Time = f.Time.UTC()
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

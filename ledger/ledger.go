package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradejournal/internal/id"
)

const DefaultLockTTL = 10 * time.Second

// Ledger owns the positions of one journal session. It is safe for
// concurrent use; every mutation runs under a single mutex and, when a
// Locker is configured, under a per-position lock as well.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*Position
	order     []string
	flows     []CashFlow

	store   Store
	locker  Locker
	lockTTL time.Duration
	newID   func() string
	now     func() time.Time
	log     *slog.Logger
}

// LedgerOption configures a Ledger built by New.
type LedgerOption func(*Ledger)

// WithStore makes every successful mutation write through to s.
func WithStore(s Store) LedgerOption {
	return func(l *Ledger) { l.store = s }
}

// WithLocker enables cross-process serialization of exits. It only has an
// effect together with WithStore.
func WithLocker(lk Locker, ttl time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.locker = lk
		if ttl > 0 {
			l.lockTTL = ttl
		}
	}
}

// WithIDFunc overrides id generation for positions, exits and cash flows.
func WithIDFunc(f func() string) LedgerOption {
	return func(l *Ledger) { l.newID = f }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger; nil keeps the discard logger.
func WithLogger(log *slog.Logger) LedgerOption {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New returns an empty in-memory ledger. Call Load to restore state from a store.
func New(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		positions: make(map[string]*Position),
		lockTTL:   DefaultLockTTL,
		newID:     id.New,
		now:       time.Now,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the ledger contents with what the store holds.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}

	positions, err := l.store.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	flows, err := l.store.ListCashFlows(ctx)
	if err != nil {
		return fmt.Errorf("load cash flows: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions = make(map[string]*Position, len(positions))
	l.order = l.order[:0]
	for i := range positions {
		p := positions[i]
		l.positions[p.ID] = &p
		l.order = append(l.order, p.ID)
	}
	l.flows = flows

	l.log.Debug("ledger loaded", "positions", len(positions), "cash_flows", len(flows))
	return nil
}

// Open validates req and records a new open position.
func (l *Ledger) Open(ctx context.Context, req OpenRequest) (Position, error) {
	if err := req.normalize(); err != nil {
		return Position{}, fmt.Errorf("open position: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := Position{
		ID:                l.newID(),
		AssetClass:        req.AssetClass,
		Symbol:            req.Symbol,
		Direction:         req.Direction,
		EntryDate:         req.EntryDate,
		EntryPrice:        req.EntryPrice,
		OriginalQuantity:  req.Quantity,
		RemainingQuantity: req.Quantity,
		Multiplier:        req.Multiplier,
		TotalRealizedPnL:  decimal.Zero,
		Reason:            req.Reason,
		Strategy:          req.Strategy,
		Details:           req.Details,
		StopLoss:          req.StopLoss,
		Target:            req.Target,
		Version:           1,
	}
	if p.EntryDate.IsZero() {
		p.EntryDate = dateOnly(l.now())
	}
	if _, dup := l.positions[p.ID]; dup {
		return Position{}, fmt.Errorf("open position: duplicate id %s", p.ID)
	}

	if l.store != nil {
		if err := l.store.SavePosition(ctx, p); err != nil {
			return Position{}, fmt.Errorf("open position: save: %w", err)
		}
	}

	l.positions[p.ID] = &p
	l.order = append(l.order, p.ID)

	l.log.Info("position opened",
		"position_id", p.ID,
		"asset_class", p.AssetClass,
		"symbol", p.Symbol,
		"direction", p.Direction,
		"quantity", p.OriginalQuantity,
		"entry_price", p.EntryPrice.String(),
	)
	return p.clone(), nil
}

// ApplyExit closes quantity units of the position at price. The returned
// Exit carries the realized P&L net of commission.
func (l *Ledger) ApplyExit(ctx context.Context, positionID string, req ExitRequest) (Exit, error) {
	if err := req.validate(); err != nil {
		return Exit{}, fmt.Errorf("apply exit to %s: %w", positionID, err)
	}

	distributed := l.locker != nil && l.store != nil
	if distributed {
		unlock, err := l.locker.Acquire(ctx, "position:"+positionID, l.lockTTL)
		if err != nil {
			return Exit{}, fmt.Errorf("apply exit to %s: lock: %w", positionID, err)
		}
		defer unlock()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if distributed {
		if err := l.refreshLocked(ctx, positionID); err != nil {
			return Exit{}, fmt.Errorf("apply exit to %s: %w", positionID, err)
		}
	}

	cur, ok := l.positions[positionID]
	if !ok {
		return Exit{}, fmt.Errorf("apply exit to %s: %w", positionID, ErrPositionNotFound)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = l.now()
	}

	next, exit, err := Apply(*cur, l.newID(), req)
	if err != nil {
		return Exit{}, fmt.Errorf("apply exit to %s: %w", positionID, err)
	}

	if l.store != nil {
		if err := l.store.SavePosition(ctx, next); err != nil {
			return Exit{}, fmt.Errorf("apply exit to %s: save: %w", positionID, err)
		}
	}
	*cur = next

	l.log.Info("exit applied",
		"position_id", positionID,
		"symbol", next.Symbol,
		"quantity", exit.Quantity,
		"price", exit.Price.String(),
		"pnl", exit.PnL.String(),
		"remaining", next.RemainingQuantity,
	)
	if !next.IsOpen() {
		l.log.Info("position closed",
			"position_id", positionID,
			"symbol", next.Symbol,
			"total_pnl", next.TotalRealizedPnL.String(),
		)
	}
	return exit, nil
}

func (l *Ledger) refreshLocked(ctx context.Context, positionID string) error {
	p, err := l.store.LoadPosition(ctx, positionID)
	if err != nil {
		return err
	}
	if _, known := l.positions[positionID]; !known {
		l.order = append(l.order, positionID)
	}
	l.positions[positionID] = &p
	return nil
}

// Apply is the pure exit transition: it returns the position after the exit
// and the exit itself, or an error leaving p untouched.
func Apply(p Position, exitID string, req ExitRequest) (Position, Exit, error) {
	if err := req.validate(); err != nil {
		return Position{}, Exit{}, err
	}
	if !p.IsOpen() {
		return Position{}, Exit{}, ErrPositionAlreadyClosed
	}
	if req.Quantity > p.RemainingQuantity {
		return Position{}, Exit{}, fmt.Errorf("%w: exit %d, remaining %d",
			ErrQuantityExceedsRemaining, req.Quantity, p.RemainingQuantity)
	}

	exit := Exit{
		ID:         exitID,
		PositionID: p.ID,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Commission: req.Commission,
		PnL:        ExitPnL(p.Direction, p.EntryPrice, req.Price, req.Quantity, p.Multiplier, req.Commission),
		Timestamp:  req.Timestamp,
		Notes:      req.Notes,
	}

	next := p.clone()
	next.Exits = append(next.Exits, exit)
	next.RemainingQuantity -= exit.Quantity
	next.TotalRealizedPnL = next.TotalRealizedPnL.Add(exit.PnL)
	next.Version++
	if next.RemainingQuantity == 0 {
		closed := exit.Timestamp
		next.ClosedAt = &closed
	}
	return next, exit, nil
}

// ExitPnL is the net realized P&L of closing qty units at price.
func ExitPnL(dir Direction, entry, price decimal.Decimal, qty int64, multiplier, commission decimal.Decimal) decimal.Decimal {
	move := price.Sub(entry)
	if dir == Short {
		move = entry.Sub(price)
	}
	gross := move.Mul(decimal.NewFromInt(qty)).Mul(multiplier)
	return gross.Sub(commission)
}

// RecordCashFlow journals a deposit or withdrawal.
func (l *Ledger) RecordCashFlow(ctx context.Context, f CashFlow) (CashFlow, error) {
	if f.Kind != Deposit && f.Kind != Withdrawal {
		return CashFlow{}, fmt.Errorf("record cash flow: %w: unknown kind %q", ErrInvalidInput, f.Kind)
	}
	if !f.Amount.IsPositive() {
		return CashFlow{}, fmt.Errorf("record cash flow: %w: amount must be positive", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if f.ID == "" {
		f.ID = l.newID()
	}
	if f.Time.IsZero() {
		f.Time = l.now()
	}
	if l.store != nil {
		if err := l.store.SaveCashFlow(ctx, f); err != nil {
			return CashFlow{}, fmt.Errorf("record cash flow: save: %w", err)
		}
	}
	l.flows = append(l.flows, f)

	l.log.Info("cash flow recorded", "kind", f.Kind, "amount", f.Amount.String())
	return f, nil
}

// Get returns a copy of the position with the given id.
func (l *Ledger) Get(positionID string) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[positionID]
	if !ok {
		return Position{}, fmt.Errorf("get %s: %w", positionID, ErrPositionNotFound)
	}
	return p.clone(), nil
}

// List returns every position in creation order.
func (l *Ledger) List() []Position {
	return l.filter(func(Position) bool { return true })
}

func (l *Ledger) ListOpen() []Position {
	return l.filter(Position.IsOpen)
}

func (l *Ledger) ListClosed() []Position {
	return l.filter(func(p Position) bool { return !p.IsOpen() })
}

func (l *Ledger) CashFlows() []CashFlow {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CashFlow, len(l.flows))
	copy(out, l.flows)
	return out
}

func (l *Ledger) filter(keep func(Position) bool) []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Position, 0, len(l.order))
	for _, pid := range l.order {
		p := l.positions[pid]
		if keep(*p) {
			out = append(out, p.clone())
		}
	}
	return out
}

// Summary computes the dashboard account figures from initial capital, the
// journaled cash flows and every position's realized P&L.
func (l *Ledger) Summary(initialCapital decimal.Decimal) AccountSummary {
	acct := AccountFromFlows(initialCapital, l.CashFlows())
	return Summarize(acct, l.List())
}

func (r *OpenRequest) normalize() error {
	r.Symbol = strings.TrimSpace(r.Symbol)
	switch {
	case !r.AssetClass.valid():
		return fmt.Errorf("%w: unknown asset class %q", ErrInvalidInput, r.AssetClass)
	case !r.Direction.valid():
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, r.Direction)
	case r.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	case !r.EntryPrice.IsPositive():
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidInput)
	case r.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	case r.Multiplier.IsNegative():
		return fmt.Errorf("%w: multiplier must be positive", ErrInvalidInput)
	}

	if r.Multiplier.IsZero() {
		m, ok := DefaultMultiplier(r.AssetClass, r.Symbol)
		if !ok {
			return fmt.Errorf("%w: no default multiplier for %s %s", ErrInvalidInput, r.AssetClass, r.Symbol)
		}
		r.Multiplier = m
	}
	if !r.EntryDate.IsZero() {
		r.EntryDate = dateOnly(r.EntryDate)
	}
	return nil
}

func (r ExitRequest) validate() error {
	switch {
	case r.Quantity < 1:
		return fmt.Errorf("%w: exit quantity must be at least 1", ErrInvalidInput)
	case r.Price.IsNegative():
		return fmt.Errorf("%w: exit price must not be negative", ErrInvalidInput)
	case r.Commission.IsNegative():
		return fmt.Errorf("%w: commission must not be negative", ErrInvalidInput)
	}
	return nil
}

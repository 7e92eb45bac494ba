// Package ledger owns trade positions and their exits and derives realized
// P&L and performance figures from them.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass is the kind of instrument a position trades.
type AssetClass string

const (
	Stock  AssetClass = "Stock"
	Future AssetClass = "Future"
	Option AssetClass = "Option"
)

// AssetClasses lists every asset class in display order.
var AssetClasses = []AssetClass{Stock, Future, Option}

// ParseAssetClass accepts "stock", "Stock", "FUTURE", "options" and so on.
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "stock":
		return Stock, nil
	case "future":
		return Future, nil
	case "option":
		return Option, nil
	}
	return "", fmt.Errorf("%w: unknown asset class %q", ErrInvalidInput, s)
}

func (a AssetClass) valid() bool {
	return a == Stock || a == Future || a == Option
}

// Direction is the side a position was opened on.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// ParseDirection accepts long/short and buy/sell in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, s)
}

func (d Direction) valid() bool {
	return d == Long || d == Short
}

// Status is Open until the remaining quantity reaches zero.
type Status string

const (
	StatusOpen   Status = "Open"
	StatusClosed Status = "Closed"
)

// Position is one opened trade and every exit applied against it.
type Position struct {
	ID         string
	AssetClass AssetClass
	Symbol     string
	Direction  Direction
	EntryDate  time.Time

	EntryPrice        decimal.Decimal // per share, contract or option premium
	OriginalQuantity  int64
	RemainingQuantity int64
	Multiplier        decimal.Decimal

	Exits            []Exit
	TotalRealizedPnL decimal.Decimal
	ClosedAt         *time.Time

	// Annotations. None of these affect P&L.
	Reason   string
	Strategy string
	Details  string
	StopLoss decimal.NullDecimal
	Target   decimal.NullDecimal

	Version int64
}

// Status is derived from the remaining quantity.
func (p Position) Status() Status {
	if p.RemainingQuantity <= 0 {
		return StatusClosed
	}
	return StatusOpen
}

func (p Position) IsOpen() bool {
	return p.Status() == StatusOpen
}

// LastExit returns the most recent exit, if any.
func (p Position) LastExit() (Exit, bool) {
	if len(p.Exits) == 0 {
		return Exit{}, false
	}
	return p.Exits[len(p.Exits)-1], true
}

func (p Position) clone() Position {
	c := p
	if p.Exits != nil {
		c.Exits = make([]Exit, len(p.Exits))
		copy(c.Exits, p.Exits)
	}
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		c.ClosedAt = &t
	}
	return c
}

// Exit is one partial or full close against a Position.
type Exit struct {
	ID         string
	PositionID string
	Quantity   int64
	Price      decimal.Decimal
	Commission decimal.Decimal
	PnL        decimal.Decimal
	Timestamp  time.Time
	Notes      string
}

// OpenRequest carries the entry form fields.
type OpenRequest struct {
	AssetClass AssetClass
	Symbol     string
	Direction  Direction
	EntryDate  time.Time
	EntryPrice decimal.Decimal
	Quantity   int64
	// Multiplier defaults from the asset class (and futures contract) when zero.
	Multiplier decimal.Decimal

	Reason   string
	Strategy string
	Details  string
	StopLoss decimal.NullDecimal
	Target   decimal.NullDecimal
}

// ExitRequest carries the exit form fields.
type ExitRequest struct {
	Quantity   int64
	Price      decimal.Decimal
	Commission decimal.Decimal
	Timestamp  time.Time
	Notes      string
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

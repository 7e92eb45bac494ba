package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradejournal/ledger"
)

// FormatPositionOrg renders a position as an Org-mode entry. Structured facts
// go in the PROPERTIES drawer; the Thesis and Review sections are left for
// the trader to fill in.
func FormatPositionOrg(p ledger.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s %s (%s)\n", p.Direction, p.Symbol, p.Status(), ShortID(p.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", p.ID)
	fmt.Fprintf(&b, ":ASSET_CLASS: %s\n", p.AssetClass)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", p.Symbol)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", p.Direction)
	fmt.Fprintf(&b, ":ENTRY_DATE: %s\n", p.EntryDate.Format(time.DateOnly))
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", p.EntryPrice)
	fmt.Fprintf(&b, ":QUANTITY: %d\n", p.OriginalQuantity)
	fmt.Fprintf(&b, ":REMAINING: %d\n", p.RemainingQuantity)
	fmt.Fprintf(&b, ":MULTIPLIER: %s\n", p.Multiplier)
	if p.StopLoss.Valid {
		fmt.Fprintf(&b, ":STOP_LOSS: %s\n", p.StopLoss.Decimal)
	}
	if p.Target.Valid {
		fmt.Fprintf(&b, ":TARGET: %s\n", p.Target.Decimal)
	}
	if p.Strategy != "" {
		fmt.Fprintf(&b, ":STRATEGY: %s\n", p.Strategy)
	}
	if p.ClosedAt != nil {
		fmt.Fprintf(&b, ":CLOSED_AT: %s\n", p.ClosedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, ":REALIZED_PNL: %s\n", p.TotalRealizedPnL.StringFixed(2))
	fmt.Fprintf(&b, ":RETURN_PCT: %s\n", ledger.ReturnPct(p).StringFixed(2))
	b.WriteString(":END:\n\n")

	b.WriteString("*** Thesis\n")
	if p.Reason != "" {
		fmt.Fprintf(&b, "- %s\n", p.Reason)
	}
	if p.Details != "" {
		fmt.Fprintf(&b, "%s\n", p.Details)
	}
	if p.Reason == "" && p.Details == "" {
		b.WriteString("- \n")
	}
	b.WriteString("\n")

	b.WriteString("*** Execution\n")
	if len(p.Exits) == 0 {
		b.WriteString("- no exits\n")
	} else {
		b.WriteString("| Time | Qty | Price | Commission | P&L | Notes |\n")
		b.WriteString("|------+-----+-------+------------+-----+-------|\n")
		for _, e := range p.Exits {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
				e.Timestamp.UTC().Format("2006-01-02 15:04"),
				e.Quantity, e.Price, e.Commission.StringFixed(2), e.PnL.StringFixed(2),
				strings.ReplaceAll(e.Notes, "|", "/"))
		}
	}
	b.WriteString("\n")

	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatPositionsOrg renders multiple positions separated by blank lines.
func FormatPositionsOrg(ps []ledger.Position) string {
	var b strings.Builder
	for i, p := range ps {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatPositionOrg(p))
	}
	return b.String()
}

// ShortID keeps the tail of a ULID; the leading characters are the
// timestamp and collide for positions opened close together.
func ShortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/ledger"
)

type exitFlags struct {
	quantity   int64
	price      string
	commission string
	at         string
	notes      string
}

func newExitCmd(a *app) *cobra.Command {
	f := &exitFlags{}

	exitCmd := &cobra.Command{
		Use:   "exit <position-id>",
		Short: "Close all or part of a position",
		Long: `Apply a partial or full exit to an open position.

The position id may be the full id or its last 8 characters as shown by
'list' and 'show'. Without --qty the whole remaining quantity is closed.

Examples:
  tradejournal exit 7Q2K9M1Z --qty 40 --price 55
  tradejournal exit 7Q2K9M1Z --price 57.80 --commission 1.30 --notes "target hit"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExit(cmd, a, f, args[0])
		},
	}

	fl := exitCmd.Flags()
	fl.Int64VarP(&f.quantity, "qty", "q", 0, "quantity to close (default all remaining)")
	fl.StringVarP(&f.price, "price", "p", "", "exit price (required)")
	fl.StringVar(&f.commission, "commission", "0", "total commissions for this exit")
	fl.StringVar(&f.at, "at", "", "exit time, YYYY-MM-DD or RFC 3339 (default now)")
	fl.StringVar(&f.notes, "notes", "", "management / exit notes")

	_ = exitCmd.MarkFlagRequired("price")
	return exitCmd
}

func runExit(cmd *cobra.Command, a *app, f *exitFlags, ref string) error {
	price, err := parseDecimal("price", f.price)
	if err != nil {
		return err
	}
	commission, err := parseDecimal("commission", f.commission)
	if err != nil {
		return err
	}
	at, err := parseTime(time.Local, f.at)
	if err != nil {
		return err
	}

	s, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.resolve(ref)
	if err != nil {
		return err
	}

	qty := f.quantity
	if qty == 0 {
		if !p.IsOpen() {
			return fmt.Errorf("exit %s: %w", p.Symbol, ledger.ErrPositionAlreadyClosed)
		}
		qty = p.RemainingQuantity
	}

	e, err := s.ledger.ApplyExit(cmd.Context(), p.ID, ledger.ExitRequest{
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Timestamp:  at,
		Notes:      f.notes,
	})
	if err != nil {
		return fmt.Errorf("exit %s: %w", p.Symbol, err)
	}

	p, err = s.ledger.Get(p.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if p.IsOpen() {
		fmt.Fprintf(out, "✓ Partial exit: %s %d @ %s\n", p.Symbol, e.Quantity, e.Price)
	} else {
		fmt.Fprintf(out, "✓ Trade closed: %s %d @ %s\n", p.Symbol, e.Quantity, e.Price)
	}
	fmt.Fprintf(out, "  Exit P&L:   %s (%s%%)\n", money(e.PnL), ledger.ExitReturnPct(p, e).StringFixed(2))
	fmt.Fprintf(out, "  Remaining:  %d of %d\n", p.RemainingQuantity, p.OriginalQuantity)
	fmt.Fprintf(out, "  Total P&L:  %s\n", money(p.TotalRealizedPnL))
	return nil
}

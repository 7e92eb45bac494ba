package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// pnlRanger is implemented by stores that total realized P&L themselves.
type pnlRanger interface {
	RealizedPnLBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
}

func newPnLCmd(a *app) *cobra.Command {
	pnlCmd := &cobra.Command{
		Use:   "pnl",
		Short: "Realized P&L of positions closed on a day",
		Long: `Total the realized P&L of positions closed on a given day.

Subcommands:
  today  - positions closed today
  day    - positions closed on a specific day

Examples:
  tradejournal pnl today
  tradejournal pnl day 2024-03-15`,
	}

	todayCmd := &cobra.Command{
		Use:   "today",
		Short: "P&L of positions closed today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPnLDay(cmd, a, time.Now().In(time.Local).Format(time.DateOnly))
		},
	}

	dayCmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "P&L of positions closed on a specific day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPnLDay(cmd, a, args[0])
		},
	}

	pnlCmd.AddCommand(todayCmd, dayCmd)
	return pnlCmd
}

func runPnLDay(cmd *cobra.Command, a *app, day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	s, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ps, err := s.closedBetween(cmd, day, day)
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}

	total := decimal.Zero
	if r, ok := s.store.(pnlRanger); ok {
		if total, err = r.RealizedPnLBetween(cmd.Context(), start, end); err != nil {
			return fmt.Errorf("query pnl: %w", err)
		}
	} else {
		for _, p := range ps {
			total = total.Add(p.TotalRealizedPnL)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d closed, realized P&L %s %s\n", day, len(ps), money(total), s.cfg.Account.Currency)
	for _, p := range ps {
		fmt.Fprintf(out, "  %-20s %-5s %12s\n", p.Symbol, p.Direction, money(p.TotalRealizedPnL))
	}
	return nil
}

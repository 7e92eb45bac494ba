package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/ledger"
)

func newListCmd(a *app) *cobra.Command {
	var (
		status string
		symbol string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active positions and trade history",
		Long: `Show active positions and closed trade history.

Active positions are split per asset class when more than one class is
open. History is newest close first and is followed by performance stats.

Examples:
  tradejournal list
  tradejournal list --status open
  tradejournal list --symbol ES`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ps := s.ledger.List()
			if symbol != "" {
				if ps, err = s.bySymbol(cmd, symbol); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(status) {
			case "open":
				return writeActive(out, ps)
			case "closed":
				return writeHistory(out, ps)
			case "", "all":
				if err := writeActive(out, ps); err != nil {
					return err
				}
				fmt.Fprintln(out)
				return writeHistory(out, ps)
			}
			return fmt.Errorf("unknown status %q (want open, closed or all)", status)
		},
	}

	listCmd.Flags().StringVar(&status, "status", "all", "which positions to show (open, closed, all)")
	listCmd.Flags().StringVarP(&symbol, "symbol", "s", "", "only positions on this symbol")
	return listCmd
}

// bySymbol uses the store's symbol index when it has one.
func (s *session) bySymbol(cmd *cobra.Command, symbol string) ([]ledger.Position, error) {
	if j, ok := s.store.(*journal.SQLite); ok {
		return j.ListBySymbol(cmd.Context(), symbol)
	}
	var out []ledger.Position
	for _, p := range s.ledger.List() {
		if strings.EqualFold(p.Symbol, symbol) {
			out = append(out, p)
		}
	}
	return out, nil
}

func writeActive(w io.Writer, ps []ledger.Position) error {
	var open []ledger.Position
	for _, p := range ps {
		if p.IsOpen() {
			open = append(open, p)
		}
	}

	fmt.Fprintln(w, "Active Positions")
	if len(open) == 0 {
		fmt.Fprintln(w, "No active trades currently.")
		return nil
	}

	classes := ledger.PresentAssetClasses(open)
	if len(classes) == 1 {
		return activeTable(w, open, true)
	}

	groups := ledger.GroupByAssetClass(open)
	for i, ac := range classes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Active %ss\n", ac)
		if err := activeTable(w, groups[ac], false); err != nil {
			return err
		}
	}
	return nil
}

func activeTable(w io.Writer, ps []ledger.Position, withClass bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if withClass {
		fmt.Fprintln(tw, "ID\tCLASS\tSYMBOL\tDIR\tENTRY\tQTY\tENTRY DATE\tREALIZED")
	} else {
		fmt.Fprintln(tw, "ID\tSYMBOL\tDIR\tENTRY\tQTY\tENTRY DATE\tREALIZED")
	}
	for _, p := range ps {
		qty := fmt.Sprintf("%d/%d", p.RemainingQuantity, p.OriginalQuantity)
		if withClass {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				journal.ShortID(p.ID), p.AssetClass, p.Symbol, p.Direction, p.EntryPrice, qty,
				p.EntryDate.Format(time.DateOnly), money(p.TotalRealizedPnL))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			journal.ShortID(p.ID), p.Symbol, p.Direction, p.EntryPrice, qty,
			p.EntryDate.Format(time.DateOnly), money(p.TotalRealizedPnL))
	}
	return tw.Flush()
}

func writeHistory(w io.Writer, ps []ledger.Position) error {
	var closed []ledger.Position
	for _, p := range ps {
		if !p.IsOpen() {
			closed = append(closed, p)
		}
	}

	fmt.Fprintln(w, "Trade History")
	if len(closed) == 0 {
		fmt.Fprintln(w, "No closed trades yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSYMBOL\tDIR\tENTRY DATE\tEXIT DATE\tENTRY\tAVG EXIT\tNET P&L\tP&L %")
	for _, p := range ledger.SortByClose(closed) {
		exitDate := "-"
		if p.ClosedAt != nil {
			exitDate = p.ClosedAt.Local().Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			journal.ShortID(p.ID), p.Symbol, p.Direction,
			p.EntryDate.Format(time.DateOnly), exitDate,
			p.EntryPrice, optMoney(ledger.AverageExitPrice(p)),
			money(p.TotalRealizedPnL), ledger.ReturnPct(p).StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	writePerformance(w, "All Trades", ledger.AggregatePerformance(closed))

	classes := ledger.PresentAssetClasses(closed)
	if len(classes) > 1 {
		groups := ledger.GroupByAssetClass(closed)
		for _, ac := range classes {
			writePerformance(w, string(ac)+"s", ledger.AggregatePerformance(groups[ac]))
		}
	}
	return nil
}

func writePerformance(w io.Writer, title string, perf ledger.Performance) {
	fmt.Fprintf(w, "%-12s trades %d  net P&L %s  win rate %s%%  avg win %s  avg loss %s  profit factor %s\n",
		title+":", perf.Count, money(perf.TotalPnL), perf.WinRate.StringFixed(1),
		optMoney(perf.AvgWin), optMoney(perf.AvgLoss), perf.ProfitFactorString())
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/ledger"
)

func newAccountCmd(a *app) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Track deposits, withdrawals and account equity",
		Long: `Manage the capital base returns are measured against.

Initial capital comes from the config (account.initial_capital); deposits
and withdrawals are journaled alongside positions.

Subcommands:
  deposit   - add capital
  withdraw  - remove capital
  summary   - adjusted capital, realized P&L, equity and return

Examples:
  tradejournal account deposit 5000 --note "Q2 top-up"
  tradejournal account summary`,
	}

	accountCmd.AddCommand(
		newCashFlowCmd(a, ledger.Deposit, "deposit <amount>", "Record a deposit"),
		newCashFlowCmd(a, ledger.Withdrawal, "withdraw <amount>", "Record a withdrawal"),
		newAccountSummaryCmd(a),
	)
	return accountCmd
}

func newCashFlowCmd(a *app, kind ledger.CashFlowKind, use, short string) *cobra.Command {
	var note, at string

	flowCmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseDecimal("amount", args[0])
			if err != nil {
				return err
			}
			when, err := parseTime(time.Local, at)
			if err != nil {
				return err
			}

			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			f, err := s.ledger.RecordCashFlow(cmd.Context(), ledger.CashFlow{
				Kind:   kind,
				Amount: amount,
				Time:   when,
				Note:   note,
			})
			if err != nil {
				return fmt.Errorf("record %s: %w", kind, err)
			}

			sum := s.ledger.Summary(s.cfg.Account.InitialCapitalDecimal())
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Recorded %s of %s %s\n", f.Kind, money(f.Amount), s.cfg.Account.Currency)
			fmt.Fprintf(cmd.OutOrStdout(), "  Adjusted capital: %s\n", money(sum.AdjustedCapital))
			return nil
		},
	}

	flowCmd.Flags().StringVar(&note, "note", "", "note for this cash flow")
	flowCmd.Flags().StringVar(&at, "at", "", "date YYYY-MM-DD or RFC 3339 (default now)")
	return flowCmd
}

func newAccountSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show account capital and return",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			acct := s.account()
			sum := ledger.Summarize(acct, s.ledger.List())
			cur := s.cfg.Account.Currency

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Account (%s)\n", cur)
			fmt.Fprintf(out, "  Initial capital:   %14s\n", money(acct.InitialCapital))
			fmt.Fprintf(out, "  Deposits:          %14s\n", money(acct.Deposits))
			fmt.Fprintf(out, "  Withdrawals:       %14s\n", money(acct.Withdrawals))
			fmt.Fprintf(out, "  Adjusted capital:  %14s\n", money(sum.AdjustedCapital))
			fmt.Fprintf(out, "  Realized P&L:      %14s\n", money(sum.RealizedPnL))
			fmt.Fprintf(out, "  Current equity:    %14s\n", money(sum.CurrentEquity))
			fmt.Fprintf(out, "  Return on capital: %13s%%\n", sum.ReturnOnCapitalPct.StringFixed(2))
			fmt.Fprintf(out, "  Open positions:    %14d\n", len(s.ledger.ListOpen()))
			return nil
		},
	}
}

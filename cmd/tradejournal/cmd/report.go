package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/ledger"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		output string
		title  string
		from   string
		to     string
	)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an Org-mode performance report",
		Long: `Render account figures and closed-trade performance as an Org document.

With --from/--to only positions closed in that range are included; account
figures always cover the whole journal.

Examples:
  tradejournal report
  tradejournal report --from 2024-01-01 --to 2024-03-31 -o q1.org`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ps := s.ledger.List()
			var start, end time.Time
			if from != "" || to != "" {
				if ps, err = s.closedBetween(cmd, from, to); err != nil {
					return err
				}
				// Already validated by closedBetween; these are display dates.
				if from != "" {
					start, _, _ = dayBounds(time.Local, from)
				}
				if to != "" {
					end, _, _ = dayBounds(time.Local, to)
				}
			}

			r := journal.NewReport(title, s.cfg.Account.Currency, ps, s.account(), time.Now())
			r.Start, r.End = start, end
			// Equity and return always reflect every position.
			r.Account = ledger.Summarize(s.account(), s.ledger.List())

			if output == "" {
				return r.WriteOrg(cmd.OutOrStdout())
			}
			if err := r.WriteOrgFile(output); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Report written: %s (%d closed trades)\n", output, r.Overall.Count)
			return nil
		},
	}

	reportCmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file instead of stdout")
	reportCmd.Flags().StringVar(&title, "title", "", "report title")
	reportCmd.Flags().StringVar(&from, "from", "", "first close date YYYY-MM-DD")
	reportCmd.Flags().StringVar(&to, "to", "", "last close date YYYY-MM-DD")
	return reportCmd
}

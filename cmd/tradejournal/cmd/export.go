package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/journal"
	"github.com/rustyeddy/tradejournal/ledger"
)

// closedRanger is implemented by stores that can filter closed positions by
// close time themselves (SQLite and PostgreSQL).
type closedRanger interface {
	ListClosedBetween(ctx context.Context, start, end time.Time) ([]ledger.Position, error)
}

// closedBetween returns positions closed within the inclusive day range
// [from, to], oldest close first. Empty bounds are open-ended.
func (s *session) closedBetween(cmd *cobra.Command, from, to string) ([]ledger.Position, error) {
	start, end, err := rangeBounds(time.Local, from, to)
	if err != nil {
		return nil, err
	}
	if r, ok := s.store.(closedRanger); ok {
		return r.ListClosedBetween(cmd.Context(), start, end)
	}

	var out []ledger.Position
	for _, p := range s.ledger.ListClosed() {
		if p.ClosedAt != nil && !p.ClosedAt.Before(start) && p.ClosedAt.Before(end) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b ledger.Position) int {
		return a.ClosedAt.Compare(*b.ClosedAt)
	})
	return out, nil
}

func newExportCmd(a *app) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export closed positions as CSV or Org-mode",
		Long: `Export closed positions for spreadsheets or Emacs.

Subcommands:
  csv  - positions and exits as two CSV files
  org  - one Org heading per position

Examples:
  tradejournal export csv --from 2024-01-01 --positions trades.csv --exits exits.csv
  tradejournal export org --to 2024-03-31 -o journal.org`,
	}

	exportCmd.AddCommand(newExportCSVCmd(a), newExportOrgCmd(a))
	return exportCmd
}

func newExportCSVCmd(a *app) *cobra.Command {
	var (
		positionsPath string
		exitsPath     string
		from, to      string
	)

	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Write closed positions and their exits as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ps, err := s.closedBetween(cmd, from, to)
			if err != nil {
				return fmt.Errorf("query positions: %w", err)
			}

			w, err := journal.NewCSV(positionsPath, exitsPath)
			if err != nil {
				return err
			}
			if err := w.WriteAll(ps); err != nil {
				_ = w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d positions to %s (exits: %s)\n", len(ps), positionsPath, exitsPath)
			return nil
		},
	}

	csvCmd.Flags().StringVar(&positionsPath, "positions", "positions.csv", "positions CSV output path")
	csvCmd.Flags().StringVar(&exitsPath, "exits", "exits.csv", "exits CSV output path")
	csvCmd.Flags().StringVar(&from, "from", "", "first close date YYYY-MM-DD")
	csvCmd.Flags().StringVar(&to, "to", "", "last close date YYYY-MM-DD")
	return csvCmd
}

func newExportOrgCmd(a *app) *cobra.Command {
	var (
		output   string
		from, to string
	)

	orgCmd := &cobra.Command{
		Use:   "org",
		Short: "Write closed positions as Org-mode entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ps, err := s.closedBetween(cmd, from, to)
			if err != nil {
				return fmt.Errorf("query positions: %w", err)
			}

			text := journal.FormatPositionsOrg(ps)
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(output, []byte(text+"\n"), 0644); err != nil {
				return fmt.Errorf("write org: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d positions to %s\n", len(ps), output)
			return nil
		},
	}

	orgCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	orgCmd.Flags().StringVar(&from, "from", "", "first close date YYYY-MM-DD")
	orgCmd.Flags().StringVar(&to, "to", "", "last close date YYYY-MM-DD")
	return orgCmd
}

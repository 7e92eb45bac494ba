package cmd

import (
	"github.com/spf13/cobra"
)

// app carries the persistent flags shared by every subcommand.
type app struct {
	cfgFile string
	dbPath  string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tradejournal",
		Short: "A trading journal for stocks, futures and options",
		Long: `Tradejournal records trade entries across stocks, futures and options,
applies partial and full exits, and reports realized P&L and performance.

It provides tools for:
  - Opening positions with contract multipliers filled in
  - Scaling out of positions with per-exit P&L
  - Win rate, average win/loss and profit factor per asset class
  - Account capital tracking with deposits and withdrawals
  - CSV and Org-mode exports, and JSONL archives on S3

Positions are stored in SQLite by default, or PostgreSQL when configured.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "", "path to SQLite journal DB (overrides storage config)")

	rootCmd.AddCommand(
		newOpenCmd(a),
		newExitCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newReportCmd(a),
		newPnLCmd(a),
		newAccountCmd(a),
		newExportCmd(a),
		newArchiveCmd(a),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

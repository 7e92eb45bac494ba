package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/config"
)

func newConfigCmd() *cobra.Command {
	var (
		output       string
		validatePath string
	)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage journal configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

The format follows the extension: .yaml/.yml, .toml or .json.
TRADEJOURNAL_* environment variables (and a .env file) override file values
at run time.

Examples:
  tradejournal config init -o tradejournal.yaml
  tradejournal config validate -f tradejournal.yaml`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  tradejournal --config %s list\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "tradejournal.yaml", "output config file path")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(validatePath)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", validatePath)
			fmt.Fprintf(out, "  Account: %s %s\n", money(cfg.Account.InitialCapitalDecimal()), cfg.Account.Currency)
			fmt.Fprintf(out, "  Storage: %s\n", cfg.Storage.Type)
			if cfg.Redis.Enabled {
				fmt.Fprintf(out, "  Redis lock: %s\n", cfg.Redis.Addr)
			}
			if cfg.S3.Bucket != "" {
				fmt.Fprintf(out, "  Archive: s3://%s/%s\n", cfg.S3.Bucket, cfg.S3.Prefix)
			}
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&validatePath, "file", "f", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("file")

	configCmd.AddCommand(initCmd, validateCmd)
	return configCmd
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradejournal/ledger"
)

type openFlags struct {
	class      string
	symbol     string
	direction  string
	price      string
	quantity   int64
	multiplier string
	date       string
	stop       string
	target     string
	reason     string
	strategy   string
	details    string

	underlying string
	strike     string
	expiry     string
	optType    string
}

func newOpenCmd(a *app) *cobra.Command {
	f := &openFlags{}

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new position",
		Long: `Record a new trade entry.

The contract multiplier defaults from the asset class: 1 for stocks, 100 for
options, and the known contract size for futures (ES, NQ, CL, GC ...).
Options can be given a full symbol, or built from --underlying, --strike,
--expiry and --type.

Examples:
  tradejournal open --class stock --symbol AAPL --price 187.50 --qty 100
  tradejournal open --class future --symbol ES --direction short --price 5012.25 --qty 2 --stop 5030
  tradejournal open --class option --underlying SPY --strike 450 --expiry 2025-01-17 --type call --price 2.45 --qty 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd, a, f)
		},
	}

	fl := openCmd.Flags()
	fl.StringVar(&f.class, "class", "stock", "asset class (stock, future, option)")
	fl.StringVarP(&f.symbol, "symbol", "s", "", "ticker or contract symbol")
	fl.StringVar(&f.direction, "direction", "long", "trade direction (long, short)")
	fl.StringVarP(&f.price, "price", "p", "", "entry price per share, contract or premium (required)")
	fl.Int64VarP(&f.quantity, "qty", "q", 0, "number of shares or contracts (required)")
	fl.StringVar(&f.multiplier, "multiplier", "", "contract multiplier (default by asset class)")
	fl.StringVar(&f.date, "date", "", "entry date YYYY-MM-DD (default today)")
	fl.StringVar(&f.stop, "stop", "", "initial stop loss")
	fl.StringVar(&f.target, "target", "", "target price")
	fl.StringVar(&f.reason, "reason", "", "trade thesis")
	fl.StringVar(&f.strategy, "strategy", "", "strategy name")
	fl.StringVar(&f.details, "details", "", "free-form details")

	fl.StringVar(&f.underlying, "underlying", "", "option: underlying ticker")
	fl.StringVar(&f.strike, "strike", "", "option: strike price")
	fl.StringVar(&f.expiry, "expiry", "", "option: expiry date YYYY-MM-DD")
	fl.StringVar(&f.optType, "type", "call", "option: call or put")

	_ = openCmd.MarkFlagRequired("price")
	_ = openCmd.MarkFlagRequired("qty")
	return openCmd
}

func runOpen(cmd *cobra.Command, a *app, f *openFlags) error {
	req, err := f.request()
	if err != nil {
		return err
	}

	s, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.ledger.Open(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("open position: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Trade opened: %s %s\n", p.Direction, p.Symbol)
	fmt.Fprintf(out, "  ID:         %s\n", p.ID)
	fmt.Fprintf(out, "  Class:      %s\n", p.AssetClass)
	fmt.Fprintf(out, "  Entry:      %s x %d @ %s\n", p.EntryDate.Format(time.DateOnly), p.OriginalQuantity, p.EntryPrice)
	fmt.Fprintf(out, "  Multiplier: %s\n", p.Multiplier)
	fmt.Fprintf(out, "  Invested:   %s\n", money(ledger.InvestedValue(p)))
	return nil
}

// request turns the flags into an OpenRequest, synthesizing the option
// symbol when none was given.
func (f *openFlags) request() (ledger.OpenRequest, error) {
	var req ledger.OpenRequest
	var err error

	if req.AssetClass, err = ledger.ParseAssetClass(f.class); err != nil {
		return req, err
	}
	if req.Direction, err = ledger.ParseDirection(f.direction); err != nil {
		return req, err
	}
	if req.EntryPrice, err = parseDecimal("price", f.price); err != nil {
		return req, err
	}
	if f.multiplier != "" {
		if req.Multiplier, err = parseDecimal("multiplier", f.multiplier); err != nil {
			return req, err
		}
	}
	if req.StopLoss, err = parseOptionalDecimal("stop", f.stop); err != nil {
		return req, err
	}
	if req.Target, err = parseOptionalDecimal("target", f.target); err != nil {
		return req, err
	}
	if req.EntryDate, err = parseTime(time.Local, f.date); err != nil {
		return req, err
	}

	req.Symbol = f.symbol
	if req.AssetClass == ledger.Option && req.Symbol == "" {
		if req.Symbol, err = f.optionSymbol(); err != nil {
			return req, err
		}
	}

	req.Quantity = f.quantity
	req.Reason = f.reason
	req.Strategy = f.strategy
	req.Details = f.details
	return req, nil
}

func (f *openFlags) optionSymbol() (string, error) {
	if f.underlying == "" || f.strike == "" || f.expiry == "" {
		return "", fmt.Errorf("%w: option needs --symbol or --underlying, --strike and --expiry", ledger.ErrInvalidInput)
	}
	typ, err := ledger.ParseOptionType(f.optType)
	if err != nil {
		return "", err
	}
	strike, err := parseDecimal("strike", f.strike)
	if err != nil {
		return "", err
	}
	expiry, err := time.Parse(time.DateOnly, f.expiry)
	if err != nil {
		return "", fmt.Errorf("invalid expiry %q: %w", f.expiry, err)
	}
	return ledger.OptionSymbol(f.underlying, typ, strike, expiry), nil
}

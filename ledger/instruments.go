package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type FutureContract struct {
	Symbol     string
	Name       string
	Multiplier decimal.Decimal // dollars per 1.0 point
}

// FutureContracts lists the futures the journal knows a multiplier for.
var FutureContracts = map[string]FutureContract{
	"ES":  {Symbol: "ES", Name: "E-mini S&P 500", Multiplier: decimal.NewFromInt(50)},
	"MES": {Symbol: "MES", Name: "Micro S&P 500", Multiplier: decimal.NewFromInt(5)},
	"NQ":  {Symbol: "NQ", Name: "E-mini NASDAQ 100", Multiplier: decimal.NewFromInt(20)},
	"MNQ": {Symbol: "MNQ", Name: "Micro NASDAQ 100", Multiplier: decimal.NewFromInt(2)},
	"RTY": {Symbol: "RTY", Name: "E-mini Russell 2000", Multiplier: decimal.NewFromInt(50)},
	"M2K": {Symbol: "M2K", Name: "Micro Russell 2000", Multiplier: decimal.NewFromInt(5)},
	"GC":  {Symbol: "GC", Name: "Gold", Multiplier: decimal.NewFromInt(100)},
	"MGC": {Symbol: "MGC", Name: "Micro Gold", Multiplier: decimal.NewFromInt(10)},
	"SI":  {Symbol: "SI", Name: "Silver", Multiplier: decimal.NewFromInt(1000)},
	"SIL": {Symbol: "SIL", Name: "Micro Silver", Multiplier: decimal.NewFromInt(100)},
	"CL":  {Symbol: "CL", Name: "Crude Oil", Multiplier: decimal.NewFromInt(1000)},
}

var (
	stockMultiplier  = decimal.NewFromInt(1)
	optionMultiplier = decimal.NewFromInt(100)
)

// DefaultMultiplier returns the standard contract multiplier for an asset
// class. Futures are looked up by root symbol.
func DefaultMultiplier(ac AssetClass, symbol string) (decimal.Decimal, bool) {
	switch ac {
	case Stock:
		return stockMultiplier, true
	case Option:
		return optionMultiplier, true
	case Future:
		fields := strings.Fields(symbol)
		if len(fields) == 0 {
			break
		}
		if c, ok := FutureContracts[strings.ToUpper(fields[0])]; ok {
			return c.Multiplier, true
		}
	}
	return decimal.Zero, false
}

type OptionType string

const (
	Call OptionType = "Call"
	Put  OptionType = "Put"
)

func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("%w: unknown option type %q", ErrInvalidInput, s)
}

// OptionSymbol synthesizes a display symbol such as "SPY 17Jan25 450C".
func OptionSymbol(underlying string, typ OptionType, strike decimal.Decimal, expiry time.Time) string {
	suffix := "C"
	if typ == Put {
		suffix = "P"
	}
	return fmt.Sprintf("%s %s %s%s",
		strings.ToUpper(strings.TrimSpace(underlying)),
		expiry.Format("02Jan06"),
		strike.String(),
		suffix,
	)
}

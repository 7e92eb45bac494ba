package journal

import (
	"bytes"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/tradejournal/ledger"
	"github.com/shopspring/decimal"
)

// Report is a performance summary rendered as an Org-mode document.
type Report struct {
	Title     string
	Generated time.Time
	Currency  string

	// Zero Start and End mean all time.
	Start time.Time
	End   time.Time

	Overall ledger.Performance
	Classes []ClassPerformance
	Account ledger.AccountSummary

	Best  *ledger.Position
	Worst *ledger.Position

	Notes []string
}

type ClassPerformance struct {
	Class ledger.AssetClass
	ledger.Performance
}

// NewReport aggregates ps into a Report. Per-class sections are only filled
// when more than one asset class is present.
func NewReport(title, currency string, ps []ledger.Position, acct ledger.Account, now time.Time) Report {
	r := Report{
		Title:     title,
		Generated: now,
		Currency:  currency,
		Overall:   ledger.AggregatePerformance(ps),
		Account:   ledger.Summarize(acct, ps),
	}

	classes := ledger.PresentAssetClasses(ps)
	if len(classes) > 1 {
		groups := ledger.GroupByAssetClass(ps)
		for _, ac := range classes {
			r.Classes = append(r.Classes, ClassPerformance{Class: ac, Performance: ledger.AggregatePerformance(groups[ac])})
		}
	}

	for i := range ps {
		p := ps[i]
		if p.IsOpen() {
			continue
		}
		if r.Best == nil || p.TotalRealizedPnL.GreaterThan(r.Best.TotalRealizedPnL) {
			r.Best = &p
		}
		if r.Worst == nil || p.TotalRealizedPnL.LessThan(r.Worst.TotalRealizedPnL) {
			r.Worst = &p
		}
	}
	return r
}

var reportFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"avg": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return "-"
		}
		return d.Decimal.StringFixed(2)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format(time.DateOnly)
	},
}

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(ReportOrgTemplate))

func (r Report) WriteOrg(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}

func (r Report) WriteOrgFile(path string) error {
	buf := new(bytes.Buffer)
	if err := r.WriteOrg(buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

const ReportOrgTemplate = `* REPORT: {{if .Title}}{{.Title}}{{else}}Trading Journal{{end}}
:PROPERTIES:
:GENERATED:   [{{.Generated.Format "2006-01-02 Mon 15:04"}}]
:CURRENCY:    {{if .Currency}}{{.Currency}}{{else}}(currency?){{end}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:TRADES:      {{.Overall.Count}}
:WINS:        {{.Overall.WinCount}}
:LOSSES:      {{.Overall.LossCount}}
:WIN_RATE:    {{.Overall.WinRate.StringFixed 2}}
:NET_PNL:     {{money .Overall.TotalPnL}}
:PROFIT_FAC:  {{.Overall.ProfitFactorString}}
:END:

** Account
| Metric            | Value |
|-------------------+-------|
| Adjusted Capital  | {{money .Account.AdjustedCapital}} |
| Realized P&L      | {{money .Account.RealizedPnL}} |
| Current Equity    | {{money .Account.CurrentEquity}} |
| Return on Capital | {{.Account.ReturnOnCapitalPct.StringFixed 2}}% |

** Performance Summary
{{- if eq .Overall.Count 0 }}
No closed trades yet.
{{- else }}
- Total P&L:        *{{money .Overall.TotalPnL}}*
- Win Rate:         *{{.Overall.WinRate.StringFixed 2}}%*
- Average Win:      *{{avg .Overall.AvgWin}}*
- Average Loss:     *{{avg .Overall.AvgLoss}}*
- Profit Factor:    *{{.Overall.ProfitFactorString}}*
{{- end }}

{{- if .Classes }}

** By Asset Class
| Class | Trades | Win Rate % | Total P&L | Avg Win | Avg Loss | Profit Factor |
|-------+--------+------------+-----------+---------+----------+---------------|
{{- range .Classes }}
| {{.Class}} | {{.Count}} | {{.WinRate.StringFixed 2}} | {{money .TotalPnL}} | {{avg .AvgWin}} | {{avg .AvgLoss}} | {{.ProfitFactorString}} |
{{- end }}
{{- end }}

{{- if .Best }}

** Extremes
- Best:  {{.Best.Symbol}} {{money .Best.TotalRealizedPnL}}
- Worst: {{.Worst.Symbol}} {{money .Worst.TotalRealizedPnL}}
{{- end }}

{{- if .Notes }}

** Notes
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

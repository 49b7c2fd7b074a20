package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID    string
	Created  time.Time
	Strategy string
	Dataset  string
	Config   []byte // strategy config as YAML

	Symbols  int
	HalfBake bool

	Start time.Time
	End   time.Time

	StockDays int
	Sales     int
	Wins      int
	Losses    int

	StartEquity    float64
	EndEquity      float64
	EndBuyingPower float64

	// Derived
	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	PerDay       float64
	PerTrade     float64
	ProfitFactor float64
	MaxDDPct     float64

	OrgPath string
	Notes   []string
}

var backtestOrgFuncs = template.FuncMap{
	"pct": func(growth float64) float64 { return (growth - 1) * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

// FormatBacktestOrg renders a run as an Org-mode entry.
func FormatBacktestOrg(r BacktestRun) (string, error) {
	t, err := template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate)
	if err != nil {
		return "", fmt.Errorf("parse org template: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, r); err != nil {
		return "", fmt.Errorf("render org template: %w", err)
	}
	return buf.String(), nil
}

// WriteBacktestOrg writes the Org entry to r.OrgPath.
func (r *BacktestRun) WriteBacktestOrg() error {
	if r.OrgPath == "" {
		return fmt.Errorf("org path is required")
	}
	out, err := FormatBacktestOrg(*r)
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(out), 0644)
}

const BacktestOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Start.Format "2006-01-02"}}..{{.End.Format "2006-01-02"}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.Strategy}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:SYMBOLS:     {{.Symbols}}{{if .HalfBake}} (half-bake){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:STOCK_DAYS:  {{.StockDays}}
:START_EQ:    {{printf "%.2f" .StartEquity}}
:END_EQ:      {{printf "%.2f" .EndEquity}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:SALES:       {{.Sales}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
#+begin_src yaml
{{printf "%s" .Config}}
#+end_src

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
- Growth per Day:   *{{printf "%.4f" (pct .PerDay)}}%*
- Growth per Trade: *{{printf "%.4f" (pct .PerTrade)}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Sales   | {{.Sales}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

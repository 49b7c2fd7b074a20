package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/backtester/pkg/journal"
)

// DefaultIncrement is the display rounding step for money.
const DefaultIncrement = 0.05

// RoundToIncrement rounds v to the nearest multiple of inc, halves away
// from zero. A non-positive inc leaves v as is.
func RoundToIncrement(v, inc float64) decimal.Decimal {
	d := decimal.NewFromFloat(v)
	if inc <= 0 {
		return d
	}
	step := decimal.NewFromFloat(inc)
	return d.Div(step).Round(0).Mul(step)
}

func money(v, inc float64) string {
	return "$" + RoundToIncrement(v, inc).StringFixed(2)
}

// signedPct renders a growth factor as a signed percent change.
func signedPct(growth float64) string {
	p := RoundToIncrement((growth-1)*100, 0.01).StringFixed(2)
	if growth >= 1 {
		p = "+" + p
	}
	return p + "%"
}

func PrintBacktestRun(w io.Writer, r journal.BacktestRun, increment float64) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	fmt.Fprintf(w, "Symbols:       %d\n", r.Symbols)
	if r.HalfBake {
		fmt.Fprintln(w, "Half Bake:     yes")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.DateOnly))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.DateOnly))
	fmt.Fprintf(w, "Trading Days:  %d\n", r.StockDays)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Sales:         %d\n", r.Sales)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	if r.Wins+r.Losses > 0 {
		fmt.Fprintf(w, "Win Rate:      %s%%\n", RoundToIncrement(r.WinRate, 0.01).StringFixed(2))
	}
	if r.StockDays > 0 {
		fmt.Fprintf(w, "Per Day:       %s\n", signedPct(r.PerDay))
	}
	if r.Sales > 0 {
		fmt.Fprintf(w, "Per Trade:     %s\n", signedPct(r.PerTrade))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Equity:  %s\n", money(r.StartEquity, increment))
	fmt.Fprintf(w, "End Equity:    %s\n", money(r.EndEquity, increment))
	fmt.Fprintf(w, "Buying Power:  %s\n", money(r.EndBuyingPower, increment))
	fmt.Fprintf(w, "Net P/L:       %s\n", money(r.NetPL, increment))
	fmt.Fprintf(w, "Return:        %s%%\n", RoundToIncrement(r.ReturnPct, 0.01).StringFixed(2))

	if r.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", r.ProfitFactor)
	}
	if r.MaxDDPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDDPct)
	}

	if r.OrgPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}

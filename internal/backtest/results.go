package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/backtester/pkg/journal"
	"github.com/rustyeddy/backtester/pkg/sim"
)

// Result summarizes an account after a run.
type Result struct {
	RunID string
	Start time.Time
	End   time.Time // last simulated day

	StockDays int
	Sales     int
	Wins      int
	Losses    int
	OpenLots  int

	InitialEquity float64
	Equity        float64
	BuyingPower   float64

	TotalProfit  float64
	ReturnPct    float64
	WinRate      float64 // percent of closed lots that won
	PerDay       float64 // geometric growth factor per trading day
	PerTrade     float64 // geometric growth factor per sale
	ProfitFactor float64
	MaxDDPct     float64
}

// Summarize computes the run statistics from the account's current state.
func Summarize(a *sim.Account) Result {
	r := Result{
		RunID:         a.RunID(),
		Start:         a.StartDate(),
		End:           a.CurrentDate(),
		StockDays:     len(a.StockDays()),
		Sales:         a.Sales(),
		Wins:          a.Wins(),
		Losses:        a.Losses(),
		OpenLots:      len(a.Positions()),
		InitialEquity: a.InitialEquity(),
		Equity:        a.Equity(),
		BuyingPower:   a.BuyingPower(),
	}

	r.TotalProfit = r.Equity - r.InitialEquity
	r.ReturnPct = r.TotalProfit / r.InitialEquity * 100
	if closed := r.Wins + r.Losses; closed > 0 {
		r.WinRate = float64(r.Wins) / float64(closed) * 100
	}
	r.PerDay = GrowthPer(r.InitialEquity, r.Equity, r.StockDays)
	r.PerTrade = GrowthPer(r.InitialEquity, r.Equity, r.Sales)

	profit, loss := a.Realized()
	if loss > 0 {
		r.ProfitFactor = profit / loss
	}
	r.MaxDDPct = MaxDrawdownPct(a.EquityHistory())
	return r
}

// GrowthPer returns the factor g with initial*g^n == final. It is 1 when
// n is zero or the ratio is not positive.
func GrowthPer(initial, final float64, n int) float64 {
	if n <= 0 || initial <= 0 || final <= 0 {
		return 1
	}
	return math.Exp(math.Log(final/initial) / float64(n))
}

// MaxDrawdownPct is the largest peak to trough fall of the history, in
// percent of the peak.
func MaxDrawdownPct(history []sim.Sample) float64 {
	peak, dd := 0.0, 0.0
	for _, s := range history {
		if s.Value > peak {
			peak = s.Value
		}
		if peak > 0 {
			dd = math.Max(dd, (peak-s.Value)/peak*100)
		}
	}
	return dd
}

// RunInfo is what a Result alone does not know about a run.
type RunInfo struct {
	Strategy string
	Dataset  string
	Config   []byte
	Symbols  int
	HalfBake bool
	OrgPath  string
	Created  time.Time
}

// BacktestRun converts the result into the journal's row shape.
func (r Result) BacktestRun(info RunInfo) journal.BacktestRun {
	run := journal.BacktestRun{
		RunID:          r.RunID,
		Created:        info.Created,
		Strategy:       info.Strategy,
		Dataset:        info.Dataset,
		Config:         info.Config,
		Symbols:        info.Symbols,
		HalfBake:       info.HalfBake,
		Start:          r.Start,
		End:            r.End,
		StockDays:      r.StockDays,
		Sales:          r.Sales,
		Wins:           r.Wins,
		Losses:         r.Losses,
		StartEquity:    r.InitialEquity,
		EndEquity:      r.Equity,
		EndBuyingPower: r.BuyingPower,
		NetPL:          r.TotalProfit,
		ReturnPct:      r.ReturnPct,
		WinRate:        r.WinRate,
		PerDay:         r.PerDay,
		PerTrade:       r.PerTrade,
		ProfitFactor:   r.ProfitFactor,
		MaxDDPct:       r.MaxDDPct,
		OrgPath:        info.OrgPath,
	}
	if run.Created.IsZero() {
		run.Created = time.Now().UTC()
	}
	if r.OpenLots > 0 {
		run.Notes = append(run.Notes, fmt.Sprintf("%d lots still open at end", r.OpenLots))
	}
	if r.Wins+r.Losses == 0 {
		run.Notes = append(run.Notes, "no lots closed")
	}
	return run
}

package sim

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

// genBars draws a random walk of n valid daily bars.
func genBars(t *rapid.T, n int) []ohlc {
	out := make([]ohlc, n)
	prev := rapid.Float64Range(20, 200).Draw(t, "start")
	for i := range out {
		open := prev * (1 + rapid.Float64Range(-0.08, 0.08).Draw(t, "gap"))
		closeP := open * (1 + rapid.Float64Range(-0.05, 0.05).Draw(t, "move"))
		high := math.Max(open, closeP) * (1 + rapid.Float64Range(0, 0.03).Draw(t, "up"))
		low := math.Min(open, closeP) * (1 - rapid.Float64Range(0, 0.03).Draw(t, "down"))
		out[i] = ohlc{open, high, low, closeP}
		prev = closeP
	}
	return out
}

func pendingSells(a *Account, symbol string) (plain, bracket int) {
	for _, o := range a.Orders() {
		if o.Symbol == symbol && o.Action == Sell {
			plain += o.Shares
		}
	}
	for _, b := range a.BracketOrders() {
		if b.Symbol == symbol {
			bracket += b.Shares
		}
	}
	return plain, bracket
}

func TestProperty_SettlementInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		days := rapid.IntRange(5, 40).Draw(t, "days")
		data := newFakeData().add("AAPL", 1, genBars(t, days)...)
		strat := &recorder{}

		a, err := NewAccount(strat, data, Config{Start: d(0), End: d(days), InitialEquity: 10000})
		if err != nil {
			t.Fatalf("new account: %v", err)
		}

		for !a.Complete() {
			last, _ := a.Bar("AAPL")
			ref := last.Close
			if ref == 0 {
				ref = 100
			}

			for i, n := 0, rapid.IntRange(0, 3).Draw(t, "ops"); i < n; i++ {
				shares := rapid.IntRange(1, 30).Draw(t, "shares")
				price := ref * rapid.Float64Range(0.9, 1.1).Draw(t, "price")
				switch rapid.IntRange(0, 6).Draw(t, "op") {
				case 0:
					_, err = a.PlaceMarketBuy("AAPL", shares)
				case 1:
					_, err = a.PlaceLimitBuy("AAPL", shares, price)
				case 2:
					_, err = a.PlaceMarketSell("AAPL", shares)
				case 3:
					_, err = a.PlaceLimitSell("AAPL", shares, price)
				case 4:
					_, err = a.PlaceBracketSell("AAPL", shares, ref*0.95, ref*1.05)
				case 5:
					a.CancelOrders()
				case 6:
					a.CancelBracketOrders()
				}
			}

			before := a.Orders()
			beforeBrackets := a.BracketOrders()
			filled := map[string]bool{}
			nOrder, nBracket := len(strat.orderFills), len(strat.bracketFills)

			if err := a.Advance(); err != nil {
				t.Fatalf("advance: %v", err)
			}
			for _, f := range strat.orderFills[nOrder:] {
				filled[f.id] = true
			}
			for _, f := range strat.bracketFills[nBracket:] {
				filled[f.id] = true
			}

			// unfilled orders survive unchanged
			after := map[string]Order{}
			for _, o := range a.Orders() {
				after[o.ID] = o
			}
			for _, o := range before {
				got, ok := after[o.ID]
				if filled[o.ID] == ok {
					t.Fatalf("order %s filled=%v present=%v", o.ID, filled[o.ID], ok)
				}
				if ok && got != o {
					t.Fatalf("order %s changed: %+v -> %+v", o.ID, o, got)
				}
			}
			afterBrackets := map[string]BracketOrder{}
			for _, b := range a.BracketOrders() {
				afterBrackets[b.ID] = b
			}
			for _, b := range beforeBrackets {
				got, ok := afterBrackets[b.ID]
				if filled[b.ID] == ok {
					t.Fatalf("bracket %s filled=%v present=%v", b.ID, filled[b.ID], ok)
				}
				if ok && got != b {
					t.Fatalf("bracket %s changed", b.ID)
				}
			}

			owned := a.Shares("AAPL")
			plain, bracket := pendingSells(a, "AAPL")
			if plain > 0 && bracket > 0 {
				t.Fatalf("plain sells %d and brackets %d coexist", plain, bracket)
			}
			if owned < plain+bracket {
				t.Fatalf("owned %d < pending sells %d + brackets %d", owned, plain, bracket)
			}

			tol := 1e-6 * math.Max(1, math.Abs(a.Equity()))
			if diff := a.Equity() - (a.BuyingPower() + a.MarketValue()); math.Abs(diff) > tol {
				t.Fatalf("equity drifted by %v on %s", diff, a.CurrentDate())
			}
		}

		if got := len(a.EquityHistory()); got != days+1 {
			t.Fatalf("equity history has %d entries, want %d", got, days+1)
		}
	})
}

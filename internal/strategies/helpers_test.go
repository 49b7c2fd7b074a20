package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/internal/data"
	"github.com/rustyeddy/backtester/pkg/market"
	"github.com/rustyeddy/backtester/pkg/sim"
)

var epoch = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

func d(n int) time.Time { return epoch.AddDate(0, 0, n) }

// flat builds one bar per day with open, high, low and close all at the
// given price.
func flat(symbol string, prices ...float64) []market.Bar {
	out := make([]market.Bar, len(prices))
	for i, p := range prices {
		out[i] = market.Bar{Symbol: symbol, Time: d(i), Open: p, High: p, Low: p, Close: p, Volume: 1000}
	}
	return out
}

func newStore(t *testing.T, bars ...[]market.Bar) *data.Store {
	t.Helper()
	m := map[string][]market.Bar{}
	for _, b := range bars {
		m[b[0].Symbol] = b
	}
	s, err := data.NewStore(m, data.Options{})
	require.NoError(t, err)
	return s
}

func newAccount(t *testing.T, md sim.MarketData, strat sim.Strategy, days int) *sim.Account {
	t.Helper()
	a, err := sim.NewAccount(strat, md, sim.Config{Start: d(0), End: d(days), InitialEquity: 10000})
	require.NoError(t, err)
	return a
}

func advance(t *testing.T, a *sim.Account, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, a.Advance())
	}
}

func runAll(t *testing.T, a *sim.Account) {
	t.Helper()
	for !a.Complete() {
		require.NoError(t, a.Advance())
	}
}

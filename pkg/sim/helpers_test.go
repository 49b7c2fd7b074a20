package sim

import (
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/rustyeddy/backtester/pkg/journal"
	"github.com/rustyeddy/backtester/pkg/market"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// d returns the n-th day after epoch.
func d(n int) time.Time { return epoch.AddDate(0, 0, n) }

// ohlc is open, high, low, close.
type ohlc [4]float64

// fakeData trades on every day that has at least one bar.
type fakeData struct {
	bars    map[string][]market.Bar
	reduced int
	// lastOnly simulates a provider that hands back a single bar.
	lastOnly map[string]bool
	unknown  []string
}

func newFakeData() *fakeData {
	return &fakeData{bars: map[string][]market.Bar{}, lastOnly: map[string]bool{}}
}

// add appends one bar per entry for symbol starting at day n.
func (f *fakeData) add(symbol string, n int, days ...ohlc) *fakeData {
	for i, p := range days {
		f.bars[symbol] = append(f.bars[symbol], market.Bar{
			Symbol: symbol, Time: d(n + i),
			Open: p[0], High: p[1], Low: p[2], Close: p[3], Volume: 1000,
		})
	}
	market.SortBars(f.bars[symbol])
	return f
}

func (f *fakeData) Bars(symbol string) ([]market.Bar, error) {
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, market.ErrInvalidData)
	}
	return bars, nil
}

func (f *fakeData) BarsBetween(symbol string, start, end time.Time) ([]market.Bar, error) {
	bars, err := f.Bars(symbol)
	if err != nil {
		return nil, err
	}
	w := market.Window(bars, start, end)
	if f.lastOnly[symbol] && len(w) > 1 {
		w = w[len(w)-1:]
	}
	return w, nil
}

func (f *fakeData) IsTradingDay(day time.Time) bool {
	for _, bars := range f.bars {
		for _, b := range bars {
			if market.SameDay(b.Time, day) {
				return true
			}
		}
	}
	return false
}

func (f *fakeData) Symbols(reduced bool) []string {
	out := make([]string, 0, len(f.bars))
	for s := range f.bars {
		out = append(out, s)
	}
	sort.Strings(out)
	out = append(out, f.unknown...)
	if reduced && f.reduced > 0 && f.reduced < len(out) {
		out = out[:f.reduced]
	}
	return out
}

type fill struct {
	id    string
	price float64
}

// recorder is a scriptable strategy.
type recorder struct {
	days         int
	onDay        func(a *Account) error
	onFill       func(a *Account, o Order, price float64) error
	orderFills   []fill
	bracketFills []fill
}

func (r *recorder) OnDay(a *Account) error {
	r.days++
	if r.onDay != nil {
		return r.onDay(a)
	}
	return nil
}

func (r *recorder) OnOrderFilled(a *Account, o Order, price float64) error {
	r.orderFills = append(r.orderFills, fill{o.ID, price})
	if r.onFill != nil {
		return r.onFill(a, o, price)
	}
	return nil
}

func (r *recorder) OnBracketFilled(a *Account, b BracketOrder, price float64) error {
	r.bracketFills = append(r.bracketFills, fill{b.ID, price})
	return nil
}

type memJournal struct {
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
	events []journal.EventRecord
	err    error
}

func (m *memJournal) RecordTrade(t journal.TradeRecord) error {
	m.trades = append(m.trades, t)
	return m.err
}

func (m *memJournal) RecordEquity(e journal.EquitySnapshot) error {
	m.equity = append(m.equity, e)
	return m.err
}

func (m *memJournal) RecordEvent(e journal.EventRecord) error {
	m.events = append(m.events, e)
	return m.err
}

func (m *memJournal) Close() error { return nil }

func newAccount(t *testing.T, data MarketData, strat Strategy, equity float64, days int, opts ...Option) *Account {
	t.Helper()
	a, err := NewAccount(strat, data, Config{Start: d(0), End: d(days), InitialEquity: equity}, opts...)
	require.NoError(t, err)
	return a
}

func advance(t *testing.T, a *Account, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, a.Advance())
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// reconciles reports whether incremental equity matches cash plus the lots
// valued at their latest close.
func reconciles(a *Account) bool {
	return approxEqual(a.Equity(), a.BuyingPower()+a.MarketValue())
}

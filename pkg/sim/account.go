package sim

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/pkg/journal"
	"github.com/rustyeddy/backtester/pkg/market"
	"go.uber.org/zap"
)

// Config is the fixed shape of one simulation.
type Config struct {
	Start         time.Time
	End           time.Time
	InitialEquity float64
	HalfBake      bool
}

// Account owns simulated time, cash, lots and pending orders. It is not safe
// for concurrent use; a strategy reads and mutates it from inside Advance.
type Account struct {
	strategy Strategy
	data     MarketData
	journal  journal.Journal
	log      *zap.Logger
	now      func() time.Time

	runID    string
	halfBake bool

	start   time.Time
	end     time.Time
	current time.Time

	buyingPower   float64
	equity        float64
	initialEquity float64

	orders    []Order
	brackets  []BracketOrder
	positions []*Position

	wins        int
	losses      int
	sales       int
	grossProfit float64
	grossLoss   float64

	equityHistory      []Sample
	buyingPowerHistory []Sample
	stockDays          []time.Time

	// visible market: bars from start through current per symbol
	market map[string][]market.Bar

	events []Event

	// flushed to the journal at the end of each day
	pendingTrades []journal.TradeRecord
	pendingEvents []journal.EventRecord
}

// NewAccount returns an account positioned at cfg.Start with the start
// entry already in both histories.
func NewAccount(strategy Strategy, data MarketData, cfg Config, opts ...Option) (*Account, error) {
	if strategy == nil {
		return nil, fmt.Errorf("sim: strategy is required")
	}
	if data == nil {
		return nil, fmt.Errorf("sim: market data is required")
	}
	if cfg.InitialEquity <= 0 {
		return nil, fmt.Errorf("sim: initial equity must be positive")
	}
	start, end := market.Day(cfg.Start), market.Day(cfg.End)
	if end.Before(start) {
		return nil, fmt.Errorf("sim: end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	a := &Account{
		strategy:      strategy,
		data:          data,
		journal:       journal.Nop{},
		log:           zap.NewNop(),
		now:           time.Now,
		runID:         id.NewRunID(),
		halfBake:      cfg.HalfBake,
		start:         start,
		end:           end,
		current:       start,
		buyingPower:   cfg.InitialEquity,
		equity:        cfg.InitialEquity,
		initialEquity: cfg.InitialEquity,
		market:        map[string][]market.Bar{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(zap.String("run_id", a.runID))

	a.recordDay()
	if err := a.flush(); err != nil {
		return nil, err
	}
	return a, nil
}

// Complete reports whether the end date has been simulated.
func (a *Account) Complete() bool {
	return !a.current.Before(a.end)
}

// Advance simulates the next calendar day. On a trading day the market
// window is refreshed, lots are marked overnight, pending orders settle, lots
// are marked intraday and the strategy runs. Every day ends with one entry in
// the equity and buying power histories.
//
// Strategy callback errors do not interrupt the day; they are joined and
// returned once the day is committed. ErrInvalidData from the provider aborts
// the trading steps of the day.
func (a *Account) Advance() error {
	if a.Complete() {
		return ErrAlreadyComplete
	}
	a.current = a.current.AddDate(0, 0, 1)

	var err error
	if a.data.IsTradingDay(a.current) {
		err = a.tradeDay()
	}

	a.recordDay()
	if ferr := a.flush(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return err
}

func (a *Account) tradeDay() error {
	a.stockDays = append(a.stockDays, a.current)

	if err := a.refreshMarket(); err != nil {
		a.logf("market refresh failed: %v", err)
		return err
	}

	a.markOvernight()
	settleErr := a.settle()
	a.markIntraday()

	a.logf("day closed: equity %.2f buying power %.2f lots %d orders %d brackets %d",
		a.equity, a.buyingPower, len(a.positions), len(a.orders), len(a.brackets))

	var dayErr error
	if err := a.strategy.OnDay(a); err != nil {
		dayErr = fmt.Errorf("strategy on day %s: %w", a.current.Format(time.DateOnly), err)
	}
	return errors.Join(settleErr, dayErr)
}

// refreshMarket rebuilds the visible window. Symbols with open lots or
// pending orders stay visible even when the reduced universe omits them.
func (a *Account) refreshMarket() error {
	symbols := a.data.Symbols(a.halfBake)
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		seen[s] = true
	}
	var extra []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			extra = append(extra, s)
		}
	}
	for _, p := range a.positions {
		add(p.Symbol)
	}
	for _, o := range a.orders {
		add(o.Symbol)
	}
	for _, b := range a.brackets {
		add(b.Symbol)
	}
	sort.Strings(extra)

	window := make(map[string][]market.Bar, len(symbols)+len(extra))
	for _, s := range append(slices.Clone(symbols), extra...) {
		bars, err := a.data.BarsBetween(s, a.start, a.current)
		if err != nil {
			return fmt.Errorf("bars for %s: %w", s, err)
		}
		if len(bars) > 0 {
			window[s] = bars
		}
	}
	a.market = window
	return nil
}

// session returns today's bar for symbol and, when there is one, the bar
// before it. ok is false when the symbol has no bar dated today.
func (a *Account) session(symbol string) (today, prev market.Bar, hasPrev, ok bool) {
	bars := a.market[symbol]
	if len(bars) == 0 {
		return
	}
	today = bars[len(bars)-1]
	if !market.SameDay(today.Time, a.current) {
		return market.Bar{}, market.Bar{}, false, false
	}
	if len(bars) >= 2 {
		prev, hasPrev = bars[len(bars)-2], true
	}
	return today, prev, hasPrev, true
}

func (a *Account) markOvernight() {
	skipped := map[string]bool{}
	for _, p := range a.positions {
		today, prev, hasPrev, ok := a.session(p.Symbol)
		if !ok {
			continue
		}
		if !hasPrev {
			if !skipped[p.Symbol] {
				skipped[p.Symbol] = true
				a.log.Warn("overnight mark skipped", zap.String("symbol", p.Symbol), zap.Error(ErrInsufficientHistory))
				a.logf("overnight mark skipped for %s: %v", p.Symbol, ErrInsufficientHistory)
			}
			continue
		}
		a.equity += (today.Open - prev.Close) * float64(p.Shares)
	}
}

func (a *Account) markIntraday() {
	for _, p := range a.positions {
		today, _, _, ok := a.session(p.Symbol)
		if !ok {
			continue
		}
		delta := (today.Close - today.Open) * float64(p.Shares)
		a.equity += delta
		p.History = append(p.History, PricePoint{Date: a.current, Close: today.Close, Delta: delta})
	}
}

func (a *Account) recordDay() {
	a.equityHistory = append(a.equityHistory, Sample{Date: a.current, Value: a.equity})
	a.buyingPowerHistory = append(a.buyingPowerHistory, Sample{Date: a.current, Value: a.buyingPower})
}

// flush writes the day's trades, events and equity snapshot.
func (a *Account) flush() error {
	var errs []error
	for _, t := range a.pendingTrades {
		errs = append(errs, a.journal.RecordTrade(t))
	}
	for _, e := range a.pendingEvents {
		errs = append(errs, a.journal.RecordEvent(e))
	}
	errs = append(errs, a.journal.RecordEquity(journal.EquitySnapshot{
		RunID:       a.runID,
		Time:        a.current,
		BuyingPower: a.buyingPower,
		Equity:      a.equity,
		OpenLots:    len(a.positions),
	}))
	a.pendingTrades = a.pendingTrades[:0]
	a.pendingEvents = a.pendingEvents[:0]

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// logf appends to the event stream.
func (a *Account) logf(format string, args ...any) {
	ev := Event{Date: a.current, Logged: a.now(), Message: fmt.Sprintf(format, args...)}
	a.events = append(a.events, ev)
	a.pendingEvents = append(a.pendingEvents, journal.EventRecord{
		RunID:   a.runID,
		Date:    ev.Date,
		Logged:  ev.Logged,
		Message: ev.Message,
	})
	a.log.Debug(ev.Message, zap.Time("date", ev.Date))
}

// Log lets a strategy add a line to the event stream.
func (a *Account) Log(format string, args ...any) {
	a.logf(format, args...)
}

func (a *Account) RunID() string { return a.runID }
func (a *Account) CurrentDate() time.Time { return a.current }
func (a *Account) StartDate() time.Time { return a.start }
func (a *Account) EndDate() time.Time { return a.end }
func (a *Account) BuyingPower() float64 { return a.buyingPower }
func (a *Account) Equity() float64 { return a.equity }
func (a *Account) InitialEquity() float64 { return a.initialEquity }
func (a *Account) Wins() int { return a.wins }
func (a *Account) Losses() int { return a.losses }
func (a *Account) Sales() int { return a.sales }
func (a *Account) HalfBake() bool { return a.halfBake }
func (a *Account) Data() MarketData { return a.data }
func (a *Account) Events() []Event { return slices.Clone(a.events) }
func (a *Account) StockDays() []time.Time { return slices.Clone(a.stockDays) }
func (a *Account) EquityHistory() []Sample { return slices.Clone(a.equityHistory) }
func (a *Account) Orders() []Order { return slices.Clone(a.orders) }
func (a *Account) BracketOrders() []BracketOrder {
	return slices.Clone(a.brackets)
}
func (a *Account) BuyingPowerHistory() []Sample {
	return slices.Clone(a.buyingPowerHistory)
}

// Realized returns the summed profit of winning lot closes and the summed
// loss (positive) of losing ones.
func (a *Account) Realized() (profit, loss float64) {
	return a.grossProfit, a.grossLoss
}

// Positions returns copies of the open lots in insertion order.
func (a *Account) Positions() []Position {
	out := make([]Position, len(a.positions))
	for i, p := range a.positions {
		out[i] = *p
		out[i].History = slices.Clone(p.History)
	}
	return out
}

// Shares returns the number of shares held across all lots of symbol.
func (a *Account) Shares(symbol string) int {
	n := 0
	for _, p := range a.positions {
		if p.Symbol == symbol {
			n += p.Shares
		}
	}
	return n
}

// Symbols lists the symbols in today's visible window, sorted.
func (a *Account) Symbols() []string {
	out := make([]string, 0, len(a.market))
	for s := range a.market {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// History returns the visible bars of symbol, oldest first. The slice is
// shared with the provider and must not be modified.
func (a *Account) History(symbol string) []market.Bar {
	return a.market[symbol]
}

// Bar returns the latest visible bar of symbol and whether it is dated today.
func (a *Account) Bar(symbol string) (market.Bar, bool) {
	bars := a.market[symbol]
	if len(bars) == 0 {
		return market.Bar{}, false
	}
	last := bars[len(bars)-1]
	return last, market.SameDay(last.Time, a.current)
}

// MarketValue prices every lot at its latest visible close.
func (a *Account) MarketValue() float64 {
	v := 0.0
	for _, p := range a.positions {
		if bars := a.market[p.Symbol]; len(bars) > 0 {
			v += bars[len(bars)-1].Close * float64(p.Shares)
		}
	}
	return v
}

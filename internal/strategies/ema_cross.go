package strategies

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/internal/config"
	"github.com/rustyeddy/backtester/internal/indicators"
	"github.com/rustyeddy/backtester/internal/risk"
	"github.com/rustyeddy/backtester/pkg/market"
	"github.com/rustyeddy/backtester/pkg/sim"
)

// EmaCrossStrategy goes long on a fast/slow EMA crossover.
// - Enters only on a bull cross, sized by risk.Calculate
// - Protects every filled entry with a bracket sell (stop, take profit)
// - Exits on a bear cross by replacing the bracket with a market sell
// - Optionally skips entries while ADX says the market is not trending
type EmaCrossStrategy struct {
	Symbols []string

	FastPeriod int // 20
	SlowPeriod int // 50

	RiskPct float64 // 0.01
	StopPct float64 // stop distance as a fraction of entry, when ATRPeriod is 0
	RR      float64 // take-profit multiple of risk, e.g. 2.0

	// TargetPct places the take profit at a fixed fraction above entry
	// instead of RR x the stop distance.
	TargetPct float64

	ATRPeriod int
	ATRMult   float64

	ADXPeriod int     // 0 disables the regime filter
	ADXMin    float64 // 25

	Policy risk.Policy

	lastDiff map[string]float64
	stopDist map[string]float64
}

func NewEmaCross(symbols []string, fast, slow int, riskPct, stopPct, rr float64) *EmaCrossStrategy {
	if rr <= 0 {
		rr = 2.0
	}
	return &EmaCrossStrategy{
		Symbols:    symbols,
		FastPeriod: fast,
		SlowPeriod: slow,
		RiskPct:    riskPct,
		StopPct:    stopPct,
		RR:         rr,
		Policy:     risk.Policy{MaxRiskPct: riskPct},
		lastDiff:   map[string]float64{},
		stopDist:   map[string]float64{},
	}
}

func newEmaCross(cfg config.StrategyConfig) (sim.Strategy, error) {
	fast, slow := cfg.ShortPeriod, cfg.LongPeriod
	if fast <= 0 || slow <= fast {
		return nil, fmt.Errorf("ema-cross: need 0 < short_period < long_period, got %d/%d", fast, slow)
	}
	if cfg.RiskPct <= 0 {
		return nil, fmt.Errorf("ema-cross: risk_pct must be positive")
	}
	if cfg.StopPct <= 0 && cfg.ATRPeriod <= 0 {
		return nil, fmt.Errorf("ema-cross: stop_pct or atr_period is required")
	}
	s := NewEmaCross(cfg.Symbols, fast, slow, cfg.RiskPct, cfg.StopPct, cfg.RR)
	s.ATRPeriod = cfg.ATRPeriod
	s.TargetPct = cfg.TargetPct
	s.ATRMult = cfg.ATRMult
	if s.ATRMult <= 0 {
		s.ATRMult = 2
	}
	s.ADXPeriod = cfg.ADXPeriod
	s.ADXMin = cfg.ADXMin
	if s.ADXPeriod > 0 && s.ADXMin <= 0 {
		s.ADXMin = 25
	}
	s.Policy.MaxOpenPositions = cfg.MaxOpen
	s.Policy.MinRR = cfg.MinRR
	return s, nil
}

// stopDistance returns how far below entry the stop goes, or 0 when the
// history is too short to say.
func (s *EmaCrossStrategy) stopDistance(hist []market.Bar, entry float64) float64 {
	if s.ATRPeriod > 0 {
		atr, err := indicators.ATR(hist, s.ATRPeriod)
		if err != nil {
			return 0
		}
		return atr * s.ATRMult
	}
	return entry * s.StopPct
}

// target returns the take-profit price for an entry.
func (s *EmaCrossStrategy) target(entry, dist float64) float64 {
	if s.TargetPct > 0 {
		return entry * (1 + s.TargetPct)
	}
	return entry + dist*s.RR
}

// trending reports whether the ADX regime filter allows an entry. Too
// little history to compute ADX counts as not trending.
func (s *EmaCrossStrategy) trending(hist []market.Bar) bool {
	if s.ADXPeriod <= 0 {
		return true
	}
	adx, err := indicators.ADX(hist, s.ADXPeriod)
	if err != nil {
		return false
	}
	return adx >= s.ADXMin
}

func (s *EmaCrossStrategy) OnDay(a *sim.Account) error {
	for _, sym := range universe(a, s.Symbols) {
		bar, today := a.Bar(sym)
		if !today {
			continue
		}
		hist := a.History(sym)

		fast, err := indicators.EMA(hist, s.FastPeriod)
		if errors.Is(err, indicators.ErrNotEnoughBars) {
			continue
		}
		if err != nil {
			return err
		}
		slow, err := indicators.EMA(hist, s.SlowPeriod)
		if errors.Is(err, indicators.ErrNotEnoughBars) {
			continue
		}
		if err != nil {
			return err
		}

		diff := fast - slow
		last, ok := s.lastDiff[sym]
		s.lastDiff[sym] = diff
		if !ok {
			continue
		}

		switch {
		case diff > 0 && last <= 0:
			if !s.trending(hist) {
				a.Log("ema-cross skip %s: adx below %.0f", sym, s.ADXMin)
				continue
			}
			if err := s.enter(a, sym, bar.Close, hist); err != nil {
				return err
			}
		case diff < 0 && last >= 0:
			if err := s.exit(a, sym); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *EmaCrossStrategy) enter(a *sim.Account, sym string, entry float64, hist []market.Bar) error {
	if a.Shares(sym) > 0 {
		return nil
	}
	for _, o := range a.Orders() {
		if o.Symbol == sym && o.Action == sim.Buy {
			return nil
		}
	}

	dist := s.stopDistance(hist, entry)
	if dist <= 0 || dist >= entry {
		return nil
	}
	size := risk.Calculate(risk.Inputs{
		Equity:      a.Equity(),
		RiskPct:     s.RiskPct,
		EntryPrice:  entry,
		StopPrice:   entry - dist,
		BuyingPower: a.BuyingPower(),
	})
	if size.Shares <= 0 {
		return nil
	}

	decision := risk.Evaluate(s.Policy, risk.TradeIntent{
		Symbol:     sym,
		Shares:     size.Shares,
		Entry:      entry,
		Stop:       entry - dist,
		TakeProfit: s.target(entry, dist),
	}, risk.AccountSnapshot{
		Equity:        a.Equity(),
		OpenPositions: openPositions(a),
	})
	if !decision.Allowed {
		a.Log("ema-cross reject %s: %s", sym, decision.Reasons())
		return nil
	}

	if _, err := a.PlaceMarketBuy(sym, size.Shares); err != nil {
		return err
	}
	s.stopDist[sym] = dist
	a.Log("ema-cross entry %s shares=%d stop_dist=%.4f risk=%.2f", sym, size.Shares, dist, size.RiskAmount)
	return nil
}

// openPositions counts the distinct symbols currently held.
func openPositions(a *sim.Account) int {
	held := map[string]bool{}
	for _, p := range a.Positions() {
		held[p.Symbol] = true
	}
	return len(held)
}

func (s *EmaCrossStrategy) exit(a *sim.Account, sym string) error {
	for _, b := range a.BracketOrders() {
		if b.Symbol == sym {
			a.CancelOrder(b.ID)
		}
	}
	for _, o := range a.Orders() {
		if o.Symbol == sym {
			a.CancelOrder(o.ID)
		}
	}
	shares := a.Shares(sym)
	if shares <= 0 {
		return nil
	}
	_, err := a.PlaceMarketSell(sym, shares)
	return err
}

// OnOrderFilled attaches the bracket to a filled entry.
func (s *EmaCrossStrategy) OnOrderFilled(a *sim.Account, o sim.Order, price float64) error {
	if o.Action != sim.Buy {
		return nil
	}
	dist, ok := s.stopDist[o.Symbol]
	if !ok || dist >= price {
		return nil
	}

	for _, b := range a.BracketOrders() {
		if b.Symbol == o.Symbol {
			a.CancelOrder(b.ID)
		}
	}
	lower := price - dist
	upper := s.target(price, dist)
	_, err := a.PlaceBracketSell(o.Symbol, a.Shares(o.Symbol), lower, upper)
	return err
}

func (s *EmaCrossStrategy) OnBracketFilled(a *sim.Account, b sim.BracketOrder, price float64) error {
	delete(s.stopDist, b.Symbol)
	a.Log("ema-cross exit %s at %.2f", b.Symbol, price)
	return nil
}

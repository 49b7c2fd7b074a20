package strategies

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/internal/config"
	"github.com/rustyeddy/backtester/internal/indicators"
	"github.com/rustyeddy/backtester/pkg/sim"
)

// SMACrossStrategy trades the golden cross:
// - Cancels yesterday's unfilled orders every day
// - Buys Budget worth of a symbol when the short SMA moves above the long
// - Sells the whole holding when it falls back to or below the long
type SMACrossStrategy struct {
	Base
	Symbols     []string
	ShortPeriod int // 50
	LongPeriod  int // 200
	Budget      float64
}

func newSMACross(cfg config.StrategyConfig) (sim.Strategy, error) {
	s := &SMACrossStrategy{
		Symbols:     cfg.Symbols,
		ShortPeriod: cfg.ShortPeriod,
		LongPeriod:  cfg.LongPeriod,
		Budget:      cfg.Budget,
	}
	if s.ShortPeriod <= 0 || s.LongPeriod <= s.ShortPeriod {
		return nil, fmt.Errorf("sma-cross: need 0 < short_period < long_period, got %d/%d", s.ShortPeriod, s.LongPeriod)
	}
	if s.Budget <= 0 {
		return nil, fmt.Errorf("sma-cross: budget must be positive")
	}
	return s, nil
}

func (s *SMACrossStrategy) OnDay(a *sim.Account) error {
	a.CancelOrders()

	for _, sym := range universe(a, s.Symbols) {
		bar, today := a.Bar(sym)
		if !today {
			continue
		}

		cross, err := indicators.Cross(a.History(sym), s.ShortPeriod, s.LongPeriod)
		if errors.Is(err, indicators.ErrNotEnoughBars) {
			continue
		}
		if err != nil {
			return err
		}

		switch cross {
		case 1:
			shares := int(s.Budget / bar.Close)
			if shares <= 0 {
				continue
			}
			if _, err := a.PlaceMarketBuy(sym, shares); err != nil {
				return err
			}
		case -1:
			shares := a.Shares(sym)
			if shares <= 0 {
				continue
			}
			if _, err := a.PlaceMarketSell(sym, shares); err != nil {
				return err
			}
		}
	}
	return nil
}

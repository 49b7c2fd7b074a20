package strategies

import (
	"fmt"

	"github.com/rustyeddy/backtester/internal/config"
	"github.com/rustyeddy/backtester/pkg/sim"
)

// BuyHoldStrategy spends Budget on each symbol the first day it trades and
// never sells.
type BuyHoldStrategy struct {
	Base
	Symbols []string
	Budget  float64

	bought map[string]bool
}

func NewBuyHold(symbols []string, budget float64) *BuyHoldStrategy {
	return &BuyHoldStrategy{Symbols: symbols, Budget: budget, bought: map[string]bool{}}
}

func newBuyHold(cfg config.StrategyConfig) (sim.Strategy, error) {
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("buy-hold: budget must be positive")
	}
	return NewBuyHold(cfg.Symbols, cfg.Budget), nil
}

func (s *BuyHoldStrategy) OnDay(a *sim.Account) error {
	for _, sym := range universe(a, s.Symbols) {
		if s.bought[sym] {
			continue
		}
		bar, today := a.Bar(sym)
		if !today || bar.Close <= 0 {
			continue
		}
		shares := int(s.Budget / bar.Close)
		if shares <= 0 {
			continue
		}
		if _, err := a.PlaceMarketBuy(sym, shares); err != nil {
			return err
		}
		s.bought[sym] = true
	}
	return nil
}

// Package strategies holds the built-in trading strategies and the registry
// the CLI resolves them from.
package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/backtester/internal/config"
	"github.com/rustyeddy/backtester/pkg/sim"
)

// Factory builds a strategy from its config section.
type Factory func(cfg config.StrategyConfig) (sim.Strategy, error)

var registry = map[string]Factory{}

func init() {
	Register("noop", func(config.StrategyConfig) (sim.Strategy, error) { return NoopStrategy{}, nil })
	Register("buy-hold", newBuyHold)
	Register("sma-cross", newSMACross)
	Register("ema-cross", newEmaCross)
}

// Register makes a strategy available by name. Names are case insensitive.
func Register(name string, f Factory) {
	registry[normalize(name)] = f
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names lists the registered strategies, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// StrategyByName builds the strategy cfg.Name refers to.
func StrategyByName(cfg config.StrategyConfig) (sim.Strategy, error) {
	f, ok := registry[normalize(cfg.Name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", cfg.Name, strings.Join(Names(), ", "))
	}
	return f(cfg)
}

// universe returns the configured symbols when set, otherwise everything
// the account can see today.
func universe(a *sim.Account, symbols []string) []string {
	if len(symbols) > 0 {
		return symbols
	}
	return a.Symbols()
}

// Base implements the fill callbacks as no-ops so strategies can embed it.
type Base struct{}

func (Base) OnOrderFilled(*sim.Account, sim.Order, float64) error { return nil }

func (Base) OnBracketFilled(*sim.Account, sim.BracketOrder, float64) error { return nil }

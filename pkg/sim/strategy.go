package sim

import (
	"time"

	"github.com/rustyeddy/backtester/pkg/market"
)

// MarketData supplies daily history. Implementations are expected to be
// in-memory; the account calls them on every trading day.
type MarketData interface {
	// Bars returns the full history of symbol, oldest first.
	Bars(symbol string) ([]market.Bar, error)
	// BarsBetween returns the bars of symbol dated within [start, end].
	// Unknown symbols fail with ErrInvalidData.
	BarsBetween(symbol string, start, end time.Time) ([]market.Bar, error)
	IsTradingDay(day time.Time) bool
	// Symbols lists tradable symbols in a stable order. reduced selects the
	// smaller half-bake universe.
	Symbols(reduced bool) []string
}

// Strategy is called inline by Advance and may place or cancel orders on the
// account it is handed.
type Strategy interface {
	OnDay(a *Account) error
	OnOrderFilled(a *Account, o Order, price float64) error
	OnBracketFilled(a *Account, b BracketOrder, price float64) error
}

// Package data builds the in-memory market history a simulation reads from.
package data

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/pkg/market"
)

// DefaultHalfBakeCount is the size of the reduced universe.
const DefaultHalfBakeCount = 200

// Options shape a Store.
type Options struct {
	// CalendarSymbol defines trading days. Empty means any day on which at
	// least one symbol has a bar.
	CalendarSymbol string
	// HalfBakeCount is how many symbols Symbols(true) returns.
	HalfBakeCount int
	// Universe restricts tradable symbols. Empty means all loaded symbols.
	Universe []string
}

// Store holds every symbol's daily history in memory. It is built once and
// only read afterwards, so it is safe to share.
type Store struct {
	bars     map[string][]market.Bar
	symbols  []string
	reduced  []string
	calendar map[time.Time]struct{}
}

// NewStore takes ownership of bars, sorting each history oldest first. A
// history with two bars on one day fails with market.ErrInvalidData.
func NewStore(bars map[string][]market.Bar, opts Options) (*Store, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars loaded: %w", market.ErrInvalidData)
	}

	s := &Store{
		bars:     make(map[string][]market.Bar, len(bars)),
		calendar: map[time.Time]struct{}{},
	}
	for sym, hist := range bars {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || len(hist) == 0 {
			continue
		}
		market.SortBars(hist)
		for i := 1; i < len(hist); i++ {
			if market.SameDay(hist[i-1].Time, hist[i].Time) {
				return nil, fmt.Errorf("%s has two bars on %s: %w",
					sym, market.Day(hist[i].Time).Format(time.DateOnly), market.ErrInvalidData)
			}
		}
		if _, dup := s.bars[sym]; dup {
			return nil, fmt.Errorf("%s loaded twice: %w", sym, market.ErrInvalidData)
		}
		s.bars[sym] = hist
	}

	if len(opts.Universe) > 0 {
		for _, sym := range opts.Universe {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if _, ok := s.bars[sym]; ok {
				s.symbols = append(s.symbols, sym)
			}
		}
	} else {
		for sym := range s.bars {
			s.symbols = append(s.symbols, sym)
		}
	}
	sort.Strings(s.symbols)
	s.symbols = compact(s.symbols)
	if len(s.symbols) == 0 {
		return nil, fmt.Errorf("no tradable symbols: %w", market.ErrInvalidData)
	}

	n := opts.HalfBakeCount
	if n <= 0 {
		n = DefaultHalfBakeCount
	}
	s.reduced = s.symbols[:min(n, len(s.symbols))]

	if opts.CalendarSymbol != "" {
		cal := strings.ToUpper(opts.CalendarSymbol)
		hist, ok := s.bars[cal]
		if !ok {
			return nil, fmt.Errorf("calendar symbol %s: %w", cal, market.ErrInvalidData)
		}
		for _, b := range hist {
			s.calendar[market.Day(b.Time)] = struct{}{}
		}
	} else {
		for _, hist := range s.bars {
			for _, b := range hist {
				s.calendar[market.Day(b.Time)] = struct{}{}
			}
		}
	}

	return s, nil
}

func compact(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// Bars returns the full history of symbol, oldest first.
func (s *Store) Bars(symbol string) ([]market.Bar, error) {
	hist, ok := s.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("no history for %s: %w", symbol, market.ErrInvalidData)
	}
	return hist, nil
}

// BarsBetween returns the bars of symbol dated within [start, end]. A known
// symbol with nothing in range yields an empty slice.
func (s *Store) BarsBetween(symbol string, start, end time.Time) ([]market.Bar, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("range %s..%s: %w", start.Format(time.DateOnly), end.Format(time.DateOnly), market.ErrInvalidData)
	}
	hist, err := s.Bars(symbol)
	if err != nil {
		return nil, err
	}
	return market.Window(hist, start, end), nil
}

func (s *Store) IsTradingDay(day time.Time) bool {
	_, ok := s.calendar[market.Day(day)]
	return ok
}

// Symbols returns the tradable symbols sorted. reduced returns the first
// HalfBakeCount of them.
func (s *Store) Symbols(reduced bool) []string {
	if reduced {
		return s.reduced
	}
	return s.symbols
}

// TradingDays returns the number of calendar entries within [start, end].
func (s *Store) TradingDays(start, end time.Time) int {
	n := 0
	for d := market.Day(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if s.IsTradingDay(d) {
			n++
		}
	}
	return n
}

// Len is the number of loaded symbols, tradable or not.
func (s *Store) Len() int { return len(s.bars) }

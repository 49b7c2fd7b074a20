package sim

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/pkg/journal"
	"github.com/rustyeddy/backtester/pkg/market"
	"go.uber.org/zap"
)

// crossPrice is the touch-then-gap rule shared by limit orders and bracket
// thresholds. A price inside today's range fills at that price. A price that
// the market jumped over between prev and today's open fills at the open.
// The gap test needs prev; without it only the touch test applies.
func crossPrice(price float64, today, prev market.Bar, hasPrev bool) (float64, bool) {
	if today.Low <= price && price <= today.High {
		return price, true
	}
	if !hasPrev {
		return 0, false
	}
	if prev.High < price && price < today.Open {
		return today.Open, true
	}
	if today.Open < price && price < prev.Low {
		return today.Open, true
	}
	return 0, false
}

// orderFill decides whether o fills today and at what price.
func (a *Account) orderFill(o Order, today, prev market.Bar, hasPrev bool) (float64, bool) {
	switch o.Kind {
	case Market:
		if o.Action == Buy && today.Open*float64(o.Shares) > a.buyingPower {
			return 0, false
		}
		return today.Open, true

	case Limit:
		// buys are cash checked at the limit, not the realized price
		if o.Action == Buy && o.LimitPrice*float64(o.Shares) > a.buyingPower {
			return 0, false
		}
		return crossPrice(o.LimitPrice, today, prev, hasPrev)
	}
	return 0, false
}

// bracketFill tests Upper before Lower.
func bracketFill(b BracketOrder, today, prev market.Bar, hasPrev bool) (float64, string, bool) {
	if p, ok := crossPrice(b.Upper, today, prev, hasPrev); ok {
		return p, "bracket-upper", true
	}
	if p, ok := crossPrice(b.Lower, today, prev, hasPrev); ok {
		return p, "bracket-lower", true
	}
	return 0, "", false
}

// settle walks a snapshot of the pending orders, then of the pending
// brackets, in insertion order. Orders cancelled by a fill callback are
// skipped; orders placed by one wait for the next trading day. A symbol with
// no bar dated today leaves its orders pending.
func (a *Account) settle() error {
	var errs []error

	for _, o := range slices.Clone(a.orders) {
		if a.orderIndex(o.ID) < 0 {
			continue
		}
		today, prev, hasPrev, ok := a.session(o.Symbol)
		if !ok {
			continue
		}
		price, filled := a.orderFill(o, today, prev, hasPrev)
		if !filled {
			continue
		}

		a.removeOrder(o.ID)
		a.execute(o.Action, o.Symbol, o.Shares, price, today.Open, o.Kind.String())
		if err := a.strategy.OnOrderFilled(a, o, price); err != nil {
			errs = append(errs, fmt.Errorf("order %s fill callback: %w", o.ID, err))
		}
	}

	for _, b := range slices.Clone(a.brackets) {
		if a.bracketIndex(b.ID) < 0 {
			continue
		}
		today, prev, hasPrev, ok := a.session(b.Symbol)
		if !ok {
			continue
		}
		price, reason, filled := bracketFill(b, today, prev, hasPrev)
		if !filled {
			continue
		}

		a.removeBracket(b.ID)
		a.execute(b.Action, b.Symbol, b.Shares, price, today.Open, reason)
		if err := a.strategy.OnBracketFilled(a, b, price); err != nil {
			errs = append(errs, fmt.Errorf("bracket %s fill callback: %w", b.ID, err))
		}
	}

	return errors.Join(errs...)
}

// execute books a fill. Lots are valued at today's open after the overnight
// mark, so the equity correction moves that valuation to the realized price.
func (a *Account) execute(action Action, symbol string, shares int, price, open float64, reason string) {
	qty := float64(shares)

	switch action {
	case Buy:
		a.buyingPower -= price * qty
		// Sign is the reverse of the sell case. The intraday pass marks the
		// new lot open to close, but it earned close minus fill. Using
		// (fill - open) here would leave equity != cash + market value.
		a.equity += (open - price) * qty
		a.positions = append(a.positions, &Position{
			ID:       id.New(),
			Symbol:   symbol,
			Shares:   shares,
			BuyPrice: price,
			OpenedOn: a.current,
		})
		a.logf("bought %d %s at %.4f (%s)", shares, symbol, price, reason)

	case Sell:
		sold := a.consumeLots(symbol, shares, price, reason)
		a.buyingPower += price * float64(sold)
		a.equity += (price - open) * float64(sold)
		a.sales++
		a.logf("sold %d %s at %.4f (%s)", sold, symbol, price, reason)
		if sold < shares {
			a.log.Error("sell exceeded holdings", zap.String("symbol", symbol), zap.Int("want", shares), zap.Int("sold", sold))
			a.logf("sell of %d %s exceeded holdings by %d", shares, symbol, shares-sold)
		}
	}
}

// consumeLots removes shares from the lots of symbol oldest first and
// returns how many were sold. Every lot drawn from counts as one win or one
// loss; a close at the buy price is a loss.
func (a *Account) consumeLots(symbol string, shares int, price float64, reason string) int {
	remaining := shares
	kept := a.positions[:0]

	for _, p := range a.positions {
		if remaining == 0 || p.Symbol != symbol {
			kept = append(kept, p)
			continue
		}

		take := min(p.Shares, remaining)
		remaining -= take
		p.Shares -= take

		pl := (price - p.BuyPrice) * float64(take)
		if p.BuyPrice < price {
			a.wins++
			a.grossProfit += pl
		} else {
			a.losses++
			a.grossLoss -= pl
		}
		a.pendingTrades = append(a.pendingTrades, journal.TradeRecord{
			TradeID:    id.New(),
			RunID:      a.runID,
			LotID:      p.ID,
			Symbol:     symbol,
			Shares:     take,
			EntryPrice: p.BuyPrice,
			ExitPrice:  price,
			OpenTime:   p.OpenedOn,
			CloseTime:  a.current,
			RealizedPL: pl,
			Reason:     reason,
		})

		if p.Shares > 0 {
			kept = append(kept, p)
		}
	}

	// drop references held past the new length
	clear(a.positions[len(kept):])
	a.positions = kept
	return shares - remaining
}

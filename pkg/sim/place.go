package sim

import (
	"fmt"

	"github.com/rustyeddy/backtester/pkg/id"
)

func validate(symbol string, shares int, prices ...float64) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if shares <= 0 {
		return fmt.Errorf("%w: shares must be positive, got %d", ErrInvalidOrder, shares)
	}
	for _, p := range prices {
		if p <= 0 {
			return fmt.Errorf("%w: price must be positive, got %v", ErrInvalidOrder, p)
		}
	}
	return nil
}

// PlaceMarketBuy queues a buy at the next open. Cash is checked at fill time.
func (a *Account) PlaceMarketBuy(symbol string, shares int) (Order, error) {
	if err := validate(symbol, shares); err != nil {
		return Order{}, err
	}
	return a.addOrder(Buy, Market, symbol, shares, 0), nil
}

// PlaceLimitBuy queues a buy at price or better.
func (a *Account) PlaceLimitBuy(symbol string, shares int, price float64) (Order, error) {
	if err := validate(symbol, shares, price); err != nil {
		return Order{}, err
	}
	return a.addOrder(Buy, Limit, symbol, shares, price), nil
}

func (a *Account) PlaceMarketSell(symbol string, shares int) (Order, error) {
	if err := validate(symbol, shares); err != nil {
		return Order{}, err
	}
	if err := a.checkSell(symbol, shares); err != nil {
		return Order{}, err
	}
	return a.addOrder(Sell, Market, symbol, shares, 0), nil
}

func (a *Account) PlaceLimitSell(symbol string, shares int, price float64) (Order, error) {
	if err := validate(symbol, shares, price); err != nil {
		return Order{}, err
	}
	if err := a.checkSell(symbol, shares); err != nil {
		return Order{}, err
	}
	return a.addOrder(Sell, Limit, symbol, shares, price), nil
}

// PlaceBracketSell queues an exit at upper or lower, whichever the market
// reaches. It cannot coexist with a plain sell on the same symbol.
func (a *Account) PlaceBracketSell(symbol string, shares int, lower, upper float64) (BracketOrder, error) {
	if err := validate(symbol, shares, lower, upper); err != nil {
		return BracketOrder{}, err
	}
	if lower >= upper {
		return BracketOrder{}, fmt.Errorf("%w: lower %v must be below upper %v", ErrInvalidOrder, lower, upper)
	}
	for _, o := range a.orders {
		if o.Symbol == symbol && o.Action == Sell {
			return BracketOrder{}, fmt.Errorf("%w: sell order %s pending for %s", ErrConflictingOrder, o.ID, symbol)
		}
	}
	pending := 0
	for _, b := range a.brackets {
		if b.Symbol == symbol {
			pending += b.Shares
		}
	}
	if owned := a.Shares(symbol); shares > owned-pending {
		return BracketOrder{}, fmt.Errorf("%w: %s owned %d, bracketed %d, requested %d",
			ErrInsufficientShares, symbol, owned, pending, shares)
	}

	b := BracketOrder{
		ID:       id.New(),
		Action:   Sell,
		Symbol:   symbol,
		Shares:   shares,
		Lower:    lower,
		Upper:    upper,
		PlacedOn: a.current,
	}
	a.brackets = append(a.brackets, b)
	a.logf("placed %s", b)
	return b, nil
}

// PlaceBracketBuy is not supported; only sell brackets exist.
func (a *Account) PlaceBracketBuy(symbol string, shares int, lower, upper float64) (BracketOrder, error) {
	return BracketOrder{}, fmt.Errorf("bracket buy %s: %w", symbol, ErrNotSupported)
}

func (a *Account) checkSell(symbol string, shares int) error {
	for _, b := range a.brackets {
		if b.Symbol == symbol {
			return fmt.Errorf("%w: bracket %s pending for %s", ErrConflictingOrder, b.ID, symbol)
		}
	}
	pending := 0
	for _, o := range a.orders {
		if o.Symbol == symbol && o.Action == Sell {
			pending += o.Shares
		}
	}
	if owned := a.Shares(symbol); shares > owned-pending {
		return fmt.Errorf("%w: %s owned %d, pending sells %d, requested %d",
			ErrInsufficientShares, symbol, owned, pending, shares)
	}
	return nil
}

func (a *Account) addOrder(action Action, kind OrderKind, symbol string, shares int, price float64) Order {
	o := Order{
		ID:         id.New(),
		Action:     action,
		Kind:       kind,
		Symbol:     symbol,
		Shares:     shares,
		LimitPrice: price,
		PlacedOn:   a.current,
	}
	a.orders = append(a.orders, o)
	a.logf("placed %s", o)
	return o
}

// CancelOrders drops every pending market and limit order.
func (a *Account) CancelOrders() {
	if len(a.orders) > 0 {
		a.logf("cancelled %d orders", len(a.orders))
	}
	a.orders = nil
}

// CancelBracketOrders drops every pending bracket order.
func (a *Account) CancelBracketOrders() {
	if len(a.brackets) > 0 {
		a.logf("cancelled %d bracket orders", len(a.brackets))
	}
	a.brackets = nil
}

// CancelOrder drops one pending order or bracket by ID and reports whether
// it was found.
func (a *Account) CancelOrder(orderID string) bool {
	if a.removeOrder(orderID) || a.removeBracket(orderID) {
		a.logf("cancelled %s", orderID)
		return true
	}
	return false
}

func (a *Account) orderIndex(orderID string) int {
	for i, o := range a.orders {
		if o.ID == orderID {
			return i
		}
	}
	return -1
}

func (a *Account) bracketIndex(orderID string) int {
	for i, b := range a.brackets {
		if b.ID == orderID {
			return i
		}
	}
	return -1
}

func (a *Account) removeOrder(orderID string) bool {
	i := a.orderIndex(orderID)
	if i < 0 {
		return false
	}
	a.orders = append(a.orders[:i:i], a.orders[i+1:]...)
	return true
}

func (a *Account) removeBracket(orderID string) bool {
	i := a.bracketIndex(orderID)
	if i < 0 {
		return false
	}
	a.brackets = append(a.brackets[:i:i], a.brackets[i+1:]...)
	return true
}

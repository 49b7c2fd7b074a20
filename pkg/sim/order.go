package sim

import (
	"fmt"
	"time"
)

type Action int

const (
	Buy Action = iota
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

type OrderKind int

const (
	Market OrderKind = iota
	Limit
)

func (k OrderKind) String() string {
	switch k {
	case Market:
		return "market"
	case Limit:
		return "limit"
	default:
		return fmt.Sprintf("OrderKind(%d)", int(k))
	}
}

// Order is a pending market or limit instruction. LimitPrice is zero for
// market orders.
type Order struct {
	ID         string
	Action     Action
	Kind       OrderKind
	Symbol     string
	Shares     int
	LimitPrice float64
	PlacedOn   time.Time
}

func (o Order) String() string {
	if o.Kind == Limit {
		return fmt.Sprintf("%s %s %d %s @ %.2f", o.Kind, o.Action, o.Shares, o.Symbol, o.LimitPrice)
	}
	return fmt.Sprintf("%s %s %d %s", o.Kind, o.Action, o.Shares, o.Symbol)
}

// BracketOrder sells Shares when the price reaches Upper or Lower,
// whichever qualifies first with Upper tested first. Only sells exist.
type BracketOrder struct {
	ID       string
	Action   Action
	Symbol   string
	Shares   int
	Lower    float64
	Upper    float64
	PlacedOn time.Time
}

func (b BracketOrder) String() string {
	return fmt.Sprintf("bracket %s %d %s [%.2f, %.2f]", b.Action, b.Shares, b.Symbol, b.Lower, b.Upper)
}

// PricePoint is one day of a lot's mark-to-market history.
type PricePoint struct {
	Date  time.Time
	Close float64
	Delta float64
}

// Position is one lot. Shares only go down after the lot is opened; every
// buy fill opens a new lot.
type Position struct {
	ID       string
	Symbol   string
	Shares   int
	BuyPrice float64
	OpenedOn time.Time
	History  []PricePoint
}

// Sample is one point of the equity or buying power curve.
type Sample struct {
	Date  time.Time
	Value float64
}

// Event is one entry of the account's append-only event stream.
type Event struct {
	Date    time.Time // simulated day
	Logged  time.Time // wall clock
	Message string
}

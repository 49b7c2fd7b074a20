package journal

import "time"

// TradeRecord is one lot (or part of a lot) closed by a sell fill.
type TradeRecord struct {
	TradeID    string
	RunID      string
	LotID      string
	Symbol     string
	Shares     int
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// EquitySnapshot is the end-of-day account state, written once per
// simulated calendar day.
type EquitySnapshot struct {
	RunID       string
	Time        time.Time
	BuyingPower float64
	Equity      float64
	OpenLots    int
}

// EventRecord is one line of the simulator's event stream.
type EventRecord struct {
	RunID   string
	Date    time.Time
	Logged  time.Time
	Message string
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	RecordEvent(EventRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) RecordEvent(EventRecord) error { return nil }
func (Nop) Close() error { return nil }

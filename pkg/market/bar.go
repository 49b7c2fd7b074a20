package market

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidData is returned when stored history cannot satisfy a request.
var ErrInvalidData = errors.New("invalid stock data")

// Bar is one trading day's OHLCV for a symbol.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Day truncates t to midnight UTC. Every date the simulator compares goes
// through Day so bars stamped with a time of day still line up.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// SortBars orders bars oldest first.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
}

// Window returns the sub-slice of bars (sorted oldest first) dated within
// [start, end] by calendar day. The result aliases bars.
func Window(bars []Bar, start, end time.Time) []Bar {
	start, end = Day(start), Day(end)
	lo := sort.Search(len(bars), func(i int) bool {
		return !Day(bars[i].Time).Before(start)
	})
	hi := sort.Search(len(bars), func(i int) bool {
		return Day(bars[i].Time).After(end)
	})
	if lo >= hi {
		return nil
	}
	return bars[lo:hi]
}

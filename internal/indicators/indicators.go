// Package indicators provides technical analysis indicators over daily bars
package indicators

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/pkg/market"
)

// ErrNotEnoughBars is returned when the history is shorter than the period.
var ErrNotEnoughBars = errors.New("not enough bars")

func check(bars []market.Bar, period, need int) error {
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < need {
		return fmt.Errorf("%w: need %d, got %d", ErrNotEnoughBars, need, len(bars))
	}
	return nil
}

// MA calculates the Simple Moving Average of the last period closes.
func MA(bars []market.Bar, period int) (float64, error) {
	if err := check(bars, period, period); err != nil {
		return 0, err
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].Close
	}

	return sum / float64(period), nil
}

// EMA calculates the Exponential Moving Average for the given period,
// seeded with the SMA of the first period closes.
func EMA(bars []market.Bar, period int) (float64, error) {
	if err := check(bars, period, period); err != nil {
		return 0, err
	}

	// Calculate multiplier: 2 / (period + 1)
	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += bars[i].Close
	}
	ema := sma / float64(period)

	for i := period; i < len(bars); i++ {
		ema = (bars[i].Close-ema)*multiplier + ema
	}

	return ema, nil
}

// ATR calculates the Average True Range for the given period using
// Wilder's smoothing.
func ATR(bars []market.Bar, period int) (float64, error) {
	if err := check(bars, period, period+1); err != nil {
		return 0, err
	}

	trueRanges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		trueRanges = append(trueRanges, trueRange(bars[i], bars[i-1]))
	}

	// Initial ATR is the SMA of the first period true ranges
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trueRanges[i]
	}
	atr := sum / float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr, nil
}

// trueRange calculates the True Range for a bar given the previous bar
func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// Cross compares the short and long simple moving averages today and the
// day before. It returns +1 when the short average moves above the long one,
// -1 when it falls back to or below it, and 0 otherwise.
func Cross(bars []market.Bar, short, long int) (int, error) {
	if short >= long {
		return 0, fmt.Errorf("short period %d must be less than long period %d", short, long)
	}
	if err := check(bars, long, long+1); err != nil {
		return 0, err
	}

	prev := bars[:len(bars)-1]
	prevShort, _ := MA(prev, short)
	prevLong, _ := MA(prev, long)
	curShort, _ := MA(bars, short)
	curLong, _ := MA(bars, long)

	switch {
	case prevShort <= prevLong && curShort > curLong:
		return 1, nil
	case prevShort > prevLong && curShort <= curLong:
		return -1, nil
	}
	return 0, nil
}

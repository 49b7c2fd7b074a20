// Package risk sizes long stock entries from a stop distance.
package risk

import "math"

type Inputs struct {
	Equity      float64
	RiskPct     float64 // 0.01
	EntryPrice  float64
	StopPrice   float64
	BuyingPower float64 // caps the position when positive
}

type Result struct {
	Shares     int
	StopDist   float64
	RiskAmount float64
}

// Calculate returns the whole number of shares whose loss at the stop is
// at most Equity*RiskPct.
func Calculate(in Inputs) Result {
	stopDist := math.Abs(in.EntryPrice - in.StopPrice)
	riskAmt := in.Equity * in.RiskPct
	if stopDist == 0 || in.EntryPrice <= 0 || riskAmt <= 0 {
		return Result{StopDist: stopDist, RiskAmount: riskAmt}
	}

	shares := math.Floor(riskAmt / stopDist)
	if in.BuyingPower > 0 {
		shares = math.Min(shares, math.Floor(in.BuyingPower/in.EntryPrice))
	}

	return Result{
		Shares:     int(math.Max(shares, 0)),
		StopDist:   stopDist,
		RiskAmount: riskAmt,
	}
}

// PlannedRisk is the loss taken if the stop is hit.
func PlannedRisk(shares int, entry, stop float64) float64 {
	return float64(shares) * math.Abs(entry-stop)
}

func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}

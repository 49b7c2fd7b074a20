package risk

import "fmt"

// Policy holds the limits an entry must satisfy before it is placed.
// Zero values disable the matching check.
type Policy struct {
	MaxRiskPct       float64 // 0.01
	MinRR            float64 // 1.5
	MaxOpenPositions int     // 3
}

type TradeIntent struct {
	Symbol     string
	Shares     int
	Entry      float64
	Stop       float64
	TakeProfit float64
}

type AccountSnapshot struct {
	Equity        float64
	OpenPositions int // distinct symbols held
}

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
	PlannedRR      float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// floating point slack when comparing a floored size against its limit
const tolerance = 1e-9

// Evaluate checks intent against p for the given account state.
func Evaluate(p Policy, intent TradeIntent, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	if intent.Entry <= 0 || intent.Stop <= 0 {
		d.add("NO_STOP_OR_ENTRY", "entry/stop must be set")
		return d
	}
	if intent.Shares <= 0 {
		d.add("NO_SHARES", "shares must be positive")
		return d
	}

	d.PlannedRisk = PlannedRisk(intent.Shares, intent.Entry, intent.Stop)
	d.PlannedRiskPct = RiskPct(d.PlannedRisk, acct.Equity)
	if intent.TakeProfit > 0 {
		d.PlannedRR = RR(intent.Entry, intent.Stop, intent.TakeProfit)
	}

	if p.MaxRiskPct > 0 && d.PlannedRiskPct > p.MaxRiskPct+tolerance {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*d.PlannedRiskPct, 100*p.MaxRiskPct))
	}
	if p.MinRR > 0 && intent.TakeProfit > 0 && d.PlannedRR+tolerance < p.MinRR {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}
	if p.MaxOpenPositions > 0 && acct.OpenPositions >= p.MaxOpenPositions {
		d.add("TOO_MANY_POSITIONS",
			fmt.Sprintf("%d open positions, max %d", acct.OpenPositions, p.MaxOpenPositions))
	}

	return d
}

// Reasons joins the violation messages for logging.
func (d Decision) Reasons() string {
	s := ""
	for i, v := range d.Violations {
		if i > 0 {
			s += "; "
		}
		s += v.Code + ": " + v.Msg
	}
	return s
}

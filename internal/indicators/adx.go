package indicators

import (
	"math"

	"github.com/rustyeddy/backtester/pkg/market"
)

// ADX implements Wilder's Average Directional Index (trend strength) over
// the whole history and returns the latest value.
//
//	adx, err := indicators.ADX(hist, 14)
//	if err == nil && adx >= 25 { ... }
//
// Warmup needs Period bar pairs to seed the smoothed TR/+DM/-DM and then
// Period DX values to seed ADX, so 2*period+1 bars in total.
func ADX(bars []market.Bar, period int) (float64, error) {
	if err := check(bars, period, 2*period+1); err != nil {
		return 0, err
	}

	p := float64(period)
	var tr, pdm, mdm float64
	var adx, dxSum float64
	dxCount := 0

	for i := 1; i < len(bars); i++ {
		cur, prev := bars[i], bars[i-1]

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low

		var up, down float64
		if upMove > downMove && upMove > 0 {
			up = upMove
		}
		if downMove > upMove && downMove > 0 {
			down = downMove
		}
		r := trueRange(cur, prev)

		// first period samples seed the averages
		if i <= period {
			tr += r
			pdm += up
			mdm += down
			if i == period {
				tr /= p
				pdm /= p
				mdm /= p
			}
			continue
		}

		tr = (tr*(p-1) + r) / p
		pdm = (pdm*(p-1) + up) / p
		mdm = (mdm*(p-1) + down) / p

		dx := 0.0
		if tr > 0 {
			pdi := 100 * pdm / tr
			mdi := 100 * mdm / tr
			if den := pdi + mdi; den > 0 {
				dx = 100 * math.Abs(pdi-mdi) / den
			}
		}

		if dxCount < period {
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / p
			}
			continue
		}
		adx = (adx*(p-1) + dx) / p
	}

	return adx, nil
}

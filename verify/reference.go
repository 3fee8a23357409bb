package verify

import (
	"math"

	"github.com/sarchlab/mcengine/mc"
	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholes returns the closed-form price of the European option with
// the given parameters.
func BlackScholes(m mc.MarketParameters) float64 {
	sqrtT := math.Sqrt(m.TimeLength)
	d1 := (math.Log(m.Underlying/m.Strike) +
		(m.RiskFreeRate-m.DividendYield+0.5*m.Volatility*m.Volatility)*m.TimeLength) /
		(m.Volatility * sqrtT)
	d2 := d1 - m.Volatility*sqrtT

	spot := m.Underlying * math.Exp(-m.DividendYield*m.TimeLength)
	strike := m.Strike * math.Exp(-m.RiskFreeRate*m.TimeLength)

	n := distuv.UnitNormal
	if m.Type == mc.Put {
		return strike*n.CDF(-d2) - spot*n.CDF(-d1)
	}

	return spot*n.CDF(d1) - strike*n.CDF(d2)
}

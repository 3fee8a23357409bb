package core

import (
	"fmt"
	"math"

	"github.com/sarchlab/mcengine/mc"
)

// CalibrateConfig configures one regression calibration. Only the strike,
// the rate, the time length and the option type are used.
type CalibrateConfig struct {
	Market mc.MarketParameters
}

// Calibrate fits one continuation-value polynomial per exercise timestep by
// Longstaff-Schwartz backward induction over the simulated batch. The
// result always holds exactly TimeSteps-1 entries.
func Calibrate(
	cfg CalibrateConfig,
	batch *mc.SimulationBatch,
	out *mc.RegressionCoefficients,
) error {
	if err := checkBatch(batch); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	m := cfg.Market
	if err := m.Validate(); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	steps := batch.TimeSteps
	paths := batch.Paths

	coef := (*out)[:0]
	if cap(coef) < steps-1 {
		coef = make(mc.RegressionCoefficients, 0, steps-1)
	}
	coef = coef[:steps-1]

	cash := make([]float64, paths)
	last := batch.Step(steps)
	growth := batch.Growth(steps)
	for p := range cash {
		cash[p] = m.Payoff(last[p] * growth)
	}

	df := math.Exp(-m.RiskFreeRate * m.TimeLength / float64(steps))
	x := make([]float64, 0, paths)
	y := make([]float64, 0, paths)
	itm := make([]int, 0, paths)
	fitted := 0

	for j := steps - 1; j >= 1; j-- {
		x, y, itm = x[:0], y[:0], itm[:0]
		growth = batch.Growth(j)

		for p, d := range batch.Step(j) {
			cash[p] *= df

			s := d * growth
			if m.Payoff(s) > 0 {
				x = append(x, s/m.Strike)
				y = append(y, cash[p])
				itm = append(itm, p)
			}
		}

		c := fitBasis(x, y)
		coef[j-1] = c
		if c == nil {
			continue
		}
		fitted++

		for k, p := range itm {
			exercise := m.Payoff(x[k] * m.Strike)
			if exercise >= Continuation(c, x[k]) {
				cash[p] = exercise
			}
		}
	}

	*out = coef

	Trace("Calibrate",
		"Paths", paths,
		"TimeSteps", steps,
		"Fitted", fitted,
	)

	return nil
}

func checkBatch(batch *mc.SimulationBatch) error {
	if batch == nil {
		return fmt.Errorf("%w: no simulation batch", mc.ErrInvalidParameter)
	}

	if batch.Paths <= 0 || batch.TimeSteps <= 0 {
		return fmt.Errorf("%w: batch shape %dx%d",
			mc.ErrInvalidParameter, batch.Paths, batch.TimeSteps)
	}

	if batch.Len() != batch.Paths*batch.TimeSteps {
		return fmt.Errorf("%w: batch holds %d samples, want %d",
			mc.ErrInvalidParameter, batch.Len(), batch.Paths*batch.TimeSteps)
	}

	return nil
}

package core

import (
	"fmt"
	"math"
	"runtime"

	"github.com/sarchlab/mcengine/mc"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxSamples caps tolerance-driven pricing.
	DefaultMaxSamples = 1 << 20

	// ToleranceBlock is the number of paths added per round when pricing
	// runs until a tolerance is met.
	ToleranceBlock = 4096
)

// PriceConfig configures one pricing sub-stage.
type PriceConfig struct {
	Market    mc.MarketParameters
	TimeSteps int

	// RequiredSamples fixes the number of priced paths. When it is zero,
	// paths are added until the standard error drops to RequiredTolerance
	// or MaxSamples is reached.
	RequiredSamples   int
	RequiredTolerance float64
	MaxSamples        int

	Seed   uint64
	Stream uint64
	Lanes  int
}

func (c PriceConfig) validate(coef mc.RegressionCoefficients) error {
	if c.TimeSteps <= 0 {
		return fmt.Errorf("%w: time steps must be > 0, got %d",
			mc.ErrInvalidParameter, c.TimeSteps)
	}

	if len(coef) != c.TimeSteps-1 {
		return fmt.Errorf("%w: %d coefficient vectors for %d time steps",
			mc.ErrInvalidParameter, len(coef), c.TimeSteps)
	}

	if c.RequiredSamples < 0 {
		return fmt.Errorf("%w: required samples must be >= 0, got %d",
			mc.ErrInvalidParameter, c.RequiredSamples)
	}

	if c.RequiredSamples == 0 && !(c.RequiredTolerance > 0) {
		return fmt.Errorf("%w: need required samples or a positive tolerance",
			mc.ErrInvalidParameter)
	}

	if c.Lanes < 0 {
		return fmt.Errorf("%w: lanes must be >= 0, got %d",
			mc.ErrInvalidParameter, c.Lanes)
	}

	return c.Market.Validate()
}

// Price runs a fresh simulation that exercises whenever the immediate payoff
// reaches the fitted continuation value, and returns the mean discounted
// payoff with its standard error.
func Price(cfg PriceConfig, coef mc.RegressionCoefficients) (mc.PriceEstimate, error) {
	if err := cfg.validate(coef); err != nil {
		return mc.PriceEstimate{}, fmt.Errorf("price: %w", err)
	}

	if cfg.Lanes == 0 {
		cfg.Lanes = DefaultLanes
	}

	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultMaxSamples
	}

	var acc accumulator
	if cfg.RequiredSamples > 0 {
		block, err := priceBlock(cfg, coef, cfg.RequiredSamples, 0)
		if err != nil {
			return mc.PriceEstimate{}, fmt.Errorf("price: %w", err)
		}
		acc = block
	} else {
		groupOffset := 0
		for acc.n < cfg.MaxSamples {
			n := min(ToleranceBlock, cfg.MaxSamples-acc.n)
			block, err := priceBlock(cfg, coef, n, groupOffset)
			if err != nil {
				return mc.PriceEstimate{}, fmt.Errorf("price: %w", err)
			}
			acc.merge(block)
			groupOffset += numGroups(n, cfg.Lanes)

			if acc.n > 1 && acc.stdErr() <= cfg.RequiredTolerance {
				break
			}
		}
	}

	est := mc.PriceEstimate{
		Value:   acc.mean(),
		StdErr:  acc.stdErr(),
		Samples: acc.n,
		Stream:  cfg.Stream,
	}

	Trace("Price",
		"Stream", cfg.Stream,
		"Samples", est.Samples,
		"Value", est.Value,
		"StdErr", est.StdErr,
	)

	return est, nil
}

type accumulator struct {
	n          int
	sum, sumSq float64
}

func (a *accumulator) add(v float64) {
	a.n++
	a.sum += v
	a.sumSq += v * v
}

func (a *accumulator) merge(b accumulator) {
	a.n += b.n
	a.sum += b.sum
	a.sumSq += b.sumSq
}

func (a accumulator) mean() float64 {
	if a.n == 0 {
		return 0
	}

	return a.sum / float64(a.n)
}

func (a accumulator) stdErr() float64 {
	if a.n < 2 {
		return math.Inf(1)
	}

	n := float64(a.n)
	variance := (a.sumSq - a.sum*a.sum/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}

	return math.Sqrt(variance / n)
}

// priceBlock prices n stratified paths. Lane groups are numbered from
// groupOffset so that consecutive blocks never share a random stream.
func priceBlock(
	cfg PriceConfig,
	coef mc.RegressionCoefficients,
	n, groupOffset int,
) (accumulator, error) {
	groups := numGroups(n, cfg.Lanes)
	partial := make([]accumulator, groups)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for group := 0; group < groups; group++ {
		g.Go(func() error {
			partial[group] = priceGroup(cfg, coef, n, group, groupOffset)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return accumulator{}, err
	}

	// Merge in group order so the sum does not depend on scheduling.
	var acc accumulator
	for _, p := range partial {
		acc.merge(p)
	}

	return acc, nil
}

func priceGroup(
	cfg PriceConfig,
	coef mc.RegressionCoefficients,
	n, group, groupOffset int,
) accumulator {
	m := cfg.Market
	rng := laneStream(cfg.Seed, cfg.Stream, groupOffset+group)
	lo, hi := groupRange(group, cfg.Lanes, n)

	dt := m.TimeLength / float64(cfg.TimeSteps)
	drift := (m.RiskFreeRate - m.DividendYield - 0.5*m.Volatility*m.Volatility) * dt
	vol := m.Volatility * math.Sqrt(dt)

	var acc accumulator
	for p := lo; p < hi; p++ {
		s := m.Underlying
		value := 0.0

		for j := 1; j <= cfg.TimeSteps; j++ {
			var z float64
			if j == 1 {
				z = stratifiedNormal(rng, p, n)
			} else {
				z = rng.NormFloat64()
			}
			s *= math.Exp(drift + vol*z)

			exercise := m.Payoff(s)
			if j == cfg.TimeSteps {
				value = exercise * math.Exp(-m.RiskFreeRate*dt*float64(j))
				break
			}

			c := coef.At(j)
			if exercise > 0 && c != nil && exercise >= Continuation(c, s/m.Strike) {
				value = exercise * math.Exp(-m.RiskFreeRate*dt*float64(j))
				break
			}
		}

		acc.add(value)
	}

	return acc
}

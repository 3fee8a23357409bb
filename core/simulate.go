package core

import (
	"fmt"
	"math"
	"runtime"

	"github.com/sarchlab/mcengine/mc"
	"golang.org/x/sync/errgroup"
)

// SimulateConfig configures one path simulation.
type SimulateConfig struct {
	Market       mc.MarketParameters
	CalibSamples int
	TimeSteps    int
	Seed         uint64
	Stream       uint64

	// Lanes is the lane group width. Zero means DefaultLanes.
	Lanes int
}

func (c SimulateConfig) validate() error {
	if c.TimeSteps <= 0 {
		return fmt.Errorf("%w: time steps must be > 0, got %d",
			mc.ErrInvalidParameter, c.TimeSteps)
	}

	if c.CalibSamples <= 0 {
		return fmt.Errorf("%w: calibration samples must be > 0, got %d",
			mc.ErrInvalidParameter, c.CalibSamples)
	}

	if c.Lanes < 0 {
		return fmt.Errorf("%w: lanes must be >= 0, got %d",
			mc.ErrInvalidParameter, c.Lanes)
	}

	return c.Market.Validate()
}

// Simulate generates CalibSamples discounted geometric Brownian motion paths
// of TimeSteps steps each into out. The result depends only on the config,
// never on how the lane groups are scheduled.
func Simulate(cfg SimulateConfig, out *mc.SimulationBatch) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	lanes := cfg.Lanes
	if lanes == 0 {
		lanes = DefaultLanes
	}

	m := cfg.Market
	paths := cfg.CalibSamples
	dt := m.TimeLength / float64(cfg.TimeSteps)

	out.Reshape(paths, cfg.TimeSteps)
	out.Rate = m.RiskFreeRate
	out.Dt = dt

	// Discounted prices move by exp((-q - σ²/2)dt + σ√dt z) per step.
	drift := (-m.DividendYield - 0.5*m.Volatility*m.Volatility) * dt
	vol := m.Volatility * math.Sqrt(dt)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for group := 0; group < numGroups(paths, lanes); group++ {
		g.Go(func() error {
			simulateGroup(cfg, out, group, lanes, drift, vol)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	Trace("Simulate",
		"Paths", paths,
		"TimeSteps", cfg.TimeSteps,
		"Seed", cfg.Seed,
		"Stream", cfg.Stream,
	)

	return nil
}

func simulateGroup(
	cfg SimulateConfig,
	out *mc.SimulationBatch,
	group, lanes int,
	drift, vol float64,
) {
	rng := laneStream(cfg.Seed, cfg.Stream, group)
	lo, hi := groupRange(group, lanes, out.Paths)

	cur := make([]float64, hi-lo)
	for i := range cur {
		cur[i] = cfg.Market.Underlying
	}

	for j := 1; j <= out.TimeSteps; j++ {
		step := out.Step(j)
		for i := range cur {
			var z float64
			if j == 1 {
				z = stratifiedNormal(rng, lo+i, out.Paths)
			} else {
				z = rng.NormFloat64()
			}

			cur[i] *= math.Exp(drift + vol*z)
			step[lo+i] = cur[i]
		}
	}
}

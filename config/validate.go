package config

import (
	"fmt"

	"github.com/sarchlab/mcengine/mc"
)

// Validate checks that the configuration describes a run that can start.
func (c Config) Validate() error {
	if _, err := c.MarketParameters(); err != nil {
		return err
	}

	e := c.Engine

	switch {
	case e.CalibSamples <= 0:
		return invalid("engine.calib_samples must be > 0, got %d", e.CalibSamples)
	case e.TimeSteps <= 0:
		return invalid("engine.time_steps must be > 0, got %d", e.TimeSteps)
	case e.RequiredSamples < 0:
		return invalid("engine.required_samples must be >= 0, got %d", e.RequiredSamples)
	case e.RequiredTolerance < 0:
		return invalid("engine.required_tolerance must be >= 0, got %v", e.RequiredTolerance)
	case e.RequiredSamples == 0 && e.RequiredTolerance == 0:
		return invalid("engine.required_samples or engine.required_tolerance is required")
	case e.MaxSamples < 0:
		return invalid("engine.max_samples must be >= 0, got %d", e.MaxSamples)
	case e.Iterations < 1:
		return invalid("engine.iterations must be >= 1, got %d", e.Iterations)
	case e.PricingKernels < 1:
		return invalid("engine.pricing_kernels must be >= 1, got %d", e.PricingKernels)
	case e.Lanes < 1:
		return invalid("engine.lanes must be >= 1, got %d", e.Lanes)
	case c.Check.Tolerance < 0:
		return invalid("check.tolerance must be >= 0, got %v", c.Check.Tolerance)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{mc.ErrInvalidParameter}, args...)...)
}

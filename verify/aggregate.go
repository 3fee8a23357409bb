// Package verify aggregates price estimates and checks them against a
// reference price.
package verify

import (
	"fmt"

	"github.com/sarchlab/mcengine/mc"
	"github.com/shopspring/decimal"
)

// Mean returns the arithmetic mean of the estimate values. It returns 0 when
// there are no estimates.
func Mean(estimates ...mc.PriceEstimate) float64 {
	if len(estimates) == 0 {
		return 0
	}

	sum := 0.0
	for _, e := range estimates {
		sum += e.Value
	}

	return sum / float64(len(estimates))
}

// Check is the outcome of comparing a price with a reference.
type Check struct {
	Price     float64
	Reference float64
	Tolerance float64
	Deviation float64
	Pass      bool
}

// CheckPrice compares price with reference. The comparison is done on the
// decimal representation of the numbers, so that a deviation that prints as
// exactly the tolerance passes.
func CheckPrice(price, reference, tolerance float64) Check {
	deviation := decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(reference)).
		Abs()

	return Check{
		Price:     price,
		Reference: reference,
		Tolerance: tolerance,
		Deviation: deviation.InexactFloat64(),
		Pass:      deviation.LessThanOrEqual(decimal.NewFromFloat(tolerance)),
	}
}

// Status returns PASS or FAIL.
func (c Check) Status() string {
	if c.Pass {
		return "PASS"
	}

	return "FAIL"
}

// Err returns ErrToleranceExceeded if the check failed.
func (c Check) Err() error {
	if c.Pass {
		return nil
	}

	return fmt.Errorf("%w: price %v differs from %v by %v, tolerance %v",
		mc.ErrToleranceExceeded, c.Price, c.Reference, c.Deviation, c.Tolerance)
}

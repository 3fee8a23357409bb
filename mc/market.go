package mc

import (
	"fmt"
	"math"
	"strings"
)

// OptionType selects the payoff of an option.
type OptionType int

const (
	Call OptionType = iota
	Put
)

// Name returns the name of the option type.
func (t OptionType) Name() string {
	switch t {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		panic("invalid option type")
	}
}

// ParseOptionType converts "call" or "put" into an OptionType.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}

	return Call, fmt.Errorf("%w: unknown option type %q", ErrInvalidParameter, s)
}

// MarketParameters describes the option being priced. It does not change
// during a pricing run.
type MarketParameters struct {
	Underlying    float64
	Strike        float64
	Volatility    float64
	RiskFreeRate  float64
	DividendYield float64
	TimeLength    float64
	Type          OptionType
}

// Payoff returns the immediate exercise value at underlying price s.
func (m MarketParameters) Payoff(s float64) float64 {
	if m.Type == Put {
		return math.Max(m.Strike-s, 0)
	}

	return math.Max(s-m.Strike, 0)
}

// Validate checks that the parameters describe a priceable option.
func (m MarketParameters) Validate() error {
	switch {
	case !(m.Underlying > 0):
		return fmt.Errorf("%w: underlying must be > 0, got %v",
			ErrInvalidParameter, m.Underlying)
	case !(m.Strike > 0):
		return fmt.Errorf("%w: strike must be > 0, got %v",
			ErrInvalidParameter, m.Strike)
	case !(m.Volatility > 0):
		return fmt.Errorf("%w: volatility must be > 0, got %v",
			ErrInvalidParameter, m.Volatility)
	case !(m.TimeLength > 0):
		return fmt.Errorf("%w: time length must be > 0, got %v",
			ErrInvalidParameter, m.TimeLength)
	case m.Type != Call && m.Type != Put:
		return fmt.Errorf("%w: option type %d", ErrInvalidParameter, m.Type)
	}

	return nil
}

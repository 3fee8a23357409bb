// Package config provides the settings of a pricing run and the platform
// that executes it.
package config

import (
	"fmt"
	"os"

	"github.com/sarchlab/mcengine/core"
	"github.com/sarchlab/mcengine/mc"
	"github.com/sarchlab/mcengine/pipeline"
	"gopkg.in/yaml.v3"
)

// Default values of a run. The market is the American put of Longstaff and
// Schwartz (2001), Table 1, first row.
const (
	DefaultUnderlying        = 36.0
	DefaultStrike            = 40.0
	DefaultVolatility        = 0.20
	DefaultRiskFreeRate      = 0.06
	DefaultDividendYield     = 0.0
	DefaultTimeLength        = 1.0
	DefaultOptionType        = "put"
	DefaultCalibSamples      = 4096
	DefaultTimeSteps         = 100
	DefaultRequiredSamples   = 24576
	DefaultRequiredTolerance = 0.02
	DefaultMaxSamples        = core.DefaultMaxSamples
	DefaultIterations        = 2
	DefaultPricingKernels    = pipeline.DefaultSubStages
	DefaultLanes             = core.DefaultLanes
	DefaultSeed              = 42

	// DefaultGolden is the published American value. The often quoted 3.97
	// to 3.98 sits below what unbiased Longstaff-Schwartz converges to for
	// this put, so it would fail a 0.2 check.
	DefaultGolden = 4.472

	DefaultGoldenTolerance = 0.2
)

// Config is the complete configuration of a run.
type Config struct {
	Market MarketConfig `yaml:"market"`
	Engine EngineConfig `yaml:"engine"`
	Check  CheckConfig  `yaml:"check"`
	Output OutputConfig `yaml:"output"`
}

// MarketConfig describes the option.
type MarketConfig struct {
	Underlying    float64 `yaml:"underlying"`
	Strike        float64 `yaml:"strike"`
	Volatility    float64 `yaml:"volatility"`
	RiskFreeRate  float64 `yaml:"risk_free_rate"`
	DividendYield float64 `yaml:"dividend_yield"`
	TimeLength    float64 `yaml:"time_length"`
	Type          string  `yaml:"type"`
}

// EngineConfig sizes the pipeline.
type EngineConfig struct {
	CalibSamples      int     `yaml:"calib_samples"`
	TimeSteps         int     `yaml:"time_steps"`
	RequiredSamples   int     `yaml:"required_samples"`
	RequiredTolerance float64 `yaml:"required_tolerance"`
	MaxSamples        int     `yaml:"max_samples"`
	Iterations        int     `yaml:"iterations"`
	PricingKernels    int     `yaml:"pricing_kernels"`
	Lanes             int     `yaml:"lanes"`
	Seed              uint64  `yaml:"seed"`
}

// CheckConfig is the reference the result is compared with. A zero golden
// price skips the check.
type CheckConfig struct {
	Golden    float64 `yaml:"golden"`
	Tolerance float64 `yaml:"tolerance"`
}

// OutputConfig selects where logs and traces go.
type OutputConfig struct {
	Log     string `yaml:"log"`
	TraceDB string `yaml:"trace_db"`
	Monitor bool   `yaml:"monitor"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()

	return c
}

// Load reads a YAML file on top of the defaults. ${VAR} references are
// expanded from the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// decodeFile overwrites the fields of cfg that the file sets.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	m := &c.Market
	if m.Underlying == 0 {
		m.Underlying = DefaultUnderlying
	}
	if m.Strike == 0 {
		m.Strike = DefaultStrike
	}
	if m.Volatility == 0 {
		m.Volatility = DefaultVolatility
	}
	if m.RiskFreeRate == 0 {
		m.RiskFreeRate = DefaultRiskFreeRate
	}
	if m.TimeLength == 0 {
		m.TimeLength = DefaultTimeLength
	}
	if m.Type == "" {
		m.Type = DefaultOptionType
	}

	e := &c.Engine
	if e.CalibSamples == 0 {
		e.CalibSamples = DefaultCalibSamples
	}
	if e.TimeSteps == 0 {
		e.TimeSteps = DefaultTimeSteps
	}
	if e.RequiredSamples == 0 && e.RequiredTolerance == 0 {
		e.RequiredSamples = DefaultRequiredSamples
	}
	if e.RequiredTolerance == 0 {
		e.RequiredTolerance = DefaultRequiredTolerance
	}
	if e.MaxSamples == 0 {
		e.MaxSamples = DefaultMaxSamples
	}
	if e.Iterations == 0 {
		e.Iterations = DefaultIterations
	}
	if e.PricingKernels == 0 {
		e.PricingKernels = DefaultPricingKernels
	}
	if e.Lanes == 0 {
		e.Lanes = DefaultLanes
	}
	if e.Seed == 0 {
		e.Seed = DefaultSeed
	}

	if c.Check.Golden == 0 {
		c.Check.Golden = DefaultGolden
	}
	if c.Check.Tolerance == 0 {
		c.Check.Tolerance = DefaultGoldenTolerance
	}
}

// MarketParameters converts the market section.
func (c Config) MarketParameters() (mc.MarketParameters, error) {
	t, err := mc.ParseOptionType(c.Market.Type)
	if err != nil {
		return mc.MarketParameters{}, err
	}

	m := mc.MarketParameters{
		Underlying:    c.Market.Underlying,
		Strike:        c.Market.Strike,
		Volatility:    c.Market.Volatility,
		RiskFreeRate:  c.Market.RiskFreeRate,
		DividendYield: c.Market.DividendYield,
		TimeLength:    c.Market.TimeLength,
		Type:          t,
	}

	return m, m.Validate()
}

// Pipeline converts the configuration into a scheduler configuration.
func (c Config) Pipeline() (pipeline.Config, error) {
	m, err := c.MarketParameters()
	if err != nil {
		return pipeline.Config{}, err
	}

	return pipeline.Config{
		Market:            m,
		CalibSamples:      c.Engine.CalibSamples,
		TimeSteps:         c.Engine.TimeSteps,
		RequiredSamples:   c.Engine.RequiredSamples,
		RequiredTolerance: c.Engine.RequiredTolerance,
		MaxSamples:        c.Engine.MaxSamples,
		Iterations:        c.Engine.Iterations,
		SubStages:         c.Engine.PricingKernels,
		Lanes:             c.Engine.Lanes,
		Seed:              c.Engine.Seed,
	}, nil
}

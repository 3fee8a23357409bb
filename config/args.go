package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/mcengine/mc"
)

// A Substitution records a command-line value that could not be parsed and
// the value that was used instead.
type Substitution struct {
	Flag    string
	Value   string
	Default string
}

func (s Substitution) String() string {
	return fmt.Sprintf("-%s=%q is not valid, using %s", s.Flag, s.Value, s.Default)
}

type option struct {
	name   string
	usage  string
	isBool bool
	apply  func(c *Config, raw string) error
	show   func(c *Config) string
}

func intOption(name, usage string, field func(*Config) *int) option {
	return option{
		name:  name,
		usage: usage,
		apply: func(c *Config, raw string) error {
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			*field(c) = v
			return nil
		},
		show: func(c *Config) string { return strconv.Itoa(*field(c)) },
	}
}

func uintOption(name, usage string, field func(*Config) *uint64) option {
	return option{
		name:  name,
		usage: usage,
		apply: func(c *Config, raw string) error {
			v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return err
			}
			*field(c) = v
			return nil
		},
		show: func(c *Config) string { return strconv.FormatUint(*field(c), 10) },
	}
}

func floatOption(name, usage string, field func(*Config) *float64) option {
	return option{
		name:  name,
		usage: usage,
		apply: func(c *Config, raw string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return err
			}
			*field(c) = v
			return nil
		},
		show: func(c *Config) string {
			return strconv.FormatFloat(*field(c), 'g', -1, 64)
		},
	}
}

func stringOption(name, usage string, field func(*Config) *string) option {
	return option{
		name:  name,
		usage: usage,
		apply: func(c *Config, raw string) error {
			*field(c) = raw
			return nil
		},
		show: func(c *Config) string { return *field(c) },
	}
}

var options = []option{
	intOption("cal", "number of calibration paths",
		func(c *Config) *int { return &c.Engine.CalibSamples }),
	intOption("steps", "number of time steps",
		func(c *Config) *int { return &c.Engine.TimeSteps }),
	intOption("samples", "number of pricing paths per iteration",
		func(c *Config) *int { return &c.Engine.RequiredSamples }),
	floatOption("tol", "standard error to price to when -samples is 0",
		func(c *Config) *float64 { return &c.Engine.RequiredTolerance }),
	intOption("max", "most pricing paths per kernel when pricing to a tolerance",
		func(c *Config) *int { return &c.Engine.MaxSamples }),
	intOption("loop", "number of pipeline iterations",
		func(c *Config) *int { return &c.Engine.Iterations }),
	intOption("kernels", "number of pricing kernels",
		func(c *Config) *int { return &c.Engine.PricingKernels }),
	intOption("lanes", "paths per lane group",
		func(c *Config) *int { return &c.Engine.Lanes }),
	uintOption("seed", "random seed",
		func(c *Config) *uint64 { return &c.Engine.Seed }),
	floatOption("S", "underlying price",
		func(c *Config) *float64 { return &c.Market.Underlying }),
	floatOption("K", "strike price",
		func(c *Config) *float64 { return &c.Market.Strike }),
	floatOption("vol", "volatility",
		func(c *Config) *float64 { return &c.Market.Volatility }),
	floatOption("r", "risk-free rate",
		func(c *Config) *float64 { return &c.Market.RiskFreeRate }),
	floatOption("q", "dividend yield",
		func(c *Config) *float64 { return &c.Market.DividendYield }),
	floatOption("T", "time to maturity in years",
		func(c *Config) *float64 { return &c.Market.TimeLength }),
	{
		name:  "type",
		usage: "option type, call or put",
		apply: func(c *Config, raw string) error {
			t, err := mc.ParseOptionType(raw)
			if err != nil {
				return err
			}
			c.Market.Type = t.Name()
			return nil
		},
		show: func(c *Config) string { return c.Market.Type },
	},
	floatOption("golden", "expected price, 0 to skip the check",
		func(c *Config) *float64 { return &c.Check.Golden }),
	floatOption("gtol", "allowed deviation from the expected price",
		func(c *Config) *float64 { return &c.Check.Tolerance }),
	stringOption("log", "write JSON logs to this file",
		func(c *Config) *string { return &c.Output.Log }),
	stringOption("trace-db", "record the kernel timeline into this SQLite file",
		func(c *Config) *string { return &c.Output.TraceDB }),
	{
		name:   "monitor",
		usage:  "serve the akita monitor while running",
		isBool: true,
		apply: func(c *Config, raw string) error {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return err
			}
			c.Output.Monitor = v
			return nil
		},
		show: func(c *Config) string { return strconv.FormatBool(c.Output.Monitor) },
	},
}

type givenFlag struct {
	opt   option
	value string
}

// ParseArgs builds the configuration of a run from command-line arguments.
// Values start from defaults, then the file named by -config, then the
// flags. A flag value that cannot be parsed keeps the value it would
// otherwise have; every such case is returned as a Substitution for the
// caller to report. Substitutions are also returned when validation fails.
func ParseArgs(
	name string,
	args []string,
	defaults Config,
) (*Config, []Substitution, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML configuration file")

	var given []givenFlag
	for _, opt := range options {
		record := func(v string) error {
			given = append(given, givenFlag{opt: opt, value: v})
			return nil
		}

		if opt.isBool {
			fs.BoolFunc(opt.name, opt.usage, record)
		} else {
			fs.Func(opt.name, opt.usage, record)
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := defaults
	if *configPath != "" {
		if err := decodeFile(*configPath, &cfg); err != nil {
			return nil, nil, err
		}
	}

	var subs []Substitution
	for _, g := range given {
		if err := g.opt.apply(&cfg, g.value); err != nil {
			s := Substitution{
				Flag:    g.opt.name,
				Value:   g.value,
				Default: g.opt.show(&cfg),
			}
			subs = append(subs, s)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, subs, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, subs, nil
}

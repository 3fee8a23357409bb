// Package host runs a pricing pipeline from command-line arguments and
// reports the result the way the sample programs print it.
package host

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/mcengine/config"
	"github.com/sarchlab/mcengine/pipeline"
	"github.com/sarchlab/mcengine/tracing"
	"github.com/sarchlab/mcengine/verify"
)

// Exit codes of Run.
const (
	ExitPass     = 0
	ExitFail     = 1
	ExitBadUsage = 2
)

// platformName names the simulated device. Component names must be
// CamelCase, so the program name cannot be used.
const platformName = "Platform"

// Run parses args on top of defaults, runs the pipeline, and writes the
// report to stdout. It returns the exit code of the program.
func Run(name string, defaults config.Config, args []string, stdout io.Writer) int {
	cfg, subs, err := config.ParseArgs(name, args, defaults)
	if err != nil {
		printSubstitutions(stdout, subs)
		fmt.Fprintln(stdout, err)
		return ExitBadUsage
	}

	logger, closeLog, err := newLogger(cfg.Output.Log, stdout)
	if err != nil {
		printSubstitutions(stdout, subs)
		fmt.Fprintln(stdout, err)
		return ExitBadUsage
	}
	defer closeLog()

	prev := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(prev)

	for _, s := range subs {
		logger.Warn("invalid flag value, using default",
			"Flag", s.Flag,
			"Value", s.Value,
			"Default", s.Default,
		)
	}
	printSubstitutions(stdout, subs)

	code, err := run(name, cfg, logger, stdout)
	if err != nil {
		logger.Error("pipeline failed", "Err", err)
		fmt.Fprintf(stdout, "ERROR: %v\n", err)
	}

	return code
}

func run(
	name string,
	cfg *config.Config,
	logger *slog.Logger,
	stdout io.Writer,
) (int, error) {
	pcfg, err := cfg.Pipeline()
	if err != nil {
		return ExitBadUsage, err
	}

	var monitor *monitoring.Monitor
	if cfg.Output.Monitor {
		monitor = monitoring.NewMonitor()
	}

	platform := config.PlatformBuilder{}.
		WithPricingKernels(cfg.Engine.PricingKernels).
		WithMonitor(monitor).
		Build(platformName)

	if monitor != nil {
		monitor.StartServer()
	}

	scheduler := pipeline.NewScheduler(platform.Driver, pcfg)

	timeline := &tracing.Timeline{}
	platform.Driver.AcceptHook(tracing.NewLogger(logger))
	platform.Driver.AcceptHook(timeline)

	if cfg.Output.TraceDB != "" {
		recorder, err := tracing.NewSQLiteRecorder(cfg.Output.TraceDB, scheduler.RunID())
		if err != nil {
			return ExitFail, err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("trace db", "Err", err)
			}
		}()

		platform.Driver.AcceptHook(recorder)
	}

	logger.Info("pipeline start",
		"RunID", scheduler.RunID().String(),
		"CalibSamples", pcfg.CalibSamples,
		"TimeSteps", pcfg.TimeSteps,
		"RequiredSamples", pcfg.RequiredSamples,
		"Iterations", pcfg.Iterations,
	)

	result, err := scheduler.Run()
	if err != nil {
		return ExitFail, err
	}

	timeline.Write(stdout)

	report := verify.Report{Title: fmt.Sprintf("%s %s", name, cfg.Market.Type)}
	for _, it := range result.Iterations {
		for k, e := range it.Estimates {
			report.Add(fmt.Sprintf("Price(%d.%d) %s", it.Index, k, it.Slot.Name()), e)
		}
	}

	code := ExitPass
	if cfg.Check.Golden != 0 {
		check := verify.CheckPrice(result.Price, cfg.Check.Golden, cfg.Check.Tolerance)
		report.SetCheck(check)

		if err := check.Err(); err != nil {
			logger.Warn("reference check", "Err", err)
			code = ExitFail
		}
	}

	report.Write(stdout)

	return code, nil
}

func printSubstitutions(w io.Writer, subs []config.Substitution) {
	for _, s := range subs {
		fmt.Fprintf(w, "WARNING: %s\n", s)
	}
}

func newLogger(path string, stdout io.Writer) (*slog.Logger, func(), error) {
	if path == "" {
		handler := slog.NewTextHandler(stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})

		return slog.New(handler), func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create log file: %w", err)
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	closeLog := func() {
		_ = f.Sync()
		_ = f.Close()
	}

	return slog.New(handler), closeLog, nil
}

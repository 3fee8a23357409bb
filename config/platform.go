package config

import (
	"github.com/sarchlab/akita/v4/monitoring"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
	"github.com/sarchlab/mcengine/mc"
)

// A Platform is a simulated accelerator ready to run kernels.
type Platform struct {
	Engine  sim.Engine
	Driver  api.Driver
	Monitor *monitoring.Monitor
}

// PlatformBuilder can build platforms.
type PlatformBuilder struct {
	freq           sim.Freq
	pricingKernels int
	monitor        *monitoring.Monitor
}

// WithFreq sets the frequency of the accelerator.
func (b PlatformBuilder) WithFreq(freq sim.Freq) PlatformBuilder {
	b.freq = freq
	return b
}

// WithPricingKernels sets how many pricing kernels the accelerator has.
func (b PlatformBuilder) WithPricingKernels(n int) PlatformBuilder {
	b.pricingKernels = n
	return b
}

// WithMonitor sets the monitor that watches the platform.
func (b PlatformBuilder) WithMonitor(monitor *monitoring.Monitor) PlatformBuilder {
	b.monitor = monitor
	return b
}

// Build creates a platform.
func (b PlatformBuilder) Build(name string) *Platform {
	if b.freq == 0 {
		b.freq = 1 * sim.GHz
	}

	if b.pricingKernels == 0 {
		b.pricingKernels = DefaultPricingKernels
	}

	engine := sim.NewSerialEngine()

	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFreq(b.freq).
		WithInstances(mc.Price, b.pricingKernels).
		Build(name + ".Driver")

	if b.monitor != nil {
		b.monitor.RegisterEngine(engine)
		if c, ok := driver.(sim.Component); ok {
			b.monitor.RegisterComponent(c)
		}
	}

	return &Platform{
		Engine:  engine,
		Driver:  driver,
		Monitor: b.monitor,
	}
}

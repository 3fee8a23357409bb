package api

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/mc"
)

// Default kernel instance counts. Pricing has two instances so that both
// sub-stages of an iteration run side by side.
var defaultInstances = map[mc.StageKind]int{
	mc.Simulate:  1,
	mc.Calibrate: 1,
	mc.Price:     2,
	mc.Aggregate: 1,
}

const (
	defaultLanesPerCycle  = 64
	defaultLaunchOverhead = 100
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	engine         sim.Engine
	freq           sim.Freq
	instances      map[mc.StageKind]int
	lanesPerCycle  int
	launchOverhead int
}

// WithEngine sets the engine.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the driver.
func (b DriverBuilder) WithFreq(freq sim.Freq) DriverBuilder {
	b.freq = freq
	return b
}

// WithInstances sets how many copies of a kernel kind the device has.
func (b DriverBuilder) WithInstances(kind mc.StageKind, n int) DriverBuilder {
	if n < 1 {
		panic("need at least 1 kernel instance")
	}

	instances := make(map[mc.StageKind]int, len(b.instances)+1)
	for k, v := range b.instances {
		instances[k] = v
	}
	instances[kind] = n
	b.instances = instances

	return b
}

// WithLanesPerCycle sets how many lane-operations a kernel completes per
// cycle.
func (b DriverBuilder) WithLanesPerCycle(n int) DriverBuilder {
	if n < 1 {
		panic("need at least 1 lane per cycle")
	}

	b.lanesPerCycle = n
	return b
}

// WithLaunchOverhead sets the fixed number of cycles of every command.
func (b DriverBuilder) WithLaunchOverhead(cycles int) DriverBuilder {
	b.launchOverhead = cycles
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	d := &driverImpl{
		instances:      make(map[mc.StageKind][]*Command),
		lanesPerCycle:  b.lanesPerCycle,
		launchOverhead: b.launchOverhead,
	}

	if d.lanesPerCycle == 0 {
		d.lanesPerCycle = defaultLanesPerCycle
	}

	if b.launchOverhead == 0 {
		d.launchOverhead = defaultLaunchOverhead
	}

	for _, kind := range mc.StageKinds {
		n, ok := b.instances[kind]
		if !ok {
			n = defaultInstances[kind]
		}
		d.instances[kind] = make([]*Command, n)
	}

	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	return d
}

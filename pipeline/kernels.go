package pipeline

import (
	"fmt"

	"github.com/sarchlab/mcengine/core"
	"github.com/sarchlab/mcengine/mc"
)

// stage holds what every kernel of an iteration shares.
type stage struct {
	cfg       *Config
	slot      *bufferSlot
	handle    *IterationHandle
	iteration int
}

func (k stage) Iteration() int {
	return k.iteration
}

func (k stage) Slot() mc.Slot {
	return k.slot.Slot
}

func (k stage) stream(offset int) uint64 {
	return uint64(k.iteration*(k.cfg.SubStages+1) + offset)
}

type simulateKernel struct {
	stage
}

func (k *simulateKernel) Name() string {
	return fmt.Sprintf("Simulate(%d)", k.iteration)
}

func (*simulateKernel) Kind() mc.StageKind {
	return mc.Simulate
}

func (k *simulateKernel) Work() int {
	return k.cfg.CalibSamples * k.cfg.TimeSteps
}

func (k *simulateKernel) Launch() error {
	if err := k.slot.acquire(k.iteration); err != nil {
		return err
	}

	return core.Simulate(core.SimulateConfig{
		Market:       k.cfg.Market,
		CalibSamples: k.cfg.CalibSamples,
		TimeSteps:    k.cfg.TimeSteps,
		Seed:         k.cfg.Seed,
		Stream:       k.stream(0),
		Lanes:        k.cfg.Lanes,
	}, &k.slot.Batch)
}

func (k *simulateKernel) Complete() error {
	return k.slot.transition(k.iteration, stateSimulating, stateCalibrating)
}

type calibrateKernel struct {
	stage
}

func (k *calibrateKernel) Name() string {
	return fmt.Sprintf("Calibrate(%d)", k.iteration)
}

func (*calibrateKernel) Kind() mc.StageKind {
	return mc.Calibrate
}

func (k *calibrateKernel) Work() int {
	return k.cfg.CalibSamples * k.cfg.TimeSteps
}

func (k *calibrateKernel) Launch() error {
	if err := k.slot.expect(k.iteration, stateCalibrating); err != nil {
		return err
	}

	return core.Calibrate(
		core.CalibrateConfig{Market: k.cfg.Market},
		&k.slot.Batch,
		&k.slot.Coefficients,
	)
}

func (k *calibrateKernel) Complete() error {
	return k.slot.startPricing(k.iteration, k.cfg.SubStages)
}

type priceKernel struct {
	stage
	subStage int
	samples  int
}

func (k *priceKernel) Name() string {
	return fmt.Sprintf("Price(%d.%d)", k.iteration, k.subStage)
}

func (*priceKernel) Kind() mc.StageKind {
	return mc.Price
}

// Work is only known once the kernel has launched when pricing runs to a
// tolerance.
func (k *priceKernel) Work() int {
	return k.samples * k.cfg.TimeSteps
}

func (k *priceKernel) Launch() error {
	if err := k.slot.expect(k.iteration, statePricing); err != nil {
		return err
	}

	est, err := core.Price(core.PriceConfig{
		Market:            k.cfg.Market,
		TimeSteps:         k.cfg.TimeSteps,
		RequiredSamples:   k.cfg.subStageSamples(),
		RequiredTolerance: k.cfg.RequiredTolerance,
		MaxSamples:        k.cfg.MaxSamples,
		Seed:              k.cfg.Seed,
		Stream:            k.stream(1 + k.subStage),
		Lanes:             k.cfg.Lanes,
	}, k.slot.Coefficients)
	if err != nil {
		return err
	}

	k.samples = est.Samples
	k.slot.Estimates[k.subStage] = est

	return nil
}

func (k *priceKernel) Complete() error {
	return k.slot.finishPrice(k.iteration)
}

// collectKernel migrates the estimates of an iteration out of its slot.
// Once it completes the slot can be reused.
type collectKernel struct {
	stage
}

func (k *collectKernel) Name() string {
	return fmt.Sprintf("Collect(%d)", k.iteration)
}

func (*collectKernel) Kind() mc.StageKind {
	return mc.Aggregate
}

func (k *collectKernel) Work() int {
	return len(k.slot.Estimates)
}

func (k *collectKernel) Launch() error {
	if err := k.slot.expect(k.iteration, stateAggregating); err != nil {
		return err
	}

	k.handle.estimates = append(k.handle.estimates[:0], k.slot.Estimates...)

	return nil
}

func (k *collectKernel) Complete() error {
	return k.slot.transition(k.iteration, stateAggregating, stateIdle)
}

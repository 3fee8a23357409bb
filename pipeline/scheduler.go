// Package pipeline issues the iterations of a Monte Carlo pricing run over
// two buffer slots.
//
// Iteration i uses slot i mod 2 and runs Simulate, Calibrate, Price on every
// sub-stage, and Collect, each waiting on the previous one. Simulate(i)
// also waits on Collect(i-2), which is the last iteration that used the
// same slot. Everything is enqueued up front and the driver is run once.
package pipeline

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
	"github.com/sarchlab/mcengine/core"
	"github.com/sarchlab/mcengine/mc"
	"github.com/sarchlab/mcengine/verify"
)

// DefaultSubStages is the number of pricing kernels per iteration.
const DefaultSubStages = 2

// Config configures a pipelined pricing run.
type Config struct {
	Market       mc.MarketParameters
	CalibSamples int
	TimeSteps    int

	// RequiredSamples is split evenly across the sub-stages. When it is zero
	// every sub-stage prices until RequiredTolerance is met.
	RequiredSamples   int
	RequiredTolerance float64
	MaxSamples        int

	Iterations int
	SubStages  int
	Lanes      int
	Seed       uint64
}

func (c Config) validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be >= 1, got %d",
			mc.ErrInvalidParameter, c.Iterations)
	}

	if c.SubStages < 1 {
		return fmt.Errorf("%w: sub-stages must be >= 1, got %d",
			mc.ErrInvalidParameter, c.SubStages)
	}

	return nil
}

func (c Config) subStageSamples() int {
	if c.RequiredSamples <= 0 {
		return 0
	}

	return (c.RequiredSamples + c.SubStages - 1) / c.SubStages
}

// An IterationHandle holds the completion events of one iteration.
type IterationHandle struct {
	Index     int
	Slot      mc.Slot
	Simulate  *api.Event
	Calibrate *api.Event
	Price     []*api.Event
	Collect   *api.Event

	estimates []mc.PriceEstimate
}

// IterationResult is what one iteration produced.
type IterationResult struct {
	Index     int
	Slot      mc.Slot
	Estimates []mc.PriceEstimate
	Mean      float64
	Start     sim.VTimeInSec
	End       sim.VTimeInSec
}

// Result is the outcome of a run.
type Result struct {
	RunID      uuid.UUID
	Iterations []IterationResult

	// Estimates holds every sub-stage estimate in iteration order.
	Estimates []mc.PriceEstimate

	// Price is the arithmetic mean of Estimates.
	Price float64

	Elapsed sim.VTimeInSec
}

// Scheduler runs the pipeline on a driver.
type Scheduler struct {
	driver api.Driver
	cfg    Config
	runID  uuid.UUID

	slots [mc.NumSlots]*bufferSlot

	// gates[s] is the Collect event of the last iteration issued on slot s.
	gates [mc.NumSlots]*api.Event

	handles []*IterationHandle
}

// NewScheduler creates a scheduler and allocates both buffer slots.
func NewScheduler(driver api.Driver, cfg Config) *Scheduler {
	if cfg.SubStages == 0 {
		cfg.SubStages = DefaultSubStages
	}

	if cfg.Lanes == 0 {
		cfg.Lanes = core.DefaultLanes
	}

	s := &Scheduler{
		driver: driver,
		cfg:    cfg,
		runID:  uuid.New(),
	}

	for i := range s.slots {
		set := mc.NewBufferSet(mc.Slot(i),
			cfg.CalibSamples, cfg.TimeSteps, max(cfg.SubStages, 0))
		s.slots[i] = newBufferSlot(set)
	}

	return s
}

// RunID identifies the run in logs and trace records.
func (s *Scheduler) RunID() uuid.UUID {
	return s.runID
}

// Run issues all the iterations, waits for the driver once, and collects
// the estimates. On any error no result is returned.
func (s *Scheduler) Run() (*Result, error) {
	if err := s.cfg.validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	s.issue()

	if err := s.driver.Run(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	result := &Result{RunID: s.runID}
	for _, h := range s.handles {
		r, err := s.await(h)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}

		result.Iterations = append(result.Iterations, r)
		result.Estimates = append(result.Estimates, r.Estimates...)
		result.Elapsed = max(result.Elapsed, r.End)
	}

	result.Price = verify.Mean(result.Estimates...)

	core.Trace("Pipeline",
		"RunID", s.runID.String(),
		"Iterations", len(result.Iterations),
		"Estimates", len(result.Estimates),
		"Price", result.Price,
		"Elapsed", float64(result.Elapsed),
	)

	return result, nil
}

// issue enqueues every iteration in increasing order. It never blocks.
func (s *Scheduler) issue() {
	s.handles = s.handles[:0]
	s.gates = [mc.NumSlots]*api.Event{}

	for i := 0; i < s.cfg.Iterations; i++ {
		s.handles = append(s.handles, s.issueIteration(i))
	}
}

func (s *Scheduler) issueIteration(i int) *IterationHandle {
	slotID := mc.SlotOf(i)
	h := &IterationHandle{Index: i, Slot: slotID}
	base := stage{
		cfg:       &s.cfg,
		slot:      s.slots[slotID],
		handle:    h,
		iteration: i,
	}

	// No gate for the first use of a slot.
	h.Simulate = s.driver.Enqueue(&simulateKernel{stage: base}, s.gates[slotID])
	h.Calibrate = s.driver.Enqueue(&calibrateKernel{stage: base}, h.Simulate)

	for k := 0; k < s.cfg.SubStages; k++ {
		e := s.driver.Enqueue(&priceKernel{stage: base, subStage: k}, h.Calibrate)
		h.Price = append(h.Price, e)
	}

	h.Collect = s.driver.Enqueue(&collectKernel{stage: base}, h.Price...)
	s.gates[slotID] = h.Collect

	return h
}

// await retrieves the estimates of an iteration after the driver has run.
func (s *Scheduler) await(h *IterationHandle) (IterationResult, error) {
	if !h.Collect.Fired() || h.Collect.Err() != nil {
		return IterationResult{}, fmt.Errorf(
			"%w: iteration %d was not collected",
			mc.ErrDependencyViolation, h.Index)
	}

	estimates := make([]mc.PriceEstimate, len(h.estimates))
	copy(estimates, h.estimates)

	return IterationResult{
		Index:     h.Index,
		Slot:      h.Slot,
		Estimates: estimates,
		Mean:      verify.Mean(estimates...),
		Start:     h.Simulate.LaunchTime(),
		End:       h.Collect.FireTime(),
	}, nil
}

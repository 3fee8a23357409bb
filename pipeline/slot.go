package pipeline

import (
	"fmt"

	"github.com/sarchlab/mcengine/mc"
)

type slotState int

const (
	stateIdle slotState = iota
	stateSimulating
	stateCalibrating
	statePricing
	stateAggregating
)

func (s slotState) Name() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateSimulating:
		return "Simulating"
	case stateCalibrating:
		return "Calibrating"
	case statePricing:
		return "Pricing"
	case stateAggregating:
		return "Aggregating"
	default:
		panic("invalid slot state")
	}
}

// A bufferSlot owns one buffer set and tracks which iteration is using it.
// It is only touched from kernel callbacks, which the driver runs one at a
// time.
type bufferSlot struct {
	*mc.BufferSet

	state         slotState
	owner         int
	pendingPrices int
}

func newBufferSlot(set *mc.BufferSet) *bufferSlot {
	return &bufferSlot{
		BufferSet: set,
		owner:     -1,
	}
}

func (s *bufferSlot) violation(iteration int, want slotState) error {
	return fmt.Errorf("%w: iteration %d expects slot %s %s, but it is %s (owner %d)",
		mc.ErrDependencyViolation, iteration, s.Slot.Name(), want.Name(),
		s.state.Name(), s.owner)
}

// acquire hands an idle slot to an iteration.
func (s *bufferSlot) acquire(iteration int) error {
	if s.state != stateIdle {
		return s.violation(iteration, stateIdle)
	}

	s.state = stateSimulating
	s.owner = iteration

	return nil
}

func (s *bufferSlot) expect(iteration int, state slotState) error {
	if s.state != state || s.owner != iteration {
		return s.violation(iteration, state)
	}

	return nil
}

func (s *bufferSlot) transition(iteration int, from, to slotState) error {
	if err := s.expect(iteration, from); err != nil {
		return err
	}

	s.state = to
	if to == stateIdle {
		s.owner = -1
	}

	return nil
}

// startPricing moves the slot into Pricing and arms the sub-stage join.
func (s *bufferSlot) startPricing(iteration, subStages int) error {
	if err := s.transition(iteration, stateCalibrating, statePricing); err != nil {
		return err
	}

	s.pendingPrices = subStages

	return nil
}

// finishPrice counts one finished sub-stage. The last one moves the slot to
// Aggregating.
func (s *bufferSlot) finishPrice(iteration int) error {
	if err := s.expect(iteration, statePricing); err != nil {
		return err
	}

	s.pendingPrices--
	if s.pendingPrices == 0 {
		s.state = stateAggregating
	}

	return nil
}

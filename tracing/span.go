// Package tracing observes the kernels that a driver runs.
package tracing

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/api"
	"github.com/sarchlab/mcengine/mc"
)

// iterationKernel is implemented by kernels that belong to a pipeline
// iteration.
type iterationKernel interface {
	Iteration() int
	Slot() mc.Slot
}

// A Span is one finished command.
type Span struct {
	Kernel    string
	Kind      mc.StageKind
	Iteration int
	Slot      string
	Start     sim.VTimeInSec
	End       sim.VTimeInSec
	Err       string
}

// Duration returns how long the command ran.
func (s Span) Duration() sim.VTimeInSec {
	return s.End - s.Start
}

func spanOf(cmd *api.Command) Span {
	s := Span{
		Kernel:    cmd.Kernel.Name(),
		Kind:      cmd.Kernel.Kind(),
		Iteration: -1,
		Start:     cmd.Event.LaunchTime(),
		End:       cmd.Event.FireTime(),
	}

	if k, ok := cmd.Kernel.(iterationKernel); ok {
		s.Iteration = k.Iteration()
		s.Slot = k.Slot().Name()
	}

	if err := cmd.Event.Err(); err != nil {
		s.Err = err.Error()
	}

	return s
}

func nanoseconds(t sim.VTimeInSec) float64 {
	return float64(t) * 1e9
}

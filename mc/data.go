package mc

import "math"

// SimulationBatch holds discounted asset prices e^{-rt}S(t) for a set of
// paths. Samples are stored timestep-major, so that all paths of one
// timestep are contiguous. Timestep 0 is the spot and is not stored.
type SimulationBatch struct {
	Paths     int
	TimeSteps int

	// Rate and Dt are needed to undiscount a sample.
	Rate float64
	Dt   float64

	Samples []float64
}

// Reshape resizes the batch, reusing its storage when possible.
func (b *SimulationBatch) Reshape(paths, timeSteps int) {
	n := 0
	if paths > 0 && timeSteps > 0 {
		n = paths * timeSteps
	}

	if cap(b.Samples) < n {
		b.Samples = make([]float64, n)
	}

	b.Samples = b.Samples[:n]
	b.Paths = paths
	b.TimeSteps = timeSteps
}

// Len returns the number of stored samples.
func (b *SimulationBatch) Len() int {
	return len(b.Samples)
}

// Step returns the discounted samples of all paths at timestep j, where j
// ranges from 1 to TimeSteps.
func (b *SimulationBatch) Step(j int) []float64 {
	start := (j - 1) * b.Paths
	return b.Samples[start : start+b.Paths]
}

// At returns the discounted sample of path p at timestep j.
func (b *SimulationBatch) At(p, j int) float64 {
	return b.Samples[(j-1)*b.Paths+p]
}

// Price returns the undiscounted asset price of path p at timestep j.
func (b *SimulationBatch) Price(p, j int) float64 {
	return b.At(p, j) * b.Growth(j)
}

// Growth returns the factor that undiscounts a sample at timestep j.
func (b *SimulationBatch) Growth(j int) float64 {
	return math.Exp(b.Rate * b.Dt * float64(j))
}

// RegressionCoefficients holds one fitted continuation-value polynomial per
// exercise timestep 1..TimeSteps-1. Index 0 is timestep 1. A nil entry
// means that nothing could be fitted at that timestep and the holder keeps
// the option.
type RegressionCoefficients [][]float64

// At returns the coefficients of timestep j.
func (c RegressionCoefficients) At(j int) []float64 {
	return c[j-1]
}

// PriceEstimate is the output of one pricing sub-stage.
type PriceEstimate struct {
	Value   float64
	StdErr  float64
	Samples int
	Stream  uint64
}

// BufferSet is the storage owned by one slot. Only the iteration that
// currently holds the slot may write into it.
type BufferSet struct {
	Slot         Slot
	Batch        SimulationBatch
	Coefficients RegressionCoefficients
	Estimates    []PriceEstimate
}

// NewBufferSet allocates the storage for a slot.
func NewBufferSet(slot Slot, paths, timeSteps, subStages int) *BufferSet {
	s := &BufferSet{
		Slot:      slot,
		Estimates: make([]PriceEstimate, subStages),
	}
	s.Batch.Reshape(paths, timeSteps)

	if timeSteps > 1 {
		s.Coefficients = make(RegressionCoefficients, timeSteps-1)
	}

	return s
}

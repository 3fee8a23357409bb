// Package mc defines the commonly used data structures for the Monte Carlo
// pricing pipeline.
package mc

// Slot identifies one half of a double-buffered resource set.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

// NumSlots is the double-buffering depth.
const NumSlots = 2

// SlotOf returns the slot that the given iteration runs on.
func SlotOf(iteration int) Slot {
	return Slot(iteration % NumSlots)
}

// Name returns the name of the slot.
func (s Slot) Name() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		panic("invalid slot")
	}
}

// StageKind defines a phase of the pricing pipeline.
type StageKind int

const (
	Simulate StageKind = iota
	Calibrate
	Price
	Aggregate
)

// StageKinds lists every stage in pipeline order.
var StageKinds = []StageKind{Simulate, Calibrate, Price, Aggregate}

// Name returns the name of the stage kind.
func (k StageKind) Name() string {
	switch k {
	case Simulate:
		return "Simulate"
	case Calibrate:
		return "Calibrate"
	case Price:
		return "Price"
	case Aggregate:
		return "Aggregate"
	default:
		panic("invalid stage kind")
	}
}

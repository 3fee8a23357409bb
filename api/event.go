package api

import (
	"github.com/sarchlab/akita/v4/sim"
)

// An Event signals that a command has finished. Commands list the events
// they wait on; an event never un-fires.
type Event struct {
	id   string
	name string

	fired      bool
	err        error
	launchedAt sim.VTimeInSec
	firedAt    sim.VTimeInSec
}

// NewEvent creates an event that has not fired.
func NewEvent(name string) *Event {
	return &Event{
		id:   sim.GetIDGenerator().Generate(),
		name: name,
	}
}

// ID returns the unique ID of the event.
func (e *Event) ID() string {
	return e.id
}

// Name returns the name of the command the event belongs to.
func (e *Event) Name() string {
	return e.name
}

// Fired tells if the command has finished.
func (e *Event) Fired() bool {
	return e.fired
}

// Err returns the error of the command, if it failed.
func (e *Event) Err() error {
	return e.err
}

// LaunchTime returns when the command started running.
func (e *Event) LaunchTime() sim.VTimeInSec {
	return e.launchedAt
}

// FireTime returns when the command finished.
func (e *Event) FireTime() sim.VTimeInSec {
	return e.firedAt
}

func (e *Event) fire(now sim.VTimeInSec, err error) {
	e.fired = true
	e.err = err
	e.firedAt = now
}

// Package api defines the driver API for the pricing accelerator.
package api

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/mcengine/mc"
)

// HookPosKernelLaunch marks when a command starts on a kernel instance.
var HookPosKernelLaunch = &sim.HookPos{Name: "Kernel Launch"}

// HookPosKernelComplete marks when a command finishes and its event fires.
var HookPosKernelComplete = &sim.HookPos{Name: "Kernel Complete"}

// A Kernel is a unit of work that runs on one kernel instance. Launch is
// called when the command starts and Complete when its latency has passed.
type Kernel interface {
	Name() string
	Kind() mc.StageKind

	// Work is the number of lane-operations the kernel performs. It decides
	// the latency of the command.
	Work() int

	Launch() error
	Complete() error
}

// Driver provides the interface to control an accelerator.
type Driver interface {
	// Enqueue adds a kernel to the out-of-order command queue and returns
	// the event that fires when the kernel finishes. The kernel does not
	// start before all the waitOn events have fired. Enqueue never blocks.
	Enqueue(k Kernel, waitOn ...*Event) *Event

	// Run runs all the commands that have been enqueued and returns when
	// the queue has drained. It is the only blocking call.
	Run() error

	// AcceptHook registers a hook that observes kernel launches and
	// completions.
	AcceptHook(hook sim.Hook)
}

// A Command is a kernel together with its dependencies and its event.
type Command struct {
	Kernel   Kernel
	Event    *Event
	WaitOn   []*Event
	Instance int

	remaining int
}

type driverImpl struct {
	*sim.TickingComponent

	instances      map[mc.StageKind][]*Command
	lanesPerCycle  int
	launchOverhead int

	pending  []*Command
	inFlight []*Command

	err error
}

// Tick runs the driver for one cycle.
func (d *driverImpl) Tick() (madeProgress bool) {
	madeProgress = d.doComplete() || madeProgress
	madeProgress = d.doLaunch() || madeProgress

	return madeProgress
}

func (d *driverImpl) doComplete() bool {
	if len(d.inFlight) == 0 {
		return false
	}

	for _, cmd := range d.inFlight {
		cmd.remaining--
		if cmd.remaining <= 0 {
			d.completeCommand(cmd)
		}
	}

	d.removeFinishedCommands()

	return true
}

func (d *driverImpl) completeCommand(cmd *Command) {
	err := cmd.Kernel.Complete()
	if err != nil {
		err = fmt.Errorf("complete %s: %w", cmd.Kernel.Name(), err)
		d.abort(err)
	}

	cmd.Event.fire(d.Engine.CurrentTime(), err)
	d.instances[cmd.Kernel.Kind()][cmd.Instance] = nil

	d.InvokeHook(sim.HookCtx{
		Domain: d,
		Pos:    HookPosKernelComplete,
		Item:   cmd,
	})
}

func (d *driverImpl) removeFinishedCommands() {
	for i := len(d.inFlight) - 1; i >= 0; i-- {
		if d.inFlight[i].Event.Fired() {
			d.inFlight = append(d.inFlight[:i], d.inFlight[i+1:]...)
		}
	}
}

func (d *driverImpl) doLaunch() bool {
	if d.err != nil {
		return false
	}

	madeProgress := false

	for i := 0; i < len(d.pending); i++ {
		cmd := d.pending[i]
		if !d.isReady(cmd) {
			continue
		}

		instance := d.freeInstance(cmd.Kernel.Kind())
		if instance < 0 {
			continue
		}

		d.pending = append(d.pending[:i], d.pending[i+1:]...)
		i--

		d.launchCommand(cmd, instance)
		madeProgress = true

		if d.err != nil {
			break
		}
	}

	return madeProgress
}

func (d *driverImpl) launchCommand(cmd *Command, instance int) {
	now := d.Engine.CurrentTime()

	cmd.Instance = instance
	cmd.Event.launchedAt = now
	d.instances[cmd.Kernel.Kind()][instance] = cmd

	d.InvokeHook(sim.HookCtx{
		Domain: d,
		Pos:    HookPosKernelLaunch,
		Item:   cmd,
	})

	if err := cmd.Kernel.Launch(); err != nil {
		err = fmt.Errorf("launch %s: %w", cmd.Kernel.Name(), err)
		d.abort(err)
		cmd.Event.fire(now, err)
		d.instances[cmd.Kernel.Kind()][instance] = nil

		return
	}

	cmd.remaining = d.latency(cmd.Kernel)
	d.inFlight = append(d.inFlight, cmd)
}

func (d *driverImpl) latency(k Kernel) int {
	cycles := d.launchOverhead + (k.Work()+d.lanesPerCycle-1)/d.lanesPerCycle
	if cycles < 1 {
		cycles = 1
	}

	return cycles
}

func (*driverImpl) isReady(cmd *Command) bool {
	for _, e := range cmd.WaitOn {
		if !e.Fired() || e.Err() != nil {
			return false
		}
	}

	return true
}

func (d *driverImpl) freeInstance(kind mc.StageKind) int {
	for i, busy := range d.instances[kind] {
		if busy == nil {
			return i
		}
	}

	return -1
}

// abort keeps the first error. In-flight commands still finish, but nothing
// new is launched.
func (d *driverImpl) abort(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Enqueue adds a kernel to the command queue.
func (d *driverImpl) Enqueue(k Kernel, waitOn ...*Event) *Event {
	if _, ok := d.instances[k.Kind()]; !ok {
		panic(fmt.Sprintf("no kernel instance for %s", k.Kind().Name()))
	}

	cmd := &Command{
		Kernel: k,
		Event:  NewEvent(k.Name()),
	}

	for _, e := range waitOn {
		if e != nil {
			cmd.WaitOn = append(cmd.WaitOn, e)
		}
	}

	d.pending = append(d.pending, cmd)

	return cmd.Event
}

// Run runs all the commands in the queue.
func (d *driverImpl) Run() error {
	d.TickLater()

	if err := d.Engine.Run(); err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	stuck := len(d.pending)
	d.pending = nil

	if d.err != nil {
		err := d.err
		d.err = nil

		return err
	}

	if stuck > 0 {
		return fmt.Errorf("%w: %d commands never became ready",
			mc.ErrDependencyViolation, stuck)
	}

	return nil
}

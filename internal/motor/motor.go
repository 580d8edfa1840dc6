// Package motor drives the reversible tracking actuator through two
// direction outputs. It guarantees that both directions are never energized
// together and that every reversal passes through a dead time.
package motor

import (
	"fmt"
	"time"

	"github.com/sweeney/solar-tracker/internal/clock"
	"github.com/sweeney/solar-tracker/internal/gpio"
)

// State is the actuator's drive state.
type State int

const (
	Stopped State = iota
	MovingEast
	MovingWest
	DeadTime
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case MovingEast:
		return "MOVING_EAST"
	case MovingWest:
		return "MOVING_WEST"
	case DeadTime:
		return "DEAD_TIME"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Command is a queued direction request.
type Command int

const (
	None Command = iota
	East
	West
)

func (c Command) String() string {
	switch c {
	case None:
		return "NONE"
	case East:
		return "EAST"
	case West:
		return "WEST"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

// Notice identifies an out-of-band condition reported by the actuator.
type Notice int

const (
	// InterlockTripped means both outputs were found asserted together.
	InterlockTripped Notice = iota
	// MaxMoveTimeReached means a continuous run hit the self-stop limit.
	MaxMoveTimeReached
	// PinError means an output could not be read or written.
	PinError
)

func (n Notice) String() string {
	switch n {
	case InterlockTripped:
		return "INTERLOCK_TRIPPED"
	case MaxMoveTimeReached:
		return "MAX_MOVE_TIME_REACHED"
	case PinError:
		return "PIN_ERROR"
	}
	return fmt.Sprintf("Notice(%d)", int(n))
}

// Defaults for Config.
const (
	DefaultDeadTime    = 500 * time.Millisecond
	DefaultMaxMoveTime = 120 * time.Second
)

// Config holds actuator timing.
type Config struct {
	// DeadTime is the pause between de-energizing one direction and
	// energizing the other.
	DeadTime time.Duration
	// MaxMoveTime bounds a single continuous run. Zero disables the limit.
	MaxMoveTime time.Duration
}

// DefaultConfig returns the stock actuator timing.
func DefaultConfig() Config {
	return Config{DeadTime: DefaultDeadTime, MaxMoveTime: DefaultMaxMoveTime}
}

// Actuator controls the east and west motor outputs.
// Not safe for concurrent use; the control loop is its only caller.
type Actuator struct {
	east  gpio.Output
	west  gpio.Output
	clock clock.Source

	deadTime clock.Millis
	maxMove  clock.Millis

	state     State
	pending   Command
	moveStart clock.Millis
	deadStart clock.Millis

	interlockTrips int
	maxMoveStops   int

	// OnNotice, if set, is called for interlock trips, self-stops and pin
	// errors.
	OnNotice func(n Notice, err error)
}

// New creates an Actuator in the Stopped state and drives both outputs low.
func New(east, west gpio.Output, src clock.Source, cfg Config) *Actuator {
	a := &Actuator{
		east:     east,
		west:     west,
		clock:    src,
		deadTime: clock.FromDuration(cfg.DeadTime),
		maxMove:  clock.FromDuration(cfg.MaxMoveTime),
	}
	a.deenergize()
	return a
}

// MoveEast starts or queues movement toward the east.
func (a *Actuator) MoveEast() { a.move(East) }

// MoveWest starts or queues movement toward the west.
func (a *Actuator) MoveWest() { a.move(West) }

func (a *Actuator) move(dir Command) {
	switch a.state {
	case Stopped:
		a.energize(dir)
	case DeadTime:
		a.pending = dir
	case MovingEast, MovingWest:
		if movingState(dir) == a.state {
			return
		}
		a.deenergize()
		a.state = DeadTime
		a.deadStart = a.clock.Now()
		a.pending = dir
	}
}

// Stop de-energizes both outputs immediately and clears any queued command,
// including during dead time.
func (a *Actuator) Stop() {
	a.deenergize()
	a.state = Stopped
	a.pending = None
}

// Update advances dead time and enforces the maximum run time.
func (a *Actuator) Update() {
	now := a.clock.Now()
	switch a.state {
	case DeadTime:
		if now.Since(a.deadStart) < a.deadTime {
			return
		}
		a.state = Stopped
		cmd := a.pending
		a.pending = None
		if cmd != None {
			a.energize(cmd)
		}
	case MovingEast, MovingWest:
		if a.maxMove > 0 && now.Since(a.moveStart) >= a.maxMove {
			a.Stop()
			a.maxMoveStops++
			a.notify(MaxMoveTimeReached, nil)
		}
	}
}

func (a *Actuator) energize(dir Command) {
	if !a.checkInterlock() {
		return
	}
	on, off := a.east, a.west
	if dir == West {
		on, off = a.west, a.east
	}
	// Release the opposite direction before asserting this one.
	if err := off.SetValue(0); err != nil {
		a.notify(PinError, fmt.Errorf("release %s: %w", opposite(dir), err))
		a.Stop()
		return
	}
	if err := on.SetValue(1); err != nil {
		a.notify(PinError, fmt.Errorf("assert %s: %w", dir, err))
		a.Stop()
		return
	}
	a.state = movingState(dir)
	a.moveStart = a.clock.Now()
}

func (a *Actuator) deenergize() {
	a.checkInterlock()
	if err := a.east.SetValue(0); err != nil {
		a.notify(PinError, fmt.Errorf("release EAST: %w", err))
	}
	if err := a.west.SetValue(0); err != nil {
		a.notify(PinError, fmt.Errorf("release WEST: %w", err))
	}
}

// checkInterlock reads back both outputs. If both are asserted it forces
// them low, resets to Stopped and returns false.
func (a *Actuator) checkInterlock() bool {
	e, errE := a.east.Value()
	w, errW := a.west.Value()
	if errE != nil || errW != nil {
		a.notify(PinError, fmt.Errorf("read back outputs: east=%v west=%v", errE, errW))
	}
	if e == 0 || w == 0 {
		return true
	}

	a.interlockTrips++
	a.east.SetValue(0)
	a.west.SetValue(0)
	a.state = Stopped
	a.pending = None
	a.notify(InterlockTripped, fmt.Errorf("east and west both asserted"))
	return false
}

func (a *Actuator) notify(n Notice, err error) {
	if a.OnNotice != nil {
		a.OnNotice(n, err)
	}
}

// SetDeadTime changes the reversal dead time. A dead time in progress uses
// the new value from the next Update.
func (a *Actuator) SetDeadTime(d time.Duration) { a.deadTime = clock.FromDuration(d) }

// SetMaxMoveTime changes the continuous run limit.
func (a *Actuator) SetMaxMoveTime(d time.Duration) { a.maxMove = clock.FromDuration(d) }

// DeadTime returns the configured reversal dead time.
func (a *Actuator) DeadTime() time.Duration { return a.deadTime.Duration() }

// MaxMoveTime returns the configured continuous run limit.
func (a *Actuator) MaxMoveTime() time.Duration { return a.maxMove.Duration() }

// State returns the current drive state.
func (a *Actuator) State() State { return a.state }

// Pending returns the command queued behind the dead time.
func (a *Actuator) Pending() Command { return a.pending }

// IsMoving reports whether a direction output is energized.
func (a *Actuator) IsMoving() bool {
	return a.state == MovingEast || a.state == MovingWest
}

// InterlockTrips returns how many times the interlock has fired.
func (a *Actuator) InterlockTrips() int { return a.interlockTrips }

// MaxMoveStops returns how many runs were ended by the maximum run time.
func (a *Actuator) MaxMoveStops() int { return a.maxMoveStops }

func movingState(dir Command) State {
	if dir == West {
		return MovingWest
	}
	return MovingEast
}

func opposite(dir Command) Command {
	if dir == West {
		return East
	}
	return West
}

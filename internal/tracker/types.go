// Package tracker contains the single-axis tracking state machine.
// This package has NO hardware dependencies: sensors, the actuator, time and
// the diagnostic sink are all injected.
package tracker

import (
	"fmt"
	"time"

	"github.com/sweeney/solar-tracker/internal/clock"
)

// State is the tracker's control state.
type State int

const (
	Idle State = iota
	Adjusting
	NightMode
	DefaultWestMovement
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Adjusting:
		return "ADJUSTING"
	case NightMode:
		return "NIGHT_MODE"
	case DefaultWestMovement:
		return "DEFAULT_WEST_MOVEMENT"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Direction is the movement direction fixed for an adjustment episode.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionEast
	DirectionWest
)

func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "NONE"
	case DirectionEast:
		return "EAST"
	case DirectionWest:
		return "WEST"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

func (d Direction) opposite() Direction {
	switch d {
	case DirectionEast:
		return DirectionWest
	case DirectionWest:
		return DirectionEast
	}
	return DirectionNone
}

// Sensor provides a smoothed resistance reading in ohms.
// Higher resistance means less light.
type Sensor interface {
	FilteredValue() float64
}

// Actuator is the motor the tracker commands.
type Actuator interface {
	MoveEast()
	MoveWest()
	Stop()
}

// EventType names a diagnostic event.
type EventType string

const (
	EventAdjustmentStarted    EventType = "ADJUSTMENT_STARTED"
	EventAdjustmentSkipped    EventType = "ADJUSTMENT_SKIPPED_LOW_BRIGHTNESS"
	EventAdjustmentAborted    EventType = "ADJUSTMENT_ABORTED_LOW_BRIGHTNESS"
	EventAdjustmentTimeout    EventType = "ADJUSTMENT_TIMEOUT"
	EventOvershootDetected    EventType = "OVERSHOOT_DETECTED"
	EventReversalNoProgress   EventType = "REVERSAL_ABORTED_NO_PROGRESS"
	EventReversalLimitReached EventType = "REVERSAL_LIMIT_REACHED"
	EventNightModeEntered     EventType = "NIGHT_MODE_ENTERED"
	EventDayModeEntered       EventType = "DAY_MODE_ENTERED"
	EventDefaultWestStarted   EventType = "DEFAULT_WEST_STARTED"
	EventDefaultWestCompleted EventType = "DEFAULT_WEST_COMPLETED"
	EventSuccessfulMovement   EventType = "SUCCESSFUL_MOVEMENT"
	EventStateChanged         EventType = "STATE_CHANGED"
)

// EventTypes lists every event type in a stable order.
var EventTypes = []EventType{
	EventAdjustmentStarted,
	EventAdjustmentSkipped,
	EventAdjustmentAborted,
	EventAdjustmentTimeout,
	EventOvershootDetected,
	EventReversalNoProgress,
	EventReversalLimitReached,
	EventNightModeEntered,
	EventDayModeEntered,
	EventDefaultWestStarted,
	EventDefaultWestCompleted,
	EventSuccessfulMovement,
	EventStateChanged,
}

// Event is a diagnostic record of something the state machine did.
// Fields not relevant to a given type are left zero.
type Event struct {
	At   clock.Millis
	Type EventType

	// Episode identifies the adjustment episode the event belongs to.
	Episode string

	// State is the tracker state when the event was raised.
	State State
	// From and To are set for EventStateChanged.
	From State
	To   State

	Brightness  float64
	Threshold   float64
	East        float64
	West        float64
	Tolerance   float64
	InitialDiff float64
	Direction   Direction
	Duration    time.Duration
	Tries       int
}

// Sink receives diagnostic events.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

type discard struct{}

func (discard) Emit(Event) {}

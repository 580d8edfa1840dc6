// Package control runs one cooperative tick of the tracker: both sensors,
// then the actuator, then the state machine.
package control

import (
	"time"

	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/tracker"
)

// Sensor is a polled light sensor.
type Sensor interface {
	Update()
	Value() int32
	FilteredValue() float64
	ReadErrors() int
}

// Motor is a polled actuator.
type Motor interface {
	Update()
	Stop()
	State() motor.State
	InterlockTrips() int
	MaxMoveStops() int
}

// Measurements is the latest sensor data.
type Measurements struct {
	EastRaw      int32
	WestRaw      int32
	EastFiltered float64
	WestFiltered float64
	Brightness   float64
}

// Status summarises the controller for display.
type Status struct {
	Tracker             tracker.State
	Motor               motor.State
	Night               bool
	Direction           tracker.Direction
	Episode             string
	ReversalTries       int
	UntilNextAdjustment time.Duration
	SinceStateChange    time.Duration
	LastMovement        time.Duration
	HistoryCount        int
	HistoryAverage      time.Duration
	InterlockTrips      int
	MaxMoveStops        int
	SensorErrors        int
	Ticks               uint64
}

// Loop owns the update order. All methods must be called from one goroutine.
type Loop struct {
	east    Sensor
	west    Sensor
	motor   Motor
	tracker *tracker.Tracker
	ticks   uint64
}

// New creates a loop over already constructed components.
func New(east, west Sensor, m Motor, t *tracker.Tracker) *Loop {
	return &Loop{east: east, west: west, motor: m, tracker: t}
}

// Tick advances every component once.
func (l *Loop) Tick() {
	l.east.Update()
	l.west.Update()
	l.motor.Update()
	l.tracker.Update()
	l.ticks++
}

// Stop de-energizes the actuator.
func (l *Loop) Stop() {
	l.motor.Stop()
}

// Tracker returns the state machine.
func (l *Loop) Tracker() *tracker.Tracker { return l.tracker }

// Measurements returns the current readings.
func (l *Loop) Measurements() Measurements {
	return Measurements{
		EastRaw:      l.east.Value(),
		WestRaw:      l.west.Value(),
		EastFiltered: l.east.FilteredValue(),
		WestFiltered: l.west.FilteredValue(),
		Brightness:   l.tracker.FilteredBrightness(),
	}
}

// Status returns the current controller summary.
func (l *Loop) Status() Status {
	count, avg := l.tracker.MovementHistory()
	return Status{
		Tracker:             l.tracker.State(),
		Motor:               l.motor.State(),
		Night:               l.tracker.IsNight(),
		Direction:           l.tracker.Direction(),
		Episode:             l.tracker.Episode(),
		ReversalTries:       l.tracker.ReversalTries(),
		UntilNextAdjustment: l.tracker.TimeUntilNextAdjustment(),
		SinceStateChange:    l.tracker.TimeSinceStateChange(),
		LastMovement:        l.tracker.LastMovementDuration(),
		HistoryCount:        count,
		HistoryAverage:      avg,
		InterlockTrips:      l.motor.InterlockTrips(),
		MaxMoveStops:        l.motor.MaxMoveStops(),
		SensorErrors:        l.east.ReadErrors() + l.west.ReadErrors(),
		Ticks:               l.ticks,
	}
}

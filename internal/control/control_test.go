package control

import (
	"testing"
	"time"

	"github.com/sweeney/solar-tracker/internal/adc"
	"github.com/sweeney/solar-tracker/internal/clock"
	"github.com/sweeney/solar-tracker/internal/gpio"
	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/sensor"
	"github.com/sweeney/solar-tracker/internal/tracker"
)

// orderLog records calls from every component in one sequence.
type orderLog struct {
	calls []string
}

type loggedSensor struct {
	name string
	log  *orderLog
}

func (s *loggedSensor) FilteredValue() float64 {
	s.log.calls = append(s.log.calls, s.name+".read")
	return 5000
}

func (s *loggedSensor) Update()         { s.log.calls = append(s.log.calls, s.name+".update") }
func (s *loggedSensor) Value() int32    { return 0 }
func (s *loggedSensor) ReadErrors() int { return 1 }

type loggedMotor struct {
	tracker.FakeActuator
	log *orderLog
}

func (m *loggedMotor) Update()             { m.log.calls = append(m.log.calls, "motor.update") }
func (m *loggedMotor) State() motor.State  { return motor.Stopped }
func (m *loggedMotor) InterlockTrips() int { return 2 }
func (m *loggedMotor) MaxMoveStops() int   { return 3 }

func TestTickOrder(t *testing.T) {
	log := &orderLog{}
	east := &loggedSensor{name: "east", log: log}
	west := &loggedSensor{name: "west", log: log}
	m := &loggedMotor{log: log}
	clk := clock.NewFake(0)

	trk, err := tracker.New(east, west, m, clk, nil, tracker.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	loop := New(east, west, m, trk)
	loop.Tick()

	if len(log.calls) < 4 {
		t.Fatalf("too few calls: %v", log.calls)
	}
	want := []string{"east.update", "west.update", "motor.update"}
	for i, w := range want {
		if log.calls[i] != w {
			t.Fatalf("call %d = %q, want %q (all: %v)", i, log.calls[i], w, log.calls)
		}
	}
	for _, c := range log.calls[3:] {
		if c != "east.read" && c != "west.read" {
			t.Errorf("unexpected call after motor update: %q", c)
		}
	}

	st := loop.Status()
	if st.Ticks != 1 {
		t.Errorf("Ticks = %d, want 1", st.Ticks)
	}
	if st.SensorErrors != 2 || st.InterlockTrips != 2 || st.MaxMoveStops != 3 {
		t.Errorf("unexpected counters %+v", st)
	}
	if st.Tracker != tracker.Idle {
		t.Errorf("tracker state = %v", st.Tracker)
	}
}

func TestStopDeenergizes(t *testing.T) {
	log := &orderLog{}
	m := &loggedMotor{log: log}
	s := &loggedSensor{name: "s", log: log}
	trk, err := tracker.New(s, s, m, clock.NewFake(0), nil, tracker.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	New(s, s, m, trk).Stop()
	if m.Count("stop") != 1 {
		t.Errorf("expected one stop, got %v", m.Calls)
	}
}

// TestLoopWithHardwareFakes wires real components over fake hardware and
// checks that an imbalance drives the panel toward the brighter side.
func TestLoopWithHardwareFakes(t *testing.T) {
	clk := clock.NewFake(0)
	pair := gpio.NewFakePair()

	// Higher readings mean higher resistance: east is shaded, west is lit.
	eastCh := adc.NewFakeChannel(800)
	westCh := adc.NewFakeChannel(200)

	scfg := sensor.Config{SeriesResistorOhms: 10000, SamplePeriod: 100 * time.Millisecond, FilterTau: 200 * time.Millisecond}
	east := sensor.New("east", eastCh, clk, scfg)
	west := sensor.New("west", westCh, clk, scfg)
	act := motor.New(pair.East(), pair.West(), clk, motor.DefaultConfig())

	cfg := tracker.DefaultConfig()
	cfg.AdjustmentPeriod = 2 * time.Second
	cfg.MaxMovementTime = 2 * time.Second
	cfg.ReversalTimeLimit = time.Second
	cfg.DefaultWestTime = time.Second
	trk, err := tracker.New(east, west, act, clk, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	loop := New(east, west, act, trk)

	for i := 0; i < 30; i++ {
		clk.Advance(100 * time.Millisecond)
		loop.Tick()
	}

	m := loop.Measurements()
	if m.EastRaw <= m.WestRaw {
		t.Fatalf("east should read higher resistance: %+v", m)
	}
	st := loop.Status()
	if st.Tracker != tracker.Adjusting {
		t.Fatalf("tracker state = %v, want ADJUSTING", st.Tracker)
	}
	if st.Direction != tracker.DirectionWest || st.Motor != motor.MovingWest {
		t.Errorf("direction %v motor %v, want WEST/MOVING_WEST", st.Direction, st.Motor)
	}
	if pair.WestLine.Level() != 1 || pair.EastLine.Level() != 0 {
		t.Errorf("lines east=%d west=%d", pair.EastLine.Level(), pair.WestLine.Level())
	}
	if pair.Overlaps() != 0 {
		t.Errorf("both lines asserted %d times", pair.Overlaps())
	}

	loop.Stop()
	if pair.WestLine.Level() != 0 {
		t.Error("west line still asserted after Stop")
	}
}

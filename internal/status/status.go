// Package status provides a thread-safe view of the solar-tracker daemon for
// HTTP handlers, metrics and MQTT status events. The control loop writes it;
// everything else reads snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/solar-tracker/internal/control"
	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/tracker"
)

// History sampling for the brightness graph.
const (
	HistoryInterval = 2 * time.Second
	HistoryLen      = 150
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	GPIOBackend string
	ADCBackend  string
	Store       string
	PinEast     int
	PinWest     int
}

// Sample is one point of the brightness history.
type Sample struct {
	At         time.Time
	East       float64
	West       float64
	Brightness float64
	Moving     bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type: maps and slices are copies, safe to use after the lock
// is released.
type Snapshot struct {
	Measurements  control.Measurements
	Status        control.Status
	Counts        map[tracker.EventType]int
	LastEvent     tracker.EventType
	LastEventAt   time.Time
	Params        map[string]float64
	History       []Sample
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Board holds mutable daemon state behind an RWMutex.
type Board struct {
	mu         sync.RWMutex
	snap       Snapshot
	lastSample time.Time

	now func() time.Time
}

// NewBoard creates a Board with the given start time and config.
func NewBoard(startTime time.Time, cfg Config) *Board {
	return &Board{
		snap: Snapshot{
			Counts:    make(map[tracker.EventType]int),
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update stores the latest readings and controller status.
// Called from runLoop on every tick.
func (b *Board) Update(m control.Measurements, st control.Status) {
	b.mu.Lock()
	b.snap.Measurements = m
	b.snap.Status = st
	b.mu.Unlock()
}

// RecordEvent counts a tracker event.
func (b *Board) RecordEvent(typ tracker.EventType, at time.Time) {
	b.mu.Lock()
	b.snap.Counts[typ]++
	b.snap.LastEvent = typ
	b.snap.LastEventAt = at
	b.mu.Unlock()
}

// AddSample appends the current readings to the history if at least
// HistoryInterval has passed since the previous sample. The oldest samples
// are discarded beyond HistoryLen.
func (b *Board) AddSample(at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lastSample.IsZero() && at.Sub(b.lastSample) < HistoryInterval {
		return
	}
	b.lastSample = at
	b.snap.History = append(b.snap.History, Sample{
		At:         at,
		East:       b.snap.Measurements.EastFiltered,
		West:       b.snap.Measurements.WestFiltered,
		Brightness: b.snap.Measurements.Brightness,
		Moving:     b.snap.Status.Motor == motor.MovingEast || b.snap.Status.Motor == motor.MovingWest,
	})
	if n := len(b.snap.History); n > HistoryLen {
		b.snap.History = append(b.snap.History[:0:0], b.snap.History[n-HistoryLen:]...)
	}
}

// SetParams stores the current parameter values.
func (b *Board) SetParams(values map[string]float64) {
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	b.mu.Lock()
	b.snap.Params = cp
	b.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (b *Board) SetMQTTConnected(connected bool) {
	b.mu.Lock()
	b.snap.MQTTConnected = connected
	b.mu.Unlock()
}

// SetNetwork sets the network info.
func (b *Board) SetNetwork(info *NetworkInfo) {
	b.mu.Lock()
	b.snap.Network = info
	b.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	s := b.snap
	s.Counts = make(map[tracker.EventType]int, len(b.snap.Counts))
	for k, v := range b.snap.Counts {
		s.Counts[k] = v
	}
	if b.snap.Params != nil {
		s.Params = make(map[string]float64, len(b.snap.Params))
		for k, v := range b.snap.Params {
			s.Params[k] = v
		}
	}
	s.History = append([]Sample(nil), b.snap.History...)
	if b.snap.Network != nil {
		n := *b.snap.Network
		s.Network = &n
	}
	b.mu.RUnlock()
	s.Now = b.now()
	return s
}

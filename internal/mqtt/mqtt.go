// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/solar-tracker/internal/tracker"
)

// Topic is the MQTT topic for tracker diagnostic events.
const Topic = "energy/solar/tracker/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/solar/tracker/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a tracker event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a tracker event stamped with wall-clock time.
type Event struct {
	Timestamp time.Time
	tracker.Event
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Tracker TrackerPayload `json:"tracker"`
}

// TrackerPayload contains the tracker event details. Fields that do not
// apply to an event type are omitted.
type TrackerPayload struct {
	Timestamp  string    `json:"timestamp"`
	Event      string    `json:"event"`
	State      string    `json:"state"`
	Episode    string    `json:"episode,omitempty"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Direction  string    `json:"direction,omitempty"`
	Brightness float64   `json:"brightness_ohms,omitempty"`
	Threshold  float64   `json:"threshold_ohms,omitempty"`
	Readings   *Readings `json:"readings,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Tries      int       `json:"tries,omitempty"`
}

// Readings carries the sensor values an event was decided on.
type Readings struct {
	East        float64 `json:"east_ohms"`
	West        float64 `json:"west_ohms"`
	Tolerance   float64 `json:"tolerance_ohms"`
	InitialDiff float64 `json:"initial_diff_ohms,omitempty"`
}

// FormatPayload creates the JSON payload for a tracker event.
func FormatPayload(event Event) ([]byte, error) {
	p := TrackerPayload{
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
		Event:      string(event.Type),
		State:      event.State.String(),
		Episode:    event.Episode,
		Brightness: event.Brightness,
		Threshold:  event.Threshold,
		DurationMs: event.Duration.Milliseconds(),
		Tries:      event.Tries,
	}
	if event.Type == tracker.EventStateChanged {
		p.From = event.From.String()
		p.To = event.To.String()
	}
	if event.Direction != tracker.DirectionNone {
		p.Direction = event.Direction.String()
	}
	if event.East != 0 || event.West != 0 {
		p.Readings = &Readings{
			East:        event.East,
			West:        event.West,
			Tolerance:   event.Tolerance,
			InitialDiff: event.InitialDiff,
		}
	}
	return json.Marshal(Payload{Tracker: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Nop discards everything. It stands in for a broker when publishing is
// disabled.
type Nop struct{}

func (Nop) Publish(Event) error             { return nil }
func (Nop) PublishSystem(SystemEvent) error { return nil }
func (Nop) Close() error                    { return nil }
func (Nop) IsConnected() bool               { return false }

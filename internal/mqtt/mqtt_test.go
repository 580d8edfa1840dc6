package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/solar-tracker/internal/tracker"
)

func overshootEvent() Event {
	return Event{
		Timestamp: time.Date(2026, 6, 21, 9, 15, 0, 0, time.UTC),
		Event: tracker.Event{
			At:          12345,
			Type:        tracker.EventOvershootDetected,
			Episode:     "3f0e4c1a-5b2d-4d8e-9c47-0a6b2f1e9d33",
			State:       tracker.Adjusting,
			East:        4200,
			West:        5100,
			Tolerance:   465,
			InitialDiff: 1200,
			Direction:   tracker.DirectionEast,
			Tries:       1,
		},
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(overshootEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	p := parsed.Tracker
	if p.Timestamp != "2026-06-21T09:15:00Z" {
		t.Errorf("unexpected timestamp: %s", p.Timestamp)
	}
	if p.Event != "OVERSHOOT_DETECTED" {
		t.Errorf("unexpected event: %s", p.Event)
	}
	if p.State != "ADJUSTING" {
		t.Errorf("unexpected state: %s", p.State)
	}
	if p.Direction != "EAST" {
		t.Errorf("unexpected direction: %s", p.Direction)
	}
	if p.Readings == nil {
		t.Fatal("expected readings")
	}
	if p.Readings.East != 4200 || p.Readings.West != 5100 || p.Readings.Tolerance != 465 || p.Readings.InitialDiff != 1200 {
		t.Errorf("unexpected readings: %+v", *p.Readings)
	}
	if p.Tries != 1 {
		t.Errorf("unexpected tries: %d", p.Tries)
	}
	if p.From != "" || p.To != "" {
		t.Errorf("from/to should be omitted, got %q/%q", p.From, p.To)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 6, 21, 21, 40, 0, 0, time.UTC),
		Event: tracker.Event{
			Type:       tracker.EventNightModeEntered,
			State:      tracker.Idle,
			Brightness: 180000,
			Threshold:  150000,
		},
	}
	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"tracker":{"timestamp":"2026-06-21T21:40:00Z","event":"NIGHT_MODE_ENTERED","state":"IDLE","brightness_ohms":180000,"threshold_ohms":150000}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadStateChanged(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC),
		Event: tracker.Event{
			Type:  tracker.EventStateChanged,
			State: tracker.Adjusting,
			From:  tracker.Idle,
			To:    tracker.Adjusting,
		},
	}
	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatal(err)
	}
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Tracker.From != "IDLE" || parsed.Tracker.To != "ADJUSTING" {
		t.Errorf("from/to = %q/%q", parsed.Tracker.From, parsed.Tracker.To)
	}
	if parsed.Tracker.Readings != nil {
		t.Error("readings should be omitted when no sensor values are set")
	}
}

func TestFormatPayloadDuration(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC),
		Event: tracker.Event{
			Type:     tracker.EventSuccessfulMovement,
			State:    tracker.Adjusting,
			Duration: 1500 * time.Millisecond,
		},
	}
	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatal(err)
	}
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Tracker.DurationMs != 1500 {
		t.Errorf("duration_ms = %d, want 1500", parsed.Tracker.DurationMs)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	for _, typ := range tracker.EventTypes {
		t.Run(string(typ), func(t *testing.T) {
			payload, err := FormatPayload(Event{Timestamp: time.Now(), Event: tracker.Event{Type: typ}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Tracker.Event != string(typ) {
				t.Errorf("event: got %s, want %s", parsed.Tracker.Event, typ)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)
	event := Event{
		Timestamp: time.Date(2026, 6, 21, 19, 0, 0, 0, loc),
		Event:     tracker.Event{Type: tracker.EventAdjustmentStarted},
	}
	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatal(err)
	}
	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.Tracker.Timestamp != "2026-06-21T09:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Tracker.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "energy/solar/tracker/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "energy/solar/tracker/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()
	if err := f.Publish(overshootEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if f.Events[0].Type != tracker.EventOvershootDetected {
		t.Errorf("unexpected event type %s", f.Events[0].Type)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	if err := f.Publish(overshootEvent()); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Errorf("failed publish should not be recorded, got %d", len(f.Events))
	}

	f.PublishSystemError = errors.New("broker down")
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected system error")
	}
}

func TestFakePublisherSystemEventsAndRetained(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})

	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "HEARTBEAT" {
		t.Fatalf("unexpected system events %v", names)
	}
	if !f.SystemEvents[0].Retained || f.SystemEvents[1].Retained {
		t.Error("retained flags not preserved")
	}
	if len(f.SystemPayloads) != 2 {
		t.Errorf("expected 2 system payloads, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(overshootEvent())
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.Connected = true

	f.Reset()
	if f.Events != nil || f.Payloads != nil || f.SystemEvents != nil || f.SystemPayloads != nil {
		t.Error("expected recorded events cleared")
	}
	if f.Closed || f.Connected {
		t.Error("expected flags cleared")
	}

	if err := f.Publish(overshootEvent()); err != nil {
		t.Fatal(err)
	}
	if len(f.Events) != 1 {
		t.Error("publisher should be reusable after reset")
	}
}

func TestNewRealPublisherRequiresBroker(t *testing.T) {
	if _, err := NewRealPublisher("", "solar-tracker"); err == nil {
		t.Error("expected error for empty broker")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(Event{}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if (Nop{}).IsConnected() {
		t.Error("Nop should never report connected")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

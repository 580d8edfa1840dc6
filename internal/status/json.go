package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/solar-tracker/internal/tracker"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string             `json:"event,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	Tracker       TrackerJSON        `json:"tracker"`
	Sensors       SensorsJSON        `json:"sensors"`
	Faults        FaultsJSON         `json:"faults"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	StartTime     string             `json:"start_time"`
	Timestamp     string             `json:"timestamp"`
	MQTT          MQTTStatus         `json:"mqtt"`
	Counts        map[string]int     `json:"event_counts"`
	LastEvent     *LastEventJSON     `json:"last_event,omitempty"`
	Params        map[string]float64 `json:"params,omitempty"`
	Network       *NetworkJSON       `json:"network,omitempty"`
	Config        ConfigJSON         `json:"config"`
}

// TrackerJSON reports the state machine.
type TrackerJSON struct {
	State                   string      `json:"state"`
	Motor                   string      `json:"motor"`
	Night                   bool        `json:"night"`
	Direction               string      `json:"direction"`
	Episode                 string      `json:"episode,omitempty"`
	ReversalTries           int         `json:"reversal_tries"`
	NextAdjustmentSeconds   int64       `json:"next_adjustment_seconds"`
	SinceStateChangeSeconds int64       `json:"since_state_change_seconds"`
	LastMovementMs          int64       `json:"last_movement_ms"`
	History                 HistoryJSON `json:"movement_history"`
}

// HistoryJSON summarises recent successful movements.
type HistoryJSON struct {
	Count     int   `json:"count"`
	AverageMs int64 `json:"average_ms"`
}

// SensorsJSON reports both light sensors and the combined brightness.
type SensorsJSON struct {
	East           SensorJSON `json:"east"`
	West           SensorJSON `json:"west"`
	BrightnessOhms float64    `json:"brightness_ohms"`
	ReadErrors     int        `json:"read_errors"`
}

// SensorJSON is one sensor's latest and filtered resistance.
type SensorJSON struct {
	RawOhms      int32   `json:"raw_ohms"`
	FilteredOhms float64 `json:"filtered_ohms"`
}

// FaultsJSON counts actuator protection trips.
type FaultsJSON struct {
	InterlockTrips int `json:"interlock_trips"`
	MaxMoveStops   int `json:"max_move_stops"`
}

// LastEventJSON names the most recent tracker event.
type LastEventJSON struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	GPIOBackend string `json:"gpio_backend"`
	ADCBackend  string `json:"adc_backend"`
	Store       string `json:"store"`
	PinEast     int    `json:"pin_east"`
	PinWest     int    `json:"pin_west"`
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.Status
	m := snap.Measurements

	counts := make(map[string]int, len(tracker.EventTypes))
	for _, typ := range tracker.EventTypes {
		counts[string(typ)] = snap.Counts[typ]
	}

	inner := StatusInner{
		Tracker: TrackerJSON{
			State:                   st.Tracker.String(),
			Motor:                   st.Motor.String(),
			Night:                   st.Night,
			Direction:               st.Direction.String(),
			Episode:                 st.Episode,
			ReversalTries:           st.ReversalTries,
			NextAdjustmentSeconds:   int64(st.UntilNextAdjustment.Truncate(time.Second).Seconds()),
			SinceStateChangeSeconds: int64(st.SinceStateChange.Truncate(time.Second).Seconds()),
			LastMovementMs:          st.LastMovement.Milliseconds(),
			History: HistoryJSON{
				Count:     st.HistoryCount,
				AverageMs: st.HistoryAverage.Milliseconds(),
			},
		},
		Sensors: SensorsJSON{
			East:           SensorJSON{RawOhms: m.EastRaw, FilteredOhms: m.EastFiltered},
			West:           SensorJSON{RawOhms: m.WestRaw, FilteredOhms: m.WestFiltered},
			BrightnessOhms: m.Brightness,
			ReadErrors:     st.SensorErrors,
		},
		Faults: FaultsJSON{
			InterlockTrips: st.InterlockTrips,
			MaxMoveStops:   st.MaxMoveStops,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        counts,
		Params:        snap.Params,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			GPIOBackend: snap.Config.GPIOBackend,
			ADCBackend:  snap.Config.ADCBackend,
			Store:       snap.Config.Store,
			PinEast:     snap.Config.PinEast,
			PinWest:     snap.Config.PinWest,
		},
	}
	if snap.LastEvent != "" {
		inner.LastEvent = &LastEventJSON{
			Type:      string(snap.LastEvent),
			Timestamp: snap.LastEventAt.UTC().Format(time.RFC3339),
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

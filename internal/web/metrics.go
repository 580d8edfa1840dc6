package web

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"

	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/status"
	"github.com/sweeney/solar-tracker/internal/tracker"
)

// newMetricSet registers gauges that read the board at scrape time.
func newMetricSet(board *status.Board) *metrics.Set {
	set := metrics.NewSet()
	gauge := func(name string, f func(status.Snapshot) float64) {
		set.NewGauge(name, func() float64 { return f(board.Snapshot()) })
	}

	gauge("solar_tracker_uptime_seconds", func(s status.Snapshot) float64 { return s.Uptime().Seconds() })
	gauge(`solar_tracker_resistance_ohms{sensor="east"}`, func(s status.Snapshot) float64 { return s.Measurements.EastFiltered })
	gauge(`solar_tracker_resistance_ohms{sensor="west"}`, func(s status.Snapshot) float64 { return s.Measurements.WestFiltered })
	gauge(`solar_tracker_raw_resistance_ohms{sensor="east"}`, func(s status.Snapshot) float64 { return float64(s.Measurements.EastRaw) })
	gauge(`solar_tracker_raw_resistance_ohms{sensor="west"}`, func(s status.Snapshot) float64 { return float64(s.Measurements.WestRaw) })
	gauge("solar_tracker_brightness_ohms", func(s status.Snapshot) float64 { return s.Measurements.Brightness })
	gauge("solar_tracker_night", func(s status.Snapshot) float64 { return boolGauge(s.Status.Night) })
	gauge("solar_tracker_moving", func(s status.Snapshot) float64 {
		return boolGauge(s.Status.Motor == motor.MovingEast || s.Status.Motor == motor.MovingWest)
	})
	gauge("solar_tracker_reversal_tries", func(s status.Snapshot) float64 { return float64(s.Status.ReversalTries) })
	gauge("solar_tracker_next_adjustment_seconds", func(s status.Snapshot) float64 { return s.Status.UntilNextAdjustment.Seconds() })
	gauge("solar_tracker_last_movement_seconds", func(s status.Snapshot) float64 { return s.Status.LastMovement.Seconds() })
	gauge("solar_tracker_interlock_trips", func(s status.Snapshot) float64 { return float64(s.Status.InterlockTrips) })
	gauge("solar_tracker_max_move_stops", func(s status.Snapshot) float64 { return float64(s.Status.MaxMoveStops) })
	gauge("solar_tracker_sensor_read_errors", func(s status.Snapshot) float64 { return float64(s.Status.SensorErrors) })
	gauge("solar_tracker_mqtt_connected", func(s status.Snapshot) float64 { return boolGauge(s.MQTTConnected) })

	for _, st := range []tracker.State{tracker.Idle, tracker.Adjusting, tracker.NightMode, tracker.DefaultWestMovement} {
		st := st
		gauge(fmt.Sprintf(`solar_tracker_state{state=%q}`, st.String()), func(s status.Snapshot) float64 {
			return boolGauge(s.Status.Tracker == st)
		})
	}
	for _, typ := range tracker.EventTypes {
		typ := typ
		gauge(fmt.Sprintf(`solar_tracker_events{type=%q}`, string(typ)), func(s status.Snapshot) float64 {
			return float64(s.Counts[typ])
		})
	}
	return set
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

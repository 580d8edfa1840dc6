package tracker

import (
	"fmt"
	"time"
)

// MaxHistorySize bounds the movement history capacity.
const MaxHistorySize = 10

// Config holds every externally settable tracking parameter.
// Resistances are in ohms; higher means darker.
type Config struct {
	TolerancePercent       float64
	MaxMovementTime        time.Duration
	AdjustmentPeriod       time.Duration
	SamplingRate           time.Duration
	BrightnessThreshold    float64
	BrightnessFilterTau    time.Duration
	NightThreshold         float64
	NightHysteresisPercent float64
	NightDetectionTime     time.Duration
	ReversalDeadTime       time.Duration
	ReversalTimeLimit      time.Duration
	MaxReversalTries       int
	DefaultWestEnabled     bool
	DefaultWestTime        time.Duration
	UseAverageMovement     bool
	MovementHistorySize    int
}

// DefaultConfig returns the factory parameter set.
func DefaultConfig() Config {
	return Config{
		TolerancePercent:       10,
		MaxMovementTime:        60 * time.Second,
		AdjustmentPeriod:       10 * time.Minute,
		SamplingRate:           100 * time.Millisecond,
		BrightnessThreshold:    100000,
		BrightnessFilterTau:    10 * time.Second,
		NightThreshold:         150000,
		NightHysteresisPercent: 20,
		NightDetectionTime:     5 * time.Minute,
		ReversalDeadTime:       time.Second,
		ReversalTimeLimit:      5 * time.Second,
		MaxReversalTries:       3,
		DefaultWestEnabled:     false,
		DefaultWestTime:        5 * time.Second,
		UseAverageMovement:     false,
		MovementHistorySize:    5,
	}
}

// Validate checks every field against its range and the interdependent
// constraints. The first violation is returned.
func (c Config) Validate() error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"tolerance_percent", c.TolerancePercent, 0, 100},
		{"max_movement_time_s", c.MaxMovementTime.Seconds(), 1, 3600},
		{"adjustment_period_s", c.AdjustmentPeriod.Seconds(), 1, 3600},
		{"sampling_rate_ms", ms(c.SamplingRate), 10, 10000},
		{"brightness_threshold_ohms", c.BrightnessThreshold, 0, maxOhms},
		{"brightness_filter_tau_s", c.BrightnessFilterTau.Seconds(), 0.1, 300},
		{"night_threshold_ohms", c.NightThreshold, 0, maxOhms},
		{"night_hysteresis_percent", c.NightHysteresisPercent, 0, 100},
		{"night_detection_time_s", c.NightDetectionTime.Seconds(), 1, 3600},
		{"reversal_dead_time_ms", ms(c.ReversalDeadTime), 0, 60000},
		{"reversal_time_limit_ms", ms(c.ReversalTimeLimit), 100, 60000},
		{"max_reversal_tries", float64(c.MaxReversalTries), 1, 10},
		{"default_west_time_ms", ms(c.DefaultWestTime), 100, 60000},
		{"movement_history_size", float64(c.MovementHistorySize), 1, MaxHistorySize},
	}
	for _, ck := range checks {
		if ck.value < ck.min || ck.value > ck.max {
			return fmt.Errorf("%s must be in [%g, %g], got %g", ck.name, ck.min, ck.max, ck.value)
		}
	}

	if c.NightThreshold <= c.BrightnessThreshold {
		return fmt.Errorf("night threshold (%g) must exceed brightness threshold (%g)",
			c.NightThreshold, c.BrightnessThreshold)
	}
	if c.ReversalTimeLimit > c.MaxMovementTime {
		return fmt.Errorf("reversal time limit (%v) must not exceed max movement time (%v)",
			c.ReversalTimeLimit, c.MaxMovementTime)
	}
	if c.MaxMovementTime > c.AdjustmentPeriod {
		return fmt.Errorf("max movement time (%v) must not exceed adjustment period (%v)",
			c.MaxMovementTime, c.AdjustmentPeriod)
	}
	if c.DefaultWestTime > c.MaxMovementTime {
		return fmt.Errorf("default west time (%v) must not exceed max movement time (%v)",
			c.DefaultWestTime, c.MaxMovementTime)
	}
	return nil
}

// NightExitThreshold is the resistance at or below which night is considered over.
func (c Config) NightExitThreshold() float64 {
	return c.NightThreshold * (1 - c.NightHysteresisPercent/100)
}

const maxOhms = float64(1<<31 - 1)

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Package sensor converts photoresistor ADC readings into filtered
// resistance values. It has no hardware dependencies: readings come from an
// injected AnalogReader and time from an injected clock.Source.
package sensor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/solar-tracker/internal/clock"
)

// ADCMax is the full-scale reading of the 10-bit converter.
const ADCMax = 1023

// Defaults used when Config fields are left zero.
const (
	DefaultSamplePeriod      = 100 * time.Millisecond
	DefaultMaxResistanceOhms = 2_000_000
	DefaultSeriesResistor    = 10_000
)

// AnalogReader reads one ADC channel.
type AnalogReader interface {
	ReadAnalog() (int, error)
}

// Config describes one light sensor's divider and filter.
type Config struct {
	SeriesResistorOhms int32
	MaxResistanceOhms  int32
	// SamplePeriod is the nominal interval between samples. The filter
	// coefficient is derived from it, not from measured elapsed time.
	SamplePeriod time.Duration
	// FilterTau is the EMA time constant. Zero disables smoothing.
	FilterTau time.Duration
}

// WithDefaults fills zero fields with the package defaults.
func (c Config) WithDefaults() Config {
	if c.SeriesResistorOhms == 0 {
		c.SeriesResistorOhms = DefaultSeriesResistor
	}
	if c.MaxResistanceOhms == 0 {
		c.MaxResistanceOhms = DefaultMaxResistanceOhms
	}
	if c.SamplePeriod == 0 {
		c.SamplePeriod = DefaultSamplePeriod
	}
	return c
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	c = c.WithDefaults()
	if c.SeriesResistorOhms < 0 {
		return fmt.Errorf("series resistor must be positive, got %d", c.SeriesResistorOhms)
	}
	if c.MaxResistanceOhms < 0 {
		return fmt.Errorf("max resistance must be positive, got %d", c.MaxResistanceOhms)
	}
	if c.SamplePeriod < time.Millisecond {
		return fmt.Errorf("sample period must be at least 1ms, got %v", c.SamplePeriod)
	}
	if c.FilterTau < 0 {
		return errors.New("filter tau must not be negative")
	}
	return nil
}

// Alpha returns the EMA coefficient dt/(tau+dt) for the configured period.
func (c Config) Alpha() float64 {
	c = c.WithDefaults()
	dt := c.SamplePeriod.Seconds()
	tau := c.FilterTau.Seconds()
	return dt / (tau + dt)
}

// LightSensor samples one photoresistor on a fixed period.
type LightSensor struct {
	name   string
	reader AnalogReader
	clock  clock.Source
	cfg    Config
	period clock.Millis
	alpha  float64

	value      int32
	filtered   float64
	primed     bool
	lastSample clock.Millis
	samples    int
	readErrors int

	// OnError, if set, is called when a reading fails.
	OnError func(name string, err error)
}

// New creates a LightSensor bound to one reader. The first sample is taken
// one period after construction.
func New(name string, reader AnalogReader, src clock.Source, cfg Config) *LightSensor {
	cfg = cfg.WithDefaults()
	return &LightSensor{
		name:       name,
		reader:     reader,
		clock:      src,
		cfg:        cfg,
		period:     clock.FromDuration(cfg.SamplePeriod),
		alpha:      cfg.Alpha(),
		lastSample: src.Now(),
	}
}

// Update takes at most one sample if a period has elapsed. The sample
// timestamp advances by exactly one period, so scheduling jitter
// accumulates instead of resetting.
func (s *LightSensor) Update() {
	now := s.clock.Now()
	if now.Since(s.lastSample) < s.period {
		return
	}
	s.lastSample += s.period

	reading, err := s.reader.ReadAnalog()
	if err != nil {
		s.readErrors++
		if s.OnError != nil {
			s.OnError(s.name, err)
		}
		return
	}

	r := Resistance(reading, s.cfg.SeriesResistorOhms, s.cfg.MaxResistanceOhms)
	s.value = r
	if !s.primed {
		s.filtered = float64(r)
		s.primed = true
	} else {
		s.filtered += s.alpha * (float64(r) - s.filtered)
	}
	s.filtered = math.Max(0, math.Min(s.filtered, float64(s.cfg.MaxResistanceOhms)))
	s.samples++
}

// Resistance converts a divider reading into ohms. Readings outside
// [0, ADCMax] are clamped; full scale saturates to maxOhms.
func Resistance(reading int, seriesOhms, maxOhms int32) int32 {
	if reading < 0 {
		reading = 0
	}
	if reading >= ADCMax {
		return maxOhms
	}
	r := int64(seriesOhms) * int64(reading) / int64(ADCMax-reading)
	if r > int64(maxOhms) {
		return maxOhms
	}
	if r < 0 {
		return 0
	}
	return int32(r)
}

// Name returns the sensor's label.
func (s *LightSensor) Name() string { return s.name }

// Value returns the last instantaneous resistance in ohms.
func (s *LightSensor) Value() int32 { return s.value }

// FilteredValue returns the smoothed resistance in ohms.
func (s *LightSensor) FilteredValue() float64 { return s.filtered }

// Samples returns how many readings have been accepted.
func (s *LightSensor) Samples() int { return s.samples }

// ReadErrors returns how many readings have failed.
func (s *LightSensor) ReadErrors() int { return s.readErrors }

// Config returns the effective configuration.
func (s *LightSensor) Config() Config { return s.cfg }

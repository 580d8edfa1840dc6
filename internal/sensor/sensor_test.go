package sensor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sweeney/solar-tracker/internal/clock"
)

// scriptedReader returns readings in order, repeating the last one.
type scriptedReader struct {
	readings []int
	calls    int
	err      error
}

func (r *scriptedReader) ReadAnalog() (int, error) {
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	i := r.calls - 1
	if i >= len(r.readings) {
		i = len(r.readings) - 1
	}
	return r.readings[i], nil
}

func newTestSensor(readings []int, tau time.Duration, start clock.Millis) (*LightSensor, *scriptedReader, *clock.Fake) {
	r := &scriptedReader{readings: readings}
	clk := clock.NewFake(start)
	s := New("east", r, clk, Config{
		SeriesResistorOhms: 10000,
		MaxResistanceOhms:  1000000,
		SamplePeriod:       100 * time.Millisecond,
		FilterTau:          tau,
	})
	return s, r, clk
}

func TestResistance(t *testing.T) {
	tests := []struct {
		name    string
		reading int
		want    int32
	}{
		{"zero", 0, 0},
		{"midpoint", 511, 9980},
		{"quarter", 256, 3337},
		{"full scale saturates", 1023, 1000000},
		{"above full scale saturates", 4000, 1000000},
		{"negative clamps to zero", -5, 0},
		{"near full scale clamps to max", 1022, 1000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resistance(tt.reading, 10000, 1000000); got != tt.want {
				t.Errorf("Resistance(%d): got %d, want %d", tt.reading, got, tt.want)
			}
		})
	}
}

func TestFullScaleReadingReturnsMax(t *testing.T) {
	s, _, clk := newTestSensor([]int{1023}, 0, 0)
	clk.Advance(100 * time.Millisecond)
	s.Update()

	if s.Value() != 1000000 {
		t.Errorf("Value: got %d, want clamped max 1000000", s.Value())
	}
	if s.FilteredValue() != 1000000 {
		t.Errorf("FilteredValue: got %f, want 1000000", s.FilteredValue())
	}
}

func TestUpdateGatedBySamplePeriod(t *testing.T) {
	s, r, clk := newTestSensor([]int{511}, 0, 0)

	clk.Advance(99 * time.Millisecond)
	s.Update()
	if r.calls != 0 {
		t.Fatalf("expected no read before a full period, got %d", r.calls)
	}

	clk.Advance(time.Millisecond)
	s.Update()
	s.Update()
	if r.calls != 1 {
		t.Fatalf("expected exactly one read, got %d", r.calls)
	}
}

func TestTimestampAdvancesByFixedPeriod(t *testing.T) {
	s, r, clk := newTestSensor([]int{511}, 0, 0)

	// A late tick at 250ms consumes one period; the backlog is drained on
	// the following ticks instead of being discarded.
	clk.Advance(250 * time.Millisecond)
	s.Update()
	s.Update()
	s.Update()
	if r.calls != 2 {
		t.Errorf("expected 2 reads after 250ms, got %d", r.calls)
	}
}

func TestFirstSamplePrimesFilter(t *testing.T) {
	s, _, clk := newTestSensor([]int{511, 0}, 10*time.Second, 0)

	clk.Advance(100 * time.Millisecond)
	s.Update()
	if s.FilteredValue() != 9980 {
		t.Fatalf("first sample should prime filter, got %f", s.FilteredValue())
	}

	clk.Advance(100 * time.Millisecond)
	s.Update()
	alpha := 0.1 / (10 + 0.1)
	want := 9980 + alpha*(0-9980)
	if math.Abs(s.FilteredValue()-want) > 1e-6 {
		t.Errorf("second sample: got %f, want %f", s.FilteredValue(), want)
	}
	if s.Value() != 0 {
		t.Errorf("Value should be instantaneous, got %d", s.Value())
	}
}

func TestFilterConvergesAndStaysInBounds(t *testing.T) {
	s, _, clk := newTestSensor([]int{1023, 700}, time.Second, 0)
	want := float64(Resistance(700, 10000, 1000000))

	for i := 0; i < 500; i++ {
		clk.Advance(100 * time.Millisecond)
		s.Update()
		if s.FilteredValue() < 0 || s.FilteredValue() > 1000000 {
			t.Fatalf("sample %d: filtered value %f out of bounds", i, s.FilteredValue())
		}
	}
	if math.Abs(s.FilteredValue()-want) > 1 {
		t.Errorf("expected convergence to %f, got %f", want, s.FilteredValue())
	}
}

func TestReadErrorKeepsValues(t *testing.T) {
	s, r, clk := newTestSensor([]int{511}, 0, 0)
	var reported []error
	s.OnError = func(name string, err error) {
		if name != "east" {
			t.Errorf("unexpected sensor name %q", name)
		}
		reported = append(reported, err)
	}

	clk.Advance(100 * time.Millisecond)
	s.Update()

	r.err = errors.New("spi timeout")
	clk.Advance(100 * time.Millisecond)
	s.Update()

	if s.Value() != 9980 {
		t.Errorf("value should be unchanged after error, got %d", s.Value())
	}
	if s.ReadErrors() != 1 || len(reported) != 1 {
		t.Errorf("expected one read error, got %d (reported %d)", s.ReadErrors(), len(reported))
	}
	if s.Samples() != 1 {
		t.Errorf("expected 1 accepted sample, got %d", s.Samples())
	}

	// The failed period is not retried.
	r.err = nil
	s.Update()
	if r.calls != 2 {
		t.Errorf("expected no extra read in the same period, got %d calls", r.calls)
	}
}

func TestUpdateAcrossCounterWrap(t *testing.T) {
	s, r, clk := newTestSensor([]int{511}, 0, 0xFFFFFFC0)

	clk.Advance(100 * time.Millisecond)
	s.Update()
	if r.calls != 1 {
		t.Fatalf("expected a read across the wrap, got %d", r.calls)
	}
	if s.Value() != 9980 {
		t.Errorf("unexpected value %d", s.Value())
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	s := New("west", &scriptedReader{readings: []int{0}}, clock.NewFake(0), Config{})
	cfg := s.Config()
	if cfg.SamplePeriod != DefaultSamplePeriod {
		t.Errorf("SamplePeriod: got %v", cfg.SamplePeriod)
	}
	if cfg.MaxResistanceOhms != DefaultMaxResistanceOhms {
		t.Errorf("MaxResistanceOhms: got %d", cfg.MaxResistanceOhms)
	}
	if (Config{}).Alpha() != 1 {
		t.Errorf("zero tau should give alpha 1, got %f", (Config{}).Alpha())
	}
	kept := Config{SeriesResistorOhms: 4700}.WithDefaults()
	if kept.SeriesResistorOhms != 4700 || kept.MaxResistanceOhms != DefaultMaxResistanceOhms {
		t.Errorf("WithDefaults: got %+v", kept)
	}

	if err := (Config{FilterTau: -time.Second}).Validate(); err == nil {
		t.Error("expected error for negative tau")
	}
	if err := (Config{SamplePeriod: time.Microsecond}).Validate(); err == nil {
		t.Error("expected error for sub-millisecond period")
	}
	if err := (Config{}).Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

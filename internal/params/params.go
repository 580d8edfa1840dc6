// Package params exposes the tracker and actuator settings as a flat set of
// named, range-checked values for the terminal, persistence and the web UI.
package params

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/solar-tracker/internal/motor"
	"github.com/sweeney/solar-tracker/internal/tracker"
)

// Kind is how a parameter value is parsed and printed.
type Kind int

const (
	Float Kind = iota
	Int
	Bool
)

// Target is the tracker configuration a registry edits.
type Target interface {
	Config() tracker.Config
	ApplyConfig(tracker.Config) error
}

// DeadTimer is the actuator setting a registry edits.
type DeadTimer interface {
	DeadTime() time.Duration
	SetDeadTime(time.Duration)
}

// Settings is the complete editable parameter set.
type Settings struct {
	Tracker       tracker.Config
	MotorDeadTime time.Duration
}

// Param describes one settable value. Values are expressed in Unit.
type Param struct {
	Name  string
	Short string
	Unit  string
	Kind  Kind
	Min   float64
	Max   float64

	get func(Settings) float64
	set func(*Settings, float64)
}

// Format renders v the way Parse accepts it.
func (p Param) Format(v float64) string {
	switch p.Kind {
	case Bool:
		return strconv.FormatBool(v != 0)
	case Int:
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Parse converts raw text to a value and checks its range.
func (p Param) Parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	var v float64
	switch p.Kind {
	case Bool:
		switch strings.ToLower(raw) {
		case "true", "1":
			v = 1
		case "false", "0":
			v = 0
		default:
			return 0, fmt.Errorf("%s: expected true/false/1/0, got %q", p.Name, raw)
		}
	case Int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: expected an integer, got %q", p.Name, raw)
		}
		v = float64(n)
	default:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: expected a number, got %q", p.Name, raw)
		}
		v = f
	}
	if err := p.Check(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Check reports whether v is inside the parameter's range. Int values must
// be whole.
func (p Param) Check(v float64) error {
	if p.Kind == Bool {
		if v != 0 && v != 1 {
			return fmt.Errorf("%s: expected 0 or 1, got %g", p.Name, v)
		}
		return nil
	}
	if p.Kind == Int && v != math.Trunc(v) {
		return fmt.Errorf("%s: expected an integer, got %g", p.Name, v)
	}
	if v < p.Min || v > p.Max {
		return fmt.Errorf("%s must be in [%s, %s] %s, got %s",
			p.Name, p.Format(p.Min), p.Format(p.Max), p.Unit, p.Format(v))
	}
	return nil
}

// Range renders the accepted values for help output.
func (p Param) Range() string {
	if p.Kind == Bool {
		return "true|false"
	}
	return p.Format(p.Min) + ".." + p.Format(p.Max)
}

// Registry maps names to parameters and applies changes to the live system.
type Registry struct {
	target Target
	motor  DeadTimer
	params []Param
	index  map[string]int
}

// New builds the registry over a tracker and its actuator.
func New(target Target, m DeadTimer) *Registry {
	r := &Registry{
		target: target,
		motor:  m,
		params: table(),
		index:  make(map[string]int),
	}
	for i, p := range r.params {
		r.index[p.Name] = i
		r.index[p.Short] = i
	}
	return r
}

// Params returns every parameter in display order.
func (r *Registry) Params() []Param {
	out := make([]Param, len(r.params))
	copy(out, r.params)
	return out
}

// Lookup finds a parameter by long or short name, case-insensitively.
func (r *Registry) Lookup(name string) (Param, bool) {
	i, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Param{}, false
	}
	return r.params[i], true
}

// Settings returns the live parameter set.
func (r *Registry) Settings() Settings {
	return Settings{Tracker: r.target.Config(), MotorDeadTime: r.motor.DeadTime()}
}

// Get returns the current value of a parameter.
func (r *Registry) Get(name string) (float64, error) {
	p, ok := r.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
	return p.get(r.Settings()), nil
}

// Set parses raw and applies it. Nothing changes if the value is out of range
// or the resulting configuration is inconsistent.
func (r *Registry) Set(name, raw string) (Param, float64, error) {
	p, ok := r.Lookup(name)
	if !ok {
		return Param{}, 0, fmt.Errorf("unknown parameter %q", name)
	}
	v, err := p.Parse(raw)
	if err != nil {
		return p, 0, err
	}
	if err := r.Apply(map[string]float64{p.Name: v}); err != nil {
		return p, 0, err
	}
	return p, v, nil
}

// Apply overlays values (keyed by long or short name) onto the live settings
// as one change. Either all values take effect or none do.
func (r *Registry) Apply(values map[string]float64) error {
	s := r.Settings()
	for name, v := range values {
		p, ok := r.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		if err := p.Check(v); err != nil {
			return err
		}
		p.set(&s, v)
	}
	return r.commit(s)
}

// FactoryReset restores every parameter to its default.
func (r *Registry) FactoryReset() error {
	return r.commit(Defaults())
}

func (r *Registry) commit(s Settings) error {
	if err := r.target.ApplyConfig(s.Tracker); err != nil {
		return err
	}
	r.motor.SetDeadTime(s.MotorDeadTime)
	return nil
}

// Values returns every current value keyed by long name.
func (r *Registry) Values() map[string]float64 {
	s := r.Settings()
	out := make(map[string]float64, len(r.params))
	for _, p := range r.params {
		out[p.Name] = p.get(s)
	}
	return out
}

// Names returns the long names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.params))
	for _, p := range r.params {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the factory settings.
func Defaults() Settings {
	return Settings{Tracker: tracker.DefaultConfig(), MotorDeadTime: motor.DefaultDeadTime}
}

const maxOhms = float64(1<<31 - 1)

func seconds(d time.Duration) float64 { return d.Seconds() }

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func fromSeconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

func fromMillis(v float64) time.Duration { return time.Duration(v * float64(time.Millisecond)) }

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func table() []Param {
	return []Param{
		{
			Name: "balance_tol", Short: "tol", Unit: "%", Kind: Float, Min: 0, Max: 100,
			get: func(s Settings) float64 { return s.Tracker.TolerancePercent },
			set: func(s *Settings, v float64) { s.Tracker.TolerancePercent = v },
		},
		{
			Name: "max_move_time", Short: "mmt", Unit: "s", Kind: Int, Min: 1, Max: 3600,
			get: func(s Settings) float64 { return seconds(s.Tracker.MaxMovementTime) },
			set: func(s *Settings, v float64) { s.Tracker.MaxMovementTime = fromSeconds(v) },
		},
		{
			Name: "adjustment_period", Short: "adjp", Unit: "s", Kind: Int, Min: 1, Max: 3600,
			get: func(s Settings) float64 { return seconds(s.Tracker.AdjustmentPeriod) },
			set: func(s *Settings, v float64) { s.Tracker.AdjustmentPeriod = fromSeconds(v) },
		},
		{
			Name: "sampling_rate", Short: "samp", Unit: "ms", Kind: Int, Min: 10, Max: 10000,
			get: func(s Settings) float64 { return millis(s.Tracker.SamplingRate) },
			set: func(s *Settings, v float64) { s.Tracker.SamplingRate = fromMillis(v) },
		},
		{
			Name: "brightness_threshold", Short: "bth", Unit: "ohms", Kind: Int, Min: 0, Max: maxOhms,
			get: func(s Settings) float64 { return s.Tracker.BrightnessThreshold },
			set: func(s *Settings, v float64) { s.Tracker.BrightnessThreshold = v },
		},
		{
			Name: "brightness_filter_tau", Short: "bft", Unit: "s", Kind: Float, Min: 0.1, Max: 300,
			get: func(s Settings) float64 { return seconds(s.Tracker.BrightnessFilterTau) },
			set: func(s *Settings, v float64) { s.Tracker.BrightnessFilterTau = fromSeconds(v) },
		},
		{
			Name: "night_threshold", Short: "nth", Unit: "ohms", Kind: Int, Min: 0, Max: maxOhms,
			get: func(s Settings) float64 { return s.Tracker.NightThreshold },
			set: func(s *Settings, v float64) { s.Tracker.NightThreshold = v },
		},
		{
			Name: "night_hysteresis", Short: "nhys", Unit: "%", Kind: Float, Min: 0, Max: 100,
			get: func(s Settings) float64 { return s.Tracker.NightHysteresisPercent },
			set: func(s *Settings, v float64) { s.Tracker.NightHysteresisPercent = v },
		},
		{
			Name: "night_detection_time", Short: "ndt", Unit: "s", Kind: Int, Min: 1, Max: 3600,
			get: func(s Settings) float64 { return seconds(s.Tracker.NightDetectionTime) },
			set: func(s *Settings, v float64) { s.Tracker.NightDetectionTime = fromSeconds(v) },
		},
		{
			Name: "reversal_dead_time", Short: "rdt", Unit: "ms", Kind: Int, Min: 0, Max: 60000,
			get: func(s Settings) float64 { return millis(s.Tracker.ReversalDeadTime) },
			set: func(s *Settings, v float64) { s.Tracker.ReversalDeadTime = fromMillis(v) },
		},
		{
			Name: "reversal_time_limit", Short: "rtl", Unit: "ms", Kind: Int, Min: 100, Max: 60000,
			get: func(s Settings) float64 { return millis(s.Tracker.ReversalTimeLimit) },
			set: func(s *Settings, v float64) { s.Tracker.ReversalTimeLimit = fromMillis(v) },
		},
		{
			Name: "max_reversal_tries", Short: "mrt", Unit: "", Kind: Int, Min: 1, Max: 10,
			get: func(s Settings) float64 { return float64(s.Tracker.MaxReversalTries) },
			set: func(s *Settings, v float64) { s.Tracker.MaxReversalTries = int(v) },
		},
		{
			Name: "default_west_enabled", Short: "dwe", Unit: "", Kind: Bool,
			get: func(s Settings) float64 { return boolValue(s.Tracker.DefaultWestEnabled) },
			set: func(s *Settings, v float64) { s.Tracker.DefaultWestEnabled = v != 0 },
		},
		{
			Name: "default_west_time", Short: "dwt", Unit: "ms", Kind: Int, Min: 100, Max: 60000,
			get: func(s Settings) float64 { return millis(s.Tracker.DefaultWestTime) },
			set: func(s *Settings, v float64) { s.Tracker.DefaultWestTime = fromMillis(v) },
		},
		{
			Name: "use_average_movement", Short: "uam", Unit: "", Kind: Bool,
			get: func(s Settings) float64 { return boolValue(s.Tracker.UseAverageMovement) },
			set: func(s *Settings, v float64) { s.Tracker.UseAverageMovement = v != 0 },
		},
		{
			Name: "movement_history_size", Short: "mhs", Unit: "", Kind: Int, Min: 1, Max: tracker.MaxHistorySize,
			get: func(s Settings) float64 { return float64(s.Tracker.MovementHistorySize) },
			set: func(s *Settings, v float64) { s.Tracker.MovementHistorySize = int(v) },
		},
		{
			Name: "motor_dead_time", Short: "mdt", Unit: "ms", Kind: Int, Min: 0, Max: 10000,
			get: func(s Settings) float64 { return millis(s.MotorDeadTime) },
			set: func(s *Settings, v float64) { s.MotorDeadTime = fromMillis(v) },
		},
	}
}

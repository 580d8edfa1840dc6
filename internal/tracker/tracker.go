package tracker

import (
	"fmt"
	"math"
	"time"

	"github.com/asecurityteam/rolling"
	"github.com/google/uuid"

	"github.com/sweeney/solar-tracker/internal/clock"
)

// reversal is the overshoot-correction bookkeeping for one episode.
type reversal struct {
	tries     int
	waiting   bool
	waitStart clock.Millis
	active    bool
	start     clock.Millis
	startDiff float64
}

// Tracker decides when and which way to move the panel.
// It borrows its sensors and actuator; Update must be called once per tick
// after the sensors and the actuator have been updated.
type Tracker struct {
	east  Sensor
	west  Sensor
	motor Actuator
	clock clock.Source
	sink  Sink
	cfg   Config

	state      State
	stateSince clock.Millis

	brightness     float64
	primed         bool
	lastBrightness clock.Millis

	night        bool
	nightPending bool
	nightSince   clock.Millis
	dayPending   bool
	daySince     clock.Millis

	lastAdjustment clock.Millis
	lastSampling   clock.Millis

	episode      string
	episodeStart clock.Millis
	direction    Direction
	moved        bool
	initialDiff  float64
	episodeDiff  float64
	rev          reversal

	westStart    clock.Millis
	westDuration time.Duration

	lastMovement time.Duration
	history      *rolling.PointPolicy
	recorded     int // entries in history, at most MovementHistorySize

	newEpisode func() string
}

// New creates a Tracker in Idle. The adjustment timer starts now.
func New(east, west Sensor, motor Actuator, src clock.Source, sink Sink, cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tracker config: %w", err)
	}
	if sink == nil {
		sink = discard{}
	}
	now := src.Now()
	return &Tracker{
		east:           east,
		west:           west,
		motor:          motor,
		clock:          src,
		sink:           sink,
		cfg:            cfg,
		state:          Idle,
		stateSince:     now,
		lastBrightness: now,
		lastAdjustment: now,
		lastSampling:   now,
		history:        newHistory(cfg.MovementHistorySize),
		newEpisode:     uuid.NewString,
	}, nil
}

func newHistory(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

// ApplyConfig replaces the configuration if it validates, and leaves the
// current one untouched otherwise. Changing the history size clears the
// history.
func (t *Tracker) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.MovementHistorySize != t.cfg.MovementHistorySize {
		t.history = newHistory(cfg.MovementHistorySize)
		t.recorded = 0
	}
	t.cfg = cfg
	return nil
}

// Update runs one step of the state machine.
func (t *Tracker) Update() {
	now := t.clock.Now()
	t.updateBrightness(now)
	if t.state != NightMode {
		t.watchDarkness(now)
	}

	switch t.state {
	case Idle:
		t.updateIdle(now)
	case Adjusting:
		t.updateAdjusting(now)
	case NightMode:
		t.updateNight(now)
	case DefaultWestMovement:
		t.updateDefaultWest(now)
	}
}

// updateBrightness smooths the mean of both sensors using the real elapsed
// time since the previous tick.
func (t *Tracker) updateBrightness(now clock.Millis) {
	mean := (t.east.FilteredValue() + t.west.FilteredValue()) / 2
	if !t.primed {
		t.brightness = math.Max(0, mean)
		t.primed = true
		t.lastBrightness = now
		return
	}

	dt := now.Since(t.lastBrightness).Duration().Seconds()
	t.lastBrightness = now
	alpha := 1.0
	if tau := t.cfg.BrightnessFilterTau.Seconds(); tau > 0 {
		alpha = math.Max(0, math.Min(dt/tau, 1))
	}
	t.brightness += alpha * (mean - t.brightness)
	if t.brightness < 0 {
		t.brightness = 0
	}
}

func (t *Tracker) updateIdle(now clock.Millis) {
	if t.checkNightEntry(now) {
		return
	}
	if now.Since(t.lastAdjustment) < clock.FromDuration(t.cfg.AdjustmentPeriod) {
		return
	}

	if t.brightness >= t.cfg.BrightnessThreshold {
		if t.cfg.DefaultWestEnabled {
			t.startDefaultWest(now)
			return
		}
		t.emit(Event{
			At:         now,
			Type:       EventAdjustmentSkipped,
			Brightness: t.brightness,
			Threshold:  t.cfg.BrightnessThreshold,
		})
		t.lastAdjustment = now
		return
	}

	t.startAdjusting(now)
}

// watchDarkness times how long brightness has stayed at or above the night
// threshold. It runs in every state except NightMode; only a tick below the
// threshold restarts the wait.
func (t *Tracker) watchDarkness(now clock.Millis) {
	if t.brightness < t.cfg.NightThreshold {
		t.nightPending = false
		return
	}
	if !t.nightPending {
		t.nightPending = true
		t.nightSince = now
	}
}

// checkNightEntry reports whether night mode was entered.
func (t *Tracker) checkNightEntry(now clock.Millis) bool {
	if !t.nightPending || now.Since(t.nightSince) < clock.FromDuration(t.cfg.NightDetectionTime) {
		return false
	}

	t.motor.MoveEast()
	t.night = true
	t.setState(now, NightMode)
	t.emit(Event{
		At:         now,
		Type:       EventNightModeEntered,
		Brightness: t.brightness,
		Threshold:  t.cfg.NightThreshold,
		Direction:  DirectionEast,
	})
	return true
}

func (t *Tracker) updateNight(now clock.Millis) {
	exit := t.cfg.NightExitThreshold()
	if t.brightness > exit {
		t.dayPending = false
		return
	}
	if !t.dayPending {
		t.dayPending = true
		t.daySince = now
	}
	if now.Since(t.daySince) < clock.FromDuration(t.cfg.NightDetectionTime) {
		return
	}

	t.night = false
	t.lastAdjustment = now
	t.setState(now, Idle)
	t.emit(Event{
		At:         now,
		Type:       EventDayModeEntered,
		Brightness: t.brightness,
		Threshold:  exit,
	})
}

func (t *Tracker) startDefaultWest(now clock.Millis) {
	d := t.cfg.DefaultWestTime
	if t.cfg.UseAverageMovement {
		if count, avg := t.MovementHistory(); count > 0 {
			d = avg
		}
	}
	t.westDuration = d
	t.westStart = now
	t.motor.MoveWest()
	t.setState(now, DefaultWestMovement)
	t.emit(Event{
		At:         now,
		Type:       EventDefaultWestStarted,
		Brightness: t.brightness,
		Threshold:  t.cfg.BrightnessThreshold,
		Direction:  DirectionWest,
		Duration:   d,
	})
}

func (t *Tracker) updateDefaultWest(now clock.Millis) {
	elapsed := now.Since(t.westStart)
	if elapsed < clock.FromDuration(t.westDuration) {
		return
	}
	t.motor.Stop()
	t.lastAdjustment = now
	t.setState(now, Idle)
	t.emit(Event{
		At:        now,
		Type:      EventDefaultWestCompleted,
		Direction: DirectionWest,
		Duration:  elapsed.Duration(),
	})
}

func (t *Tracker) startAdjusting(now clock.Millis) {
	e, w := t.readings()
	t.episode = t.newEpisode()
	t.episodeStart = now
	t.lastSampling = now
	t.direction = DirectionNone
	t.moved = false
	t.initialDiff = e - w
	t.episodeDiff = t.initialDiff
	t.rev = reversal{}
	t.setState(now, Adjusting)
	t.emit(Event{
		At:          now,
		Type:        EventAdjustmentStarted,
		Brightness:  t.brightness,
		East:        e,
		West:        w,
		InitialDiff: t.initialDiff,
	})
}

func (t *Tracker) updateAdjusting(now clock.Millis) {
	if now.Since(t.episodeStart) >= clock.FromDuration(t.cfg.MaxMovementTime) {
		t.motor.Stop()
		e, w := t.readings()
		t.emit(Event{
			At:        now,
			Type:      EventAdjustmentTimeout,
			East:      e,
			West:      w,
			Direction: t.direction,
			Duration:  now.Since(t.episodeStart).Duration(),
			Tries:     t.rev.tries,
		})
		t.finishEpisode(now)
		return
	}

	if t.rev.waiting {
		if now.Since(t.rev.waitStart) < clock.FromDuration(t.cfg.ReversalDeadTime) {
			return
		}
		e, w := t.readings()
		t.rev.waiting = false
		t.rev.active = true
		t.rev.start = now
		t.direction = t.direction.opposite()
		t.initialDiff = e - w
		t.rev.startDiff = t.initialDiff
		t.lastSampling = now
		t.drive()
		return
	}

	if t.rev.active && now.Since(t.rev.start) >= clock.FromDuration(t.cfg.ReversalTimeLimit) {
		t.evaluateReversal(now)
		return
	}

	if now.Since(t.lastSampling) < clock.FromDuration(t.cfg.SamplingRate) {
		return
	}
	t.lastSampling = now
	t.sample(now)
}

func (t *Tracker) sample(now clock.Millis) {
	e, w := t.readings()

	if t.brightness >= t.cfg.BrightnessThreshold {
		t.motor.Stop()
		t.emit(Event{
			At:         now,
			Type:       EventAdjustmentAborted,
			Brightness: t.brightness,
			Threshold:  t.cfg.BrightnessThreshold,
			East:       e,
			West:       w,
			Direction:  t.direction,
		})
		t.finishEpisode(now)
		return
	}

	diff := e - w
	tol := t.tolerance(e, w)
	if math.Abs(diff) <= tol {
		t.succeed(now, e, w, tol)
		return
	}

	if t.direction == DirectionNone {
		if e < w {
			t.direction = DirectionEast
		} else {
			t.direction = DirectionWest
		}
		t.moved = true
	}

	if overshoot(diff, t.initialDiff, tol) {
		t.motor.Stop()
		t.emit(Event{
			At:          now,
			Type:        EventOvershootDetected,
			East:        e,
			West:        w,
			Tolerance:   tol,
			InitialDiff: t.initialDiff,
			Direction:   t.direction,
			Tries:       t.rev.tries,
		})
		if t.rev.tries >= t.cfg.MaxReversalTries {
			t.reversalLimit(now, e, w, tol)
			return
		}
		t.rev.tries++
		t.rev.waiting = true
		t.rev.active = false
		t.rev.waitStart = now
		return
	}

	t.drive()
}

// evaluateReversal runs when a reversal has used its time limit. It finishes
// if balanced, keeps going while the imbalance is still on the overshoot
// side and shrinking, and otherwise gives up.
func (t *Tracker) evaluateReversal(now clock.Millis) {
	e, w := t.readings()
	diff := e - w
	tol := t.tolerance(e, w)

	if math.Abs(diff) <= tol {
		t.succeed(now, e, w, tol)
		return
	}

	if overshoot(diff, t.episodeDiff, tol) && math.Abs(diff) < math.Abs(t.rev.startDiff) {
		if t.rev.tries >= t.cfg.MaxReversalTries {
			t.reversalLimit(now, e, w, tol)
			return
		}
		t.rev.tries++
		t.rev.start = now
		t.rev.startDiff = diff
		t.drive()
		return
	}

	t.motor.Stop()
	t.emit(Event{
		At:          now,
		Type:        EventReversalNoProgress,
		East:        e,
		West:        w,
		Tolerance:   tol,
		InitialDiff: t.episodeDiff,
		Direction:   t.direction,
		Duration:    now.Since(t.rev.start).Duration(),
		Tries:       t.rev.tries,
	})
	t.finishEpisode(now)
}

func (t *Tracker) reversalLimit(now clock.Millis, e, w, tol float64) {
	t.motor.Stop()
	t.emit(Event{
		At:          now,
		Type:        EventReversalLimitReached,
		East:        e,
		West:        w,
		Tolerance:   tol,
		InitialDiff: t.episodeDiff,
		Direction:   t.direction,
		Tries:       t.rev.tries,
	})
	t.finishEpisode(now)
}

func (t *Tracker) succeed(now clock.Millis, e, w, tol float64) {
	t.motor.Stop()
	var d time.Duration
	if t.moved {
		d = now.Since(t.episodeStart).Duration()
		t.lastMovement = d
		t.history.Append(float64(d.Milliseconds()))
		if t.recorded < t.cfg.MovementHistorySize {
			t.recorded++
		}
	}
	t.emit(Event{
		At:          now,
		Type:        EventSuccessfulMovement,
		East:        e,
		West:        w,
		Tolerance:   tol,
		InitialDiff: t.episodeDiff,
		Direction:   t.direction,
		Duration:    d,
		Tries:       t.rev.tries,
	})
	t.finishEpisode(now)
}

func (t *Tracker) finishEpisode(now clock.Millis) {
	t.lastAdjustment = now
	t.rev = reversal{}
	t.setState(now, Idle)
	t.episode = ""
}

func (t *Tracker) drive() {
	switch t.direction {
	case DirectionEast:
		t.motor.MoveEast()
	case DirectionWest:
		t.motor.MoveWest()
	}
}

func (t *Tracker) readings() (float64, float64) {
	return t.east.FilteredValue(), t.west.FilteredValue()
}

func (t *Tracker) tolerance(e, w float64) float64 {
	return math.Min(e, w) * t.cfg.TolerancePercent / 100
}

// overshoot reports whether the imbalance has changed sign relative to ref
// and is outside tolerance.
func overshoot(diff, ref, tol float64) bool {
	return diff*ref < 0 && math.Abs(diff) > tol
}

func (t *Tracker) setState(now clock.Millis, s State) {
	if s == t.state {
		return
	}
	from := t.state
	t.state = s
	t.stateSince = now
	if s == NightMode || from == NightMode {
		t.nightPending = false
		t.dayPending = false
	}
	t.emit(Event{At: now, Type: EventStateChanged, From: from, To: s})
}

func (t *Tracker) emit(e Event) {
	e.State = t.state
	if e.Episode == "" {
		e.Episode = t.episode
	}
	t.sink.Emit(e)
}

// State returns the current control state.
func (t *Tracker) State() State { return t.state }

// Config returns the active configuration.
func (t *Tracker) Config() Config { return t.cfg }

// FilteredBrightness returns the smoothed mean resistance of both sensors.
func (t *Tracker) FilteredBrightness() float64 { return t.brightness }

// IsNight reports whether night mode is active.
func (t *Tracker) IsNight() bool { return t.night }

// Direction returns the direction fixed for the current episode.
func (t *Tracker) Direction() Direction { return t.direction }

// ReversalTries returns the reversals spent in the current episode.
func (t *Tracker) ReversalTries() int { return t.rev.tries }

// Episode returns the id of the current adjustment episode, if any.
func (t *Tracker) Episode() string { return t.episode }

// LastMovementDuration returns the duration of the last balanced movement.
func (t *Tracker) LastMovementDuration() time.Duration { return t.lastMovement }

// TimeSinceStateChange returns how long the tracker has been in its state.
func (t *Tracker) TimeSinceStateChange() time.Duration {
	return t.clock.Now().Since(t.stateSince).Duration()
}

// TimeUntilNextAdjustment returns the remaining wait in Idle, or zero in any
// other state.
func (t *Tracker) TimeUntilNextAdjustment() time.Duration {
	if t.state != Idle {
		return 0
	}
	elapsed := t.clock.Now().Since(t.lastAdjustment).Duration()
	if elapsed >= t.cfg.AdjustmentPeriod {
		return 0
	}
	return t.cfg.AdjustmentPeriod - elapsed
}

// MovementHistory returns the number of recorded movements and their mean.
// Buckets not yet written hold zero, so the sum covers only real entries.
func (t *Tracker) MovementHistory() (int, time.Duration) {
	if t.recorded == 0 {
		return 0, 0
	}
	avg := t.history.Reduce(rolling.Sum) / float64(t.recorded)
	return t.recorded, time.Duration(math.Round(avg)) * time.Millisecond
}

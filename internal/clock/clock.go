// Package clock provides the wrapping millisecond counter that the control
// core runs on. All elapsed-time arithmetic uses unsigned subtraction so that
// a single wraparound of the counter (about 49.7 days) is harmless.
package clock

import (
	"sync/atomic"
	"time"
)

// Millis is a free-running 32-bit millisecond counter.
type Millis uint32

// Since returns the time elapsed from earlier to m, modulo 2^32.
func (m Millis) Since(earlier Millis) Millis {
	return m - earlier
}

// Duration converts a millisecond count into a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// FromDuration converts d to whole milliseconds. Negative durations become 0
// and values above the counter range saturate.
func FromDuration(d time.Duration) Millis {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > int64(^uint32(0)) {
		return Millis(^uint32(0))
	}
	return Millis(ms)
}

// Source provides the current counter value.
type Source interface {
	Now() Millis
}

// System derives the counter from the monotonic clock.
type System struct {
	start time.Time
}

// NewSystem returns a System whose counter starts at zero now.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Now returns the elapsed milliseconds since construction, truncated to 32 bits.
func (s *System) Now() Millis {
	return Millis(uint32(time.Since(s.start).Milliseconds()))
}

// Fake is a manually driven Source for tests.
type Fake struct {
	now atomic.Uint32
}

// NewFake returns a Fake starting at the given counter value.
func NewFake(start Millis) *Fake {
	f := &Fake{}
	f.now.Store(uint32(start))
	return f
}

// Now returns the current fake counter value.
func (f *Fake) Now() Millis {
	return Millis(f.now.Load())
}

// Set moves the counter to m.
func (f *Fake) Set(m Millis) {
	f.now.Store(uint32(m))
}

// Advance moves the counter forward by d, wrapping at 2^32.
func (f *Fake) Advance(d time.Duration) {
	f.now.Add(uint32(FromDuration(d)))
}

package tracker

// FakeSensor is a test double with a directly settable filtered value.
type FakeSensor struct {
	Value float64
}

// FilteredValue returns Value.
func (f *FakeSensor) FilteredValue() float64 { return f.Value }

// FakeActuator records the commands it receives.
type FakeActuator struct {
	// Calls contains "east", "west" or "stop" for every command, in order.
	Calls []string

	// Moving is the direction of the last move command, or DirectionNone
	// after a stop.
	Moving Direction
}

// MoveEast records an east command.
func (f *FakeActuator) MoveEast() {
	f.Calls = append(f.Calls, "east")
	f.Moving = DirectionEast
}

// MoveWest records a west command.
func (f *FakeActuator) MoveWest() {
	f.Calls = append(f.Calls, "west")
	f.Moving = DirectionWest
}

// Stop records a stop command.
func (f *FakeActuator) Stop() {
	f.Calls = append(f.Calls, "stop")
	f.Moving = DirectionNone
}

// Count returns how many times the named command was received.
func (f *FakeActuator) Count(call string) int {
	n := 0
	for _, c := range f.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// Reset clears recorded commands.
func (f *FakeActuator) Reset() {
	f.Calls = nil
	f.Moving = DirectionNone
}

// Recorder is a Sink that keeps every event for test assertions.
type Recorder struct {
	Events []Event
}

// Emit records the event.
func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// Count returns how many events of the given type were recorded.
func (r *Recorder) Count(typ EventType) int {
	n := 0
	for _, e := range r.Events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// Last returns the most recent event of the given type.
func (r *Recorder) Last(typ EventType) (Event, bool) {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Type == typ {
			return r.Events[i], true
		}
	}
	return Event{}, false
}

// Types returns the recorded event types in order, excluding state changes.
func (r *Recorder) Types() []EventType {
	var out []EventType
	for _, e := range r.Events {
		if e.Type != EventStateChanged {
			out = append(out, e.Type)
		}
	}
	return out
}

// Reset clears recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
}

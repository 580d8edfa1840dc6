package gpio

// FakeLine is a test double that records every value written to it.
type FakeLine struct {
	Name string

	// Writes contains every value passed to SetValue, in order.
	Writes []int

	// SetError, if set, will be returned by SetValue.
	SetError error

	// ValueError, if set, will be returned by Value.
	ValueError error

	// Overlaps counts writes that left this line and its peer both asserted.
	Overlaps int

	value int
	peer  *FakeLine
}

// NewFakeLine creates a released FakeLine.
func NewFakeLine(name string) *FakeLine {
	return &FakeLine{Name: name}
}

// SetValue records and applies the value.
func (f *FakeLine) SetValue(v int) error {
	if f.SetError != nil {
		return f.SetError
	}
	if v != 0 {
		v = 1
	}
	f.Writes = append(f.Writes, v)
	f.value = v
	if v == 1 && f.peer != nil && f.peer.value == 1 {
		f.Overlaps++
	}
	return nil
}

// Value returns the current level.
func (f *FakeLine) Value() (int, error) {
	if f.ValueError != nil {
		return 0, f.ValueError
	}
	return f.value, nil
}

// Force sets the level without recording a write, simulating a line driven
// by something other than the code under test.
func (f *FakeLine) Force(v int) {
	f.value = v
}

// Level returns the current level, ignoring ValueError.
func (f *FakeLine) Level() int {
	return f.value
}

// Reset clears recorded writes and errors.
func (f *FakeLine) Reset() {
	f.Writes = nil
	f.SetError = nil
	f.ValueError = nil
	f.Overlaps = 0
	f.value = 0
}

// FakePair is a Pair of linked FakeLines.
type FakePair struct {
	EastLine *FakeLine
	WestLine *FakeLine

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePair creates a FakePair whose lines detect simultaneous assertion.
func NewFakePair() *FakePair {
	e := NewFakeLine("east")
	w := NewFakeLine("west")
	e.peer = w
	w.peer = e
	return &FakePair{EastLine: e, WestLine: w}
}

// East returns the east line.
func (p *FakePair) East() Output { return p.EastLine }

// West returns the west line.
func (p *FakePair) West() Output { return p.WestLine }

// BothAsserted reports whether both lines are currently high.
func (p *FakePair) BothAsserted() bool {
	return p.EastLine.value == 1 && p.WestLine.value == 1
}

// Overlaps returns the number of writes that left both lines high.
func (p *FakePair) Overlaps() int {
	return p.EastLine.Overlaps + p.WestLine.Overlaps
}

// Close releases both lines.
func (p *FakePair) Close() error {
	p.EastLine.value = 0
	p.WestLine.value = 0
	p.Closed = true
	return nil
}

package adc

import (
	"errors"
	"sync"
)

// FakeChannel returns scripted readings. Once the script is exhausted the last
// value repeats.
type FakeChannel struct {
	mu      sync.Mutex
	samples []int
	index   int
	err     error
	reads   int
}

// NewFakeChannel creates a channel that returns samples in order.
func NewFakeChannel(samples ...int) *FakeChannel {
	return &FakeChannel{samples: samples}
}

// ReadAnalog returns the next scripted sample.
func (f *FakeChannel) ReadAnalog() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.samples) == 0 {
		return 0, errors.New("no samples")
	}
	v := f.samples[f.index]
	if f.index < len(f.samples)-1 {
		f.index++
	}
	return v, nil
}

// Set replaces the script with a single constant reading.
func (f *FakeChannel) Set(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = []int{v}
	f.index = 0
}

// SetError makes subsequent reads fail with err. A nil err clears it.
func (f *FakeChannel) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Reads returns how many reads were attempted.
func (f *FakeChannel) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// fakeConn answers MCP3008 transfers from a per-channel value table.
type fakeConn struct {
	values map[int]int
	sent   [][]byte
	err    error
}

func (c *fakeConn) Tx(w, r []byte) error {
	c.sent = append(c.sent, append([]byte(nil), w...))
	if c.err != nil {
		return c.err
	}
	ch := int(w[1]>>4) & 0x07
	v := c.values[ch]
	r[0] = 0
	r[1] = byte(v>>8) & 0x03
	r[2] = byte(v)
	return nil
}

//go:build linux

package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// rpioLine adapts a memory-mapped BCM pin to Output.
type rpioLine struct {
	pin rpio.Pin
}

func (l rpioLine) SetValue(v int) error {
	if v != 0 {
		l.pin.High()
	} else {
		l.pin.Low()
	}
	return nil
}

func (l rpioLine) Value() (int, error) {
	if l.pin.Read() == rpio.High {
		return 1, nil
	}
	return 0, nil
}

// RPiPair drives the motor outputs through /dev/gpiomem.
// Useful on kernels without the character device.
type RPiPair struct {
	east rpioLine
	west rpioLine
}

// OpenRPi maps the GPIO registers and configures both pins as low outputs.
func OpenRPi(pinEast, pinWest int) (*RPiPair, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w (are you running on a Raspberry Pi?)", err)
	}

	p := &RPiPair{
		east: rpioLine{pin: rpio.Pin(pinEast)},
		west: rpioLine{pin: rpio.Pin(pinWest)},
	}
	for _, l := range []rpioLine{p.east, p.west} {
		l.pin.Low()
		l.pin.Output()
	}
	return p, nil
}

// East returns the east direction line.
func (p *RPiPair) East() Output { return p.east }

// West returns the west direction line.
func (p *RPiPair) West() Output { return p.west }

// Close drives both pins low, returns them to input and unmaps the registers.
func (p *RPiPair) Close() error {
	for _, l := range []rpioLine{p.east, p.west} {
		l.pin.Low()
		l.pin.Input()
	}
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	return nil
}

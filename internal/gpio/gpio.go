// Package gpio provides the motor direction outputs with hardware abstraction.
// The real implementations use the Linux GPIO character device or the
// memory-mapped BCM registers. The fake implementation allows testing
// without hardware.
package gpio

import "fmt"

// Output is a single digital output line that can be read back.
// *gpiocdev.Line satisfies it directly.
type Output interface {
	// SetValue drives the line: 1 = asserted, 0 = released.
	SetValue(v int) error

	// Value returns the level currently driven on the line.
	Value() (int, error)
}

// Pair holds the east and west direction outputs of one actuator.
type Pair interface {
	East() Output
	West() Output

	// Close releases the lines, leaving both de-energized.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinEast = 23
	DefaultPinWest = 24
)

// DefaultChip is the character device used by the cdev backend.
const DefaultChip = "gpiochip0"

// Backend names accepted by Open.
const (
	BackendCdev = "cdev"
	BackendRPi  = "rpio"
	BackendFake = "fake"
)

// Open returns the output pair for the named backend.
func Open(backend, chip string, east, west int) (Pair, error) {
	if east == west {
		return nil, fmt.Errorf("east and west must use different pins, both are %d", east)
	}
	switch backend {
	case BackendCdev, "":
		if chip == "" {
			chip = DefaultChip
		}
		p, err := OpenCdev(chip, east, west)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendRPi:
		p, err := OpenRPi(east, west)
		if err != nil {
			return nil, err
		}
		return p, nil
	case BackendFake:
		return NewFakePair(), nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", backend)
}

//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevPair drives the motor outputs through the Linux GPIO character device.
type CdevPair struct {
	chip *gpiocdev.Chip
	east *gpiocdev.Line
	west *gpiocdev.Line
}

// OpenCdev requests both pins as outputs, initially low.
func OpenCdev(chipName string, pinEast, pinWest int) (*CdevPair, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	eastLine, err := chip.RequestLine(pinEast, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request east pin %d: %w", pinEast, err)
	}

	westLine, err := chip.RequestLine(pinWest, gpiocdev.AsOutput(0))
	if err != nil {
		eastLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request west pin %d: %w", pinWest, err)
	}

	return &CdevPair{
		chip: chip,
		east: eastLine,
		west: westLine,
	}, nil
}

// East returns the east direction line.
func (p *CdevPair) East() Output { return p.east }

// West returns the west direction line.
func (p *CdevPair) West() Output { return p.west }

// Close drives both lines low and reconfigures them as inputs with pull-down
// (matching Pi boot defaults) so the motor driver sees no drive after exit.
func (p *CdevPair) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{{"east", p.east}, {"west", p.west}} {
		if l.line == nil {
			continue
		}
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release %s pin: %w", l.name, err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

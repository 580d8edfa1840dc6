//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevPair is not available on non-Linux platforms.
type CdevPair struct{}

// OpenCdev returns an error on non-Linux platforms.
func OpenCdev(chipName string, pinEast, pinWest int) (*CdevPair, error) {
	return nil, errUnsupported
}

func (p *CdevPair) East() Output { return nil }
func (p *CdevPair) West() Output { return nil }
func (p *CdevPair) Close() error { return nil }

// RPiPair is not available on non-Linux platforms.
type RPiPair struct{}

// OpenRPi returns an error on non-Linux platforms.
func OpenRPi(pinEast, pinWest int) (*RPiPair, error) {
	return nil, errUnsupported
}

func (p *RPiPair) East() Output { return nil }
func (p *RPiPair) West() Output { return nil }
func (p *RPiPair) Close() error { return nil }

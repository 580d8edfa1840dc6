// Package adc reads the light-dependent resistor dividers through an
// MCP3008 10-bit converter on the SPI bus.
package adc

import (
	"fmt"
	"sync"

	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// Channels is the number of single-ended inputs on the MCP3008.
const Channels = 8

// DefaultSPIHz is the SPI clock used when none is configured.
const DefaultSPIHz = 1000000

// Conn is a full-duplex SPI transfer. periph's spi.Conn satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// MCP3008 is a converter on one SPI chip select.
type MCP3008 struct {
	mu   sync.Mutex
	conn Conn
	port spi.PortCloser
}

// OpenMCP3008 opens the named SPI port (e.g. "/dev/spidev0.0" or "" for the
// first available) and connects at hz.
func OpenMCP3008(port string, hz int) (*MCP3008, error) {
	if hz <= 0 {
		hz = DefaultSPIHz
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", port, err)
	}
	c, err := p.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("connect spi port %q: %w", port, err)
	}
	return &MCP3008{conn: c, port: p}, nil
}

// NewMCP3008 wraps an existing connection.
func NewMCP3008(c Conn) *MCP3008 {
	return &MCP3008{conn: c}
}

// Read performs a single-ended conversion on ch and returns 0..1023.
func (m *MCP3008) Read(ch int) (int, error) {
	if ch < 0 || ch >= Channels {
		return 0, fmt.Errorf("channel %d out of range [0, %d)", ch, Channels)
	}
	w := []byte{0x01, byte(0x80 | ch<<4), 0x00}
	r := make([]byte, len(w))

	m.mu.Lock()
	err := m.conn.Tx(w, r)
	m.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("spi transfer on channel %d: %w", ch, err)
	}
	return int(r[1]&0x03)<<8 | int(r[2]), nil
}

// Channel returns a reader bound to one input.
func (m *MCP3008) Channel(ch int) *Channel {
	return &Channel{adc: m, ch: ch}
}

// Close releases the SPI port if this converter opened it.
func (m *MCP3008) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}

// Channel is one converter input.
type Channel struct {
	adc *MCP3008
	ch  int
}

// ReadAnalog returns the raw conversion result.
func (c *Channel) ReadAnalog() (int, error) {
	return c.adc.Read(c.ch)
}

// Number returns the input index.
func (c *Channel) Number() int { return c.ch }

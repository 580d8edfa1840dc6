package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaud is the serial console speed.
const DefaultBaud = 115200

// OpenSerial opens a serial console port at baud (8N1).
func OpenSerial(port string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return p, nil
}

// ReadLines sends each line read from r to lines until r is exhausted or ctx
// is cancelled. Carriage returns are stripped. lines is closed on return.
func ReadLines(ctx context.Context, r io.Reader, lines chan<- string) error {
	defer close(lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		select {
		case lines <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return sc.Err()
}

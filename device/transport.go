package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock.go -package=device

// Transport represents an established, bidirectional byte stream to a
// smartBASIC module.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to send AT commands and
// receive responses, plus control of the DTR line which is wired to the
// module's reset input. Reads must not block indefinitely: a Transport with
// no data available returns (0, nil) after a short internal timeout so the
// driver can poll against its own command deadlines. Typical implementations
// include serial ports and in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser

	// SetDTR drives the DTR control line. The driver pulls it low and back
	// high to hardware-reset the module.
	SetDTR(on bool) error
}

// Dialer opens a Transport to a smartBASIC module.
//
// Dialer abstracts how the connection is created (serial port or test
// double) and is intended to be used during driver construction only. Once
// a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport.
	// It may perform blocking operations and should respect cancellation
	// provided by the context. Dial returns an error if the transport cannot
	// be established.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens a smartBASIC module over a serial port using
// go.bug.st/serial.
type SerialDialer struct {
	// PortName identifies the serial port, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate is used when Mode is nil. Zero means 9600, the module's
	// factory default.
	BaudRate int
	// Mode overrides the full port configuration when set.
	Mode *serial.Mode
	// ReadTimeout is the per-read poll timeout applied to the port. Zero
	// means 50ms.
	ReadTimeout time.Duration
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("device: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("device: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 9600
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, &TransportError{Op: fmt.Sprintf("open serial port %s", d.PortName), Err: err}
	}

	readTimeout := d.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 50 * time.Millisecond
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, &TransportError{Op: "set read timeout", Err: err}
	}

	return port, nil
}

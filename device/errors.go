package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Device is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the module.
	ErrNoDialer = errors.New("device: no dialer configured")

	// ErrNotConnected is returned when a Dialer hands back a nil Transport.
	ErrNotConnected = errors.New("device: not connected")

	// ErrAlreadyClosed is returned when an operation is attempted on a
	// Device that has already been closed.
	ErrAlreadyClosed = errors.New("device: already closed")

	// ErrNotReset is returned when a file system or run operation is
	// attempted before the module has been reset. Callers must invoke
	// Reset first so the module is in a known interactive state.
	ErrNotReset = errors.New("device: module has not been reset")

	// ErrNotIdentified is returned when an operation that depends on the
	// module's model identifier is attempted before Identify or SetModel.
	ErrNotIdentified = errors.New("device: module model not identified")
)

// NoResponseError reports that a command produced no bytes at all before its
// read deadline. This is distinct from a malformed reply: it usually means
// the module is absent, wired wrong, or not in interactive mode.
type NoResponseError struct {
	// Cmd is the full frame that was sent.
	Cmd string
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("got no response to command %q, not connected or not in interactive mode?", e.Cmd)
}

// DeviceError reports that the module rejected a command with an error code.
type DeviceError struct {
	// Cmd is the command tail that was rejected.
	Cmd string
	// Code is the error code text as reported on the wire, in hex.
	Code string
	// Description is the human-readable meaning of Code, resolved through
	// the configured lookup.
	Description string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("module returned error %s: %s", e.Code, e.Description)
}

// MalformedResponseError reports a reply that fit no recognized shape. The
// raw bytes are carried for diagnostic display.
type MalformedResponseError struct {
	Cmd string
	Raw []byte
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("got unexpected/error response to command 'AT%s': %q", e.Cmd, e.Raw)
}

// TransportError wraps a fault of the underlying serial channel, as opposed
// to an error reported by the module itself.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

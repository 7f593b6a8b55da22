package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dsiganos/blutil/at"
)

// State tracks the module session. Operations declare the minimum state they
// need and fail fast with a precondition error instead of a confusing
// device-level one.
type State int

const (
	// StateDisconnected: the transport is open but the module has not been
	// reset into a known interactive state.
	StateDisconnected State = iota
	// StateReset: a hardware reset has been performed (or suppressed by
	// configuration). File system operations are available.
	StateReset
	// StateIdentified: the module answered the identification commands.
	StateIdentified
	// StateReady: the model identifier is known. Operations that select a
	// compiler variant or run programs are available.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateReset:
		return "reset"
	case StateIdentified:
		return "identified"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Device is the protocol driver for a serial-attached smartBASIC module. It
// owns its Transport exclusively for its lifetime and issues strictly one
// command at a time: every operation is a blocking write followed by a
// deadline-bounded read, never pipelined.
type Device struct {
	transport Transport
	config    Config
	logger    *slog.Logger
	state     State
	model     string
	closed    bool
}

// New establishes the transport connection and returns a driver in the
// Disconnected state. Callers normally follow up with Reset and, when an
// operation needs the model identifier, Identify.
func New(ctx context.Context, config Config) (*Device, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotConnected
	}

	return &Device{
		transport: transport,
		config:    config,
		logger:    config.Logger,
	}, nil
}

// Close shuts down the driver and releases the transport. After Close the
// Device cannot be reused.
func (d *Device) Close() error {
	if d.closed {
		return ErrAlreadyClosed
	}
	d.closed = true
	return d.transport.Close()
}

// State reports the current session state.
func (d *Device) State() State { return d.state }

// Model reports the identifier established by Identify or SetModel, e.g.
// "BL600r2_1.1.50.0". Empty before StateReady.
func (d *Device) Model() string { return d.model }

// Reset performs a hardware reset by pulling the DTR line low, letting it
// settle, and releasing it. Not itself an AT command. When reset is disabled
// by configuration only the session state advances.
func (d *Device) Reset() error {
	if d.closed {
		return ErrAlreadyClosed
	}
	if !d.config.DisableReset {
		d.logger.Debug("resetting module via DTR")
		if err := d.transport.SetDTR(false); err != nil {
			return &TransportError{Op: "assert DTR", Err: err}
		}
		time.Sleep(d.config.SettleDelay)
		if err := d.transport.SetDTR(true); err != nil {
			return &TransportError{Op: "release DTR", Err: err}
		}
	}
	if d.state < StateReset {
		d.state = StateReset
	}
	return nil
}

// Identify reads the module's model and firmware revision and combines them
// into the model identifier used to select a compiler variant. Both reads
// must succeed; afterwards the session is Ready.
func (d *Device) Identify() error {
	if err := d.require(StateReset, "identify"); err != nil {
		return err
	}
	model, err := d.ReadParam(0)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	revision, err := d.ReadParam(13)
	if err != nil {
		return fmt.Errorf("read revision: %w", err)
	}
	d.state = StateIdentified
	d.logger.Info("detected module", "model", model, "revision", revision)
	d.model = model + "_" + strings.ReplaceAll(revision, " ", "_")
	d.state = StateReady
	return nil
}

// SetModel installs a caller-supplied model identifier instead of detecting
// one, marking the session Ready.
func (d *Device) SetModel(model string) {
	d.model = strings.ReplaceAll(model, " ", "_")
	if d.state < StateReady {
		d.state = StateReady
	}
}

// ReadParam reads a numbered configuration parameter ("AT I <n>"). The
// module echoes the parameter in tab-separated fields; the value is the
// last one.
func (d *Device) ReadParam(param int) (string, error) {
	payload, err := d.exec(fmt.Sprintf("I %d", param), d.config.CommandTimeout)
	if err != nil {
		return "", err
	}
	fields := strings.Split(payload, "\t")
	return fields[len(fields)-1], nil
}

// List returns the module's directory listing, raw, for display.
func (d *Device) List() (string, error) {
	if err := d.require(StateReset, "list"); err != nil {
		return "", err
	}
	return d.exec("+DIR", d.config.CommandTimeout)
}

// Delete removes a file from the module's file system. The name is
// normalized the same way Upload normalizes it, so callers can pass the
// original local path. A rejection by the module surfaces verbatim as a
// DeviceError.
func (d *Device) Delete(name string) error {
	if err := d.require(StateReset, "delete"); err != nil {
		return err
	}
	remote := RemoteName(name)
	d.logger.Debug("removing remote file", "name", remote)
	_, err := d.exec(fmt.Sprintf("+DEL \"%s\"", remote), d.config.CommandTimeout)
	return err
}

// Format erases every file stored on the module: clear the file system
// (slow, extended timeout), drain whatever that left behind, factory-reset
// with no response expected, pause, discard residual bytes, then probe the
// module to confirm it is interactive again. Only the clear command and the
// final probe can fail the operation.
func (d *Device) Format() error {
	if err := d.require(StateReset, "format"); err != nil {
		return err
	}
	if _, err := d.exec("Z", d.config.EraseTimeout); err != nil {
		return fmt.Errorf("clear file system: %w", err)
	}
	// Drain probe. Intermediate failures here say nothing about the final
	// outcome, so they are not surfaced.
	d.exec("", d.config.CommandTimeout)
	if err := d.send("&F 1"); err != nil {
		return err
	}
	time.Sleep(d.config.PostResetDelay)
	d.discard()
	if _, err := d.exec("", d.config.CommandTimeout); err != nil {
		return fmt.Errorf("module not responsive after format: %w", err)
	}
	return nil
}

// RunOutcome classifies what a module emits right after +RUN.
type RunOutcome int

const (
	// RunPending: no bytes arrived in the window. The program is probably
	// still running.
	RunPending RunOutcome = iota
	// RunCompleted: the output ended with the success terminator; the
	// program ran to completion.
	RunCompleted
	// RunDeviceError: the module rejected the run with an error code.
	RunDeviceError
	// RunImmediate: unterminated bytes arrived, shown as-is. Not an error:
	// a running program may legitimately produce partial output before the
	// window closes.
	RunImmediate
	// RunSilent: the module emitted the bare "\n00" literal. Preserved as a
	// special case with no output of its own.
	RunSilent
)

// RunResult is what a Run produced within its read window.
type RunResult struct {
	Outcome     RunOutcome
	Output      string
	Code        string
	Description string
}

// Run probes the module, starts the named program without expecting a
// structured response, and scans a bounded window of immediate output.
// Unlike every other operation the scan is permissive: only the initial
// probe and transport faults produce errors.
func (d *Device) Run(name string) (RunResult, error) {
	if err := d.require(StateReady, "run"); err != nil {
		return RunResult{}, err
	}
	// Fail fast if the module is not responding at all.
	if _, err := d.exec("", d.config.CommandTimeout); err != nil {
		return RunResult{}, err
	}
	remote := RemoteName(name)
	d.logger.Debug("running remote file", "name", remote)
	if err := d.send(fmt.Sprintf("+RUN \"%s\"", remote)); err != nil {
		return RunResult{}, err
	}

	out := d.readWindow(d.config.RunReadLimit, d.config.RunWindow)
	switch {
	case len(out) == 0:
		return RunResult{Outcome: RunPending}, nil
	case len(out) >= 3 && bytes.HasSuffix(out, []byte(at.SuccessTerminator)):
		return RunResult{
			Outcome: RunCompleted,
			Output:  string(out[:len(out)-len(at.SuccessTerminator)]),
		}, nil
	case len(out) > 4 && bytes.HasPrefix(out, []byte(at.ErrorPrefix)):
		code := string(out[len(at.ErrorPrefix) : len(out)-1])
		return RunResult{
			Outcome:     RunDeviceError,
			Code:        code,
			Description: d.config.Lookup(code),
		}, nil
	case string(out) == at.RunIgnored:
		return RunResult{Outcome: RunSilent}, nil
	default:
		return RunResult{Outcome: RunImmediate, Output: string(out)}, nil
	}
}

// Command issues a caller-supplied raw command tail with the extended raw
// timeout and returns the Success payload.
func (d *Device) Command(tail string) (string, error) {
	if err := d.require(StateReset, "command"); err != nil {
		return "", err
	}
	return d.exec(tail, d.config.RawTimeout)
}

// Listen copies everything the module emits to w until the context is
// cancelled. This is the one unbounded read loop in the driver; the channel
// is left in whatever state it was in when the context fired.
func (d *Device) Listen(ctx context.Context, w io.Writer) error {
	if d.closed {
		return ErrAlreadyClosed
	}
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := d.transport.Read(buf)
		if err != nil {
			return &TransportError{Op: "listen", Err: err}
		}
		if n == 0 {
			time.Sleep(d.config.PollInterval)
			continue
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("write listen output: %w", err)
		}
	}
}

func (d *Device) require(min State, op string) error {
	if d.closed {
		return ErrAlreadyClosed
	}
	if d.state >= min {
		return nil
	}
	switch {
	case min >= StateReady:
		return fmt.Errorf("%s: %w", op, ErrNotIdentified)
	default:
		return fmt.Errorf("%s: %w", op, ErrNotReset)
	}
}

// exec frames and writes one command, collects its response until the
// success terminator or the deadline, classifies it, and maps the outcome
// onto the driver's error taxonomy. Exactly one command is ever in flight.
func (d *Device) exec(tail string, timeout time.Duration) (string, error) {
	frame := at.Frame(tail)
	d.logger.Debug("send", "frame", string(frame))
	if _, err := d.transport.Write(frame); err != nil {
		return "", &TransportError{Op: fmt.Sprintf("write command %q", tail), Err: err}
	}

	raw, err := d.collect(timeout)
	if err != nil {
		return "", err
	}

	resp := at.Classify(raw)
	switch resp.Outcome {
	case at.Success:
		d.logger.Debug("recv", "payload", resp.Payload)
		return resp.Payload, nil
	case at.NoResponse:
		return "", &NoResponseError{Cmd: string(frame)}
	case at.DeviceError:
		return "", &DeviceError{
			Cmd:         tail,
			Code:        resp.Code,
			Description: d.config.Lookup(resp.Code),
		}
	default:
		return "", &MalformedResponseError{Cmd: tail, Raw: resp.Raw}
	}
}

// send writes one command frame without reading a response.
func (d *Device) send(tail string) error {
	frame := at.Frame(tail)
	d.logger.Debug("send", "frame", string(frame), "response", false)
	if _, err := d.transport.Write(frame); err != nil {
		return &TransportError{Op: fmt.Sprintf("write command %q", tail), Err: err}
	}
	return nil
}

// collect accumulates response bytes until the buffer ends with the success
// terminator or the deadline passes. A short buffer at deadline is not an
// error here; classification decides what it means.
func (d *Device) collect(timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	var buf []byte
	tmp := make([]byte, 256)
	for !bytes.HasSuffix(buf, []byte(at.SuccessTerminator)) && time.Now().Before(deadline) {
		n, err := d.transport.Read(tmp)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &TransportError{Op: "read response", Err: err}
		}
		if n == 0 {
			time.Sleep(d.config.PollInterval)
			continue
		}
		buf = append(buf, tmp[:n]...)
	}
	return buf, nil
}

// readWindow reads up to limit bytes within the window, without any
// terminator logic. Used by Run's immediate-output scan and by Format's
// residue discard.
func (d *Device) readWindow(limit int, window time.Duration) []byte {
	deadline := time.Now().Add(window)
	buf := make([]byte, 0, limit)
	tmp := make([]byte, limit)
	for len(buf) < limit && time.Now().Before(deadline) {
		n, err := d.transport.Read(tmp[:limit-len(buf)])
		if err != nil {
			break
		}
		if n == 0 {
			time.Sleep(d.config.PollInterval)
			continue
		}
		buf = append(buf, tmp[:n]...)
	}
	return buf
}

// discard swallows any residual bytes sitting in the channel.
func (d *Device) discard() {
	tmp := make([]byte, d.config.RunReadLimit)
	d.transport.Read(tmp)
}

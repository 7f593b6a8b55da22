package device

import (
	"context"
	"sync"
)

// TestTransport is a test helper that scripts a strict request/response
// exchange. Each Write consumes the next scripted response, which subsequent
// Reads then drain; once drained, Reads return (0, nil) the way a serial
// port with a read timeout does. This matches the driver's one-command-in-
// flight discipline without real timing.
// Exported for use in tests.
type TestTransport struct {
	mu       sync.Mutex
	script   [][]byte
	pending  []byte
	writes   []string
	dtr      []bool
	readErr  error
	writeErr error
	closed   bool
}

// NewTestTransport creates a test transport whose commands will be answered,
// in order, with the given responses. A command beyond the script gets no
// response at all.
func NewTestTransport(responses ...string) *TestTransport {
	t := &TestTransport{}
	for _, r := range responses {
		t.script = append(t.script, []byte(r))
	}
	return t
}

// TestDialer hands out a fixed Transport, for driving a Device from a
// TestTransport.
type TestDialer struct {
	Transport Transport
}

func (d TestDialer) Dial(ctx context.Context) (Transport, error) {
	return d.Transport, nil
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	t.writes = append(t.writes, string(p))
	if len(t.script) > 0 {
		t.pending = append(t.pending, t.script[0]...)
		t.script = t.script[1:]
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.readErr != nil {
		return 0, t.readErr
	}
	n = copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *TestTransport) SetDTR(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dtr = append(t.dtr, on)
	return nil
}

// Feed queues bytes for reading without requiring a command first. This
// simulates unsolicited output, e.g. print statements from a running
// program in listen mode.
func (t *TestTransport) Feed(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, data...)
}

// FailReads makes every subsequent Read return err.
func (t *TestTransport) FailReads(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readErr = err
}

// FailWrites makes every subsequent Write return err.
func (t *TestTransport) FailWrites(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Writes returns every frame written so far.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// DTRTransitions returns the sequence of SetDTR calls observed.
func (t *TestTransport) DTRTransitions() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]bool(nil), t.dtr...)
}

// Closed reports whether Close was called.
func (t *TestTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

package device

import (
	"io"
	"log/slog"
	"time"
)

// Lookup resolves a module error code (hex text as reported on the wire) to
// a human-readable description. Implementations must return a generic
// placeholder for unknown codes, never fail.
type Lookup func(code string) string

// NoDescription is what a nil Lookup resolves every code to.
const NoDescription = "(no description available)"

type Config struct {
	Dialer Dialer

	// CommandTimeout bounds the response read of an ordinary command.
	CommandTimeout time.Duration
	// EraseTimeout bounds the response read of the slow file system clear
	// command issued during Format.
	EraseTimeout time.Duration
	// RawTimeout bounds the response read of a caller-supplied raw command.
	RawTimeout time.Duration
	// RunWindow is how long Run watches for immediate program output.
	RunWindow time.Duration
	// RunReadLimit caps how many bytes of immediate output Run collects.
	RunReadLimit int

	// SettleDelay is how long the DTR line is held low during Reset.
	SettleDelay time.Duration
	// PostResetDelay is the pause after the factory reset command before
	// the module is probed again.
	PostResetDelay time.Duration
	// PollInterval is the pause between reads that returned no data.
	PollInterval time.Duration

	// DisableReset skips the DTR toggle in Reset. The session state still
	// advances, for modules that are reset by other means.
	DisableReset bool

	Lookup Lookup
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 500 * time.Millisecond
	}
	if c.EraseTimeout == 0 {
		c.EraseTimeout = 5 * time.Second
	}
	if c.RawTimeout == 0 {
		c.RawTimeout = 5 * time.Second
	}
	if c.RunWindow == 0 {
		c.RunWindow = 2 * time.Second
	}
	if c.RunReadLimit == 0 {
		c.RunReadLimit = 1024
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 100 * time.Millisecond
	}
	if c.PostResetDelay == 0 {
		c.PostResetDelay = 200 * time.Millisecond
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	if c.Lookup == nil {
		c.Lookup = func(string) string { return NoDescription }
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Package ctd drives a Sea-Bird SBE41 CTD (optionally with an SBE43
// oxygen sensor) over a half-duplex serial link.
//
// The Driver wakes the instrument, negotiates command mode, issues textual
// commands and validates the replies into typed measurements. Every
// operation returns a Result; see the Result constants for the taxonomy.
//
// A Driver assumes exclusive ownership of the link. It does no locking of
// its own: callers must serialise calls.
package ctd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/ctdlink/sbe"
)

// Driver talks to one CTD over one link.
type Driver struct {
	// port provides the physical link and control lines
	port Port
	// link implements byte and line I/O over port
	link *link
	// sampler activates samples with the control lines
	sampler Sampler
	// lexer validates replies
	lexer lexer
	// config contains the driver configuration settings
	config Config
	log    *slog.Logger
	// closed indicates if the driver has been shut down
	closed bool
}

// lexer is the part of sbe.Lexer the driver depends on.
type lexer interface {
	Loose(line string, n int) ([]string, sbe.Outcome)
	Strict(line string, layout sbe.Layout) sbe.Outcome
	Number(field string) (float64, bool)
	SerialNumber(line string) (int, sbe.Outcome)
	FirmwareRevision(line string) (string, sbe.Outcome)
}

// New creates a Driver with the given configuration. It opens the port
// through the configured Dialer; the instrument itself is not contacted
// until the first operation.
func New(ctx context.Context, config Config) (*Driver, error) {
	if config.dialer == nil {
		return nil, ErrNoDialer
	}
	config.setDefaults()

	port, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial ctd: %w", err)
	}
	if port == nil {
		return nil, ErrNotInitialized
	}

	d := &Driver{
		port:    port,
		link:    &link{t: port, keepalive: config.keepalive, pause: config.pausePeriod},
		sampler: config.sampler,
		lexer:   config.lexer,
		config:  config,
		log:     config.logger,
	}
	if d.sampler == nil {
		d.sampler = NewHardwareSampler(port, config.keepalive)
	}
	return d, nil
}

// Close releases the port. After calling Close, every operation returns
// NullArgument.
func (d *Driver) Close() error {
	if d == nil || d.port == nil {
		return ErrNotInitialized
	}
	if d.closed {
		return ErrAlreadyClosed
	}
	d.closed = true
	return d.port.Close()
}

// ready reports whether the driver can attempt I/O.
func (d *Driver) ready() bool {
	return d != nil && !d.closed && d.port != nil
}

func (d *Driver) keepalive() {
	d.config.keepalive()
}

func (d *Driver) enableIO() {
	if err := d.port.EnableIO(); err != nil {
		d.log.Warn("enable CTD I/O", "error", err)
	}
}

func (d *Driver) disableIO() {
	if err := d.port.DisableIO(); err != nil {
		d.log.Warn("disable CTD I/O", "error", err)
	}
}

// pulseWake holds the wake line for one wake period.
func (d *Driver) pulseWake(ctx context.Context) {
	if err := d.port.AssertWake(); err != nil {
		d.log.Warn("assert wake line", "error", err)
	}
	sleep(ctx, d.config.wakePulse)
	if err := d.port.ClearWake(); err != nil {
		d.log.Warn("clear wake line", "error", err)
	}
}

// putToSleep returns the instrument to command mode and powers it down,
// then disables I/O and lets the instrument settle. It runs even when ctx
// has been cancelled.
func (d *Driver) putToSleep(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := d.port.EnableIO(); err == nil &&
		d.chat(ctx, sbe.CmdWake, sbe.Prompt, d.config.commandTimeout) == Success {
		d.ExitCommandMode(ctx)
	}
	d.disableIO()
	sleep(ctx, d.config.settleDelay)
}

// deadline returns the end of a retry loop started now.
func (d *Driver) deadline() time.Time {
	return time.Now().Add(d.config.modeDeadline)
}

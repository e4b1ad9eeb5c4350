package ctd

import (
	"context"
	"time"

	"i4.energy/across/ctdlink/sbe"
)

// EnterCommandMode wakes the CTD into command mode and reads its serial
// number from the status dump.
//
// It keeps pulsing the wake line and asking for a prompt until the mode
// deadline elapses. Once the prompt is seen the status dump decides the
// result and no further wake attempts are made: Success with the serial
// number, RegexException if the serial-number pattern faulted,
// LooseMismatch if lines arrived but none carried a serial number, and
// NoResponse if no line arrived. Without a prompt the result is
// GeneralFailure, or ChatFailure if the last negotiation could not start.
// The caller must put the CTD back to sleep whatever the result.
func (d *Driver) EnterCommandMode(ctx context.Context) (int, Result) {
	if !d.ready() {
		return 0, NullArgument
	}
	log := d.log.With("op", "EnterCommandMode")

	if err := d.port.ClearModeSelect(); err != nil {
		log.Warn("clear mode-select line", "error", err)
	}
	d.enableIO()

	last := GeneralFailure
	deadline := d.deadline()
	for time.Now().Before(deadline) && ctx.Err() == nil {
		d.keepalive()
		d.pulseWake(ctx)

		last = d.chat(ctx, sbe.CmdWake, sbe.Prompt, d.config.commandTimeout)
		switch last {
		case ChatFailure:
			if !d.ready() {
				return 0, ChatFailure
			}
			log.Warn("chat failed, pulsing wake line again")
			continue
		case Success:
			serial, result := d.readSerialNumber(ctx)
			d.chat(ctx, sbe.CmdWake, sbe.Prompt, d.config.commandTimeout)
			if result == Success {
				log.Debug("command mode", "serial", serial)
			}
			return serial, result
		}
		log.Debug("no prompt, pulsing wake line again")
	}

	log.Warn("attempt to enter command mode failed", "result", last)
	if last == ChatFailure {
		return 0, ChatFailure
	}
	return 0, GeneralFailure
}

func (d *Driver) readSerialNumber(ctx context.Context) (int, Result) {
	log := d.log.With("op", "EnterCommandMode")

	if err := d.link.flushInput(); err != nil {
		log.Warn("flush input", "error", err)
	}
	if err := d.link.puts(ctx, sbe.CmdDisplayStatus); err != nil {
		log.Warn("attempt to send command failed", "cmd", sbe.CmdDisplayStatus, "error", err)
		return 0, NoResponse
	}

	result := NoResponse
	buf := make([]byte, d.config.maxLineLen)
	deadline := d.deadline()
	for time.Now().Before(deadline) {
		d.keepalive()
		n, err := d.link.readLine(ctx, buf, d.config.commandTimeout, sbe.CRLF)
		if n == 0 {
			if err != nil {
				log.Debug("read failed", "error", err)
			}
			break
		}
		line := string(buf[:n])

		serial, outcome := d.lexer.SerialNumber(line)
		switch outcome {
		case sbe.Matched:
			return serial, Success
		case sbe.EngineFault:
			log.Error("exception in serial number pattern", "line", line)
			result = RegexException
		default:
			result = LooseMismatch
		}
	}

	switch result {
	case NoResponse:
		log.Warn("no response from CTD")
	case LooseMismatch:
		log.Warn("serial number not found in status dump")
	}
	return 0, result
}

// ExitCommandMode sends the CTD back to sleep. It retries until a prompt
// is seen or the mode deadline elapses, and always finishes by disabling
// I/O and flushing whatever the CTD sent meanwhile. Cancellation of ctx
// does not cut the power-down short.
func (d *Driver) ExitCommandMode(ctx context.Context) Result {
	if !d.ready() {
		return NullArgument
	}
	ctx = context.WithoutCancel(ctx)
	log := d.log.With("op", "ExitCommandMode")

	if err := d.port.ClearModeSelect(); err != nil {
		log.Warn("clear mode-select line", "error", err)
	}
	d.enableIO()

	result := GeneralFailure
	deadline := d.deadline()
	for result != Success && time.Now().Before(deadline) {
		d.keepalive()
		if err := d.link.flushIO(); err != nil {
			log.Warn("flush IO buffers", "error", err)
		}
		if d.chat(ctx, sbe.CmdWake, sbe.Prompt, d.config.commandTimeout) == Success {
			if err := d.link.puts(ctx, sbe.CmdPowerDown); err != nil {
				log.Warn("attempt to send command failed", "cmd", sbe.CmdPowerDown, "error", err)
			}
			result = Success
		} else {
			d.pulseWake(ctx)
		}
	}

	d.disableIO()
	sleep(ctx, d.config.exitSettle)
	if err := d.link.flushIO(); err != nil {
		log.Warn("flush IO buffers", "error", err)
	}

	if result != Success {
		log.Warn("attempt to exit command mode failed")
	}
	return result
}

// SerialNumber enters command mode to read the serial number and then
// puts the CTD back to sleep.
func (d *Driver) SerialNumber(ctx context.Context) (int, Result) {
	if !d.ready() {
		return 0, NullArgument
	}
	defer d.putToSleep(ctx)
	return d.EnterCommandMode(ctx)
}

// PowerDown puts the CTD back to sleep if it answers at the prompt, then
// disables I/O. Call it after EnterCommandMode whatever that returned. It
// runs to completion even when ctx has been cancelled.
func (d *Driver) PowerDown(ctx context.Context) {
	if !d.ready() {
		return
	}
	d.putToSleep(ctx)
}

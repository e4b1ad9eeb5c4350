package ctd

import (
	"context"
	"time"

	"i4.energy/across/ctdlink/sbe"
)

const (
	firmwareLineTimeout = 3 * time.Second
	calibrationTimeout  = 60 * time.Second
)

// FirmwareRevision reads the firmware revision from the line that follows
// the status banner. The CTD is put back to sleep afterwards.
func (d *Driver) FirmwareRevision(ctx context.Context) (rev string, result Result) {
	if !d.ready() {
		return "", NullArgument
	}
	log := d.log.With("op", "FirmwareRevision")
	defer d.putToSleep(ctx)

	if _, result = d.EnterCommandMode(ctx); result != Success {
		return "", result
	}

	if d.chat(ctx, sbe.CmdDisplayStatus, sbe.FirmwareBanner, d.config.commandTimeout) != Success {
		log.Warn("no status banner from CTD")
		return "", NoResponse
	}

	buf := make([]byte, d.config.maxLineLen)
	n, err := d.link.readLine(ctx, buf, firmwareLineTimeout, sbe.CRLF)
	if n == 0 {
		log.Warn("no firmware line from CTD", "error", err)
		return "", NoResponse
	}
	line := string(buf[:n])

	rev, outcome := d.lexer.FirmwareRevision(line)
	switch outcome {
	case sbe.NoMatch:
		log.Warn("firmware revision not found", "line", line)
		return "", LooseMismatch
	case sbe.EngineFault:
		log.Error("exception in firmware pattern", "line", line)
		return "", RegexException
	}
	log.Info("firmware revision", "rev", rev)
	return rev, Success
}

// LogCalibration logs the calibration coefficients of the CTD and returns
// the lines as received. The CTD is put back to sleep afterwards.
func (d *Driver) LogCalibration(ctx context.Context) (lines []string, result Result) {
	if !d.ready() {
		return nil, NullArgument
	}
	log := d.log.With("op", "LogCalibration")
	defer d.putToSleep(ctx)

	if _, result = d.EnterCommandMode(ctx); result != Success {
		return nil, result
	}

	if err := d.link.flushInput(); err != nil {
		log.Warn("flush input", "error", err)
	}
	if err := d.link.puts(ctx, sbe.CmdDisplayCoefficients); err != nil {
		log.Warn("attempt to send command failed", "cmd", sbe.CmdDisplayCoefficients, "error", err)
		return nil, GeneralFailure
	}

	buf := make([]byte, d.config.maxLineLen)
	deadline := time.Now().Add(calibrationTimeout)
	for time.Now().Before(deadline) {
		d.keepalive()
		n, _ := d.link.readLine(ctx, buf, d.config.commandTimeout, sbe.CRLF)
		if n == 0 {
			break
		}
		line := string(buf[:n])

		switch sbe.Classify(line) {
		case sbe.TypePrompt:
			return lines, Success
		case sbe.TypeEcho:
			continue
		}
		log.Info("calibration", "line", line)
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		log.Warn("no response from CTD")
		return nil, NoResponse
	}
	return lines, Success
}

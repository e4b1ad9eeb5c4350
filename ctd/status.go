package ctd

import (
	"context"
	"strings"
	"time"

	"i4.energy/across/ctdlink/sbe"
)

// StatusField selects the fields a Status query must deliver.
type StatusField uint8

const (
	StatusSerialNumber StatusField = 1 << iota
	StatusPTPump
	StatusDensity
	StatusTimingDelays

	StatusAll = StatusSerialNumber | StatusPTPump | StatusDensity | StatusTimingDelays
)

// Status is the CTD configuration reported by the ds command. PTPump is
// set when low-power PT samples are preceded by a pump period.
type Status struct {
	SerialNumber Maybe[int]  `json:"serial_number"`
	PTPump       Maybe[bool] `json:"pt_pump"`
	Density      Maybe[bool] `json:"density"`
	TimingDelays Maybe[bool] `json:"timing_delays"`
}

// OxygenField selects the fields an OxygenStatus query must deliver.
type OxygenField uint8

const (
	OxygenNs OxygenField = 1 << iota
	OxygenNf
	OxygenTau20
	OxygenSerialNumber

	OxygenAll = OxygenNs | OxygenNf | OxygenTau20 | OxygenSerialNumber
)

// OxygenStatus holds the SBE43 coefficients reported by the dc command.
type OxygenStatus struct {
	Ns           Maybe[float64] `json:"ns"`
	Nf           Maybe[float64] `json:"nf"`
	Tau20        Maybe[float64] `json:"tau20"`
	SerialNumber Maybe[int]     `json:"serial_number"`
}

// Status queries the CTD configuration. The CTD must already be in command
// mode. The result is Success only if every field in want was reported.
func (d *Driver) Status(ctx context.Context, want StatusField) (Status, Result) {
	var st Status
	if !d.ready() || want == 0 {
		return st, NullArgument
	}

	result := d.query(ctx, "Status", sbe.CmdDisplayStatus, sbe.StatusSentinel, func(line string) {
		switch {
		case strings.Contains(line, sbe.LabelSerialNumber):
			st.SerialNumber = Some(sbe.Atoi(after(line, sbe.LabelSerialNumber)))
		case strings.Contains(line, sbe.LabelPTUnpumped):
			st.PTPump = Some(false)
		case strings.Contains(line, sbe.LabelPTPumped):
			st.PTPump = Some(true)
		case strings.Contains(line, sbe.LabelTimingDelaysOff):
			st.TimingDelays = Some(false)
		case strings.Contains(line, sbe.LabelTimingDelaysOn):
			st.TimingDelays = Some(true)
		case strings.Contains(line, sbe.LabelDensityOff):
			st.Density = Some(false)
		case strings.Contains(line, sbe.LabelDensityOn):
			st.Density = Some(true)
		}
	})

	if result == Success {
		missing := (want&StatusSerialNumber != 0 && !st.SerialNumber.Valid) ||
			(want&StatusPTPump != 0 && !st.PTPump.Valid) ||
			(want&StatusDensity != 0 && !st.Density.Valid) ||
			(want&StatusTimingDelays != 0 && !st.TimingDelays.Valid)
		if missing {
			d.log.Warn("requested status field not reported", "op", "Status")
			result = GeneralFailure
		}
	}
	return st, result
}

// OxygenStatus queries the SBE43 coefficients. The CTD must already be in
// command mode. The result is Success only if every field in want was
// reported.
func (d *Driver) OxygenStatus(ctx context.Context, want OxygenField) (OxygenStatus, Result) {
	var st OxygenStatus
	if !d.ready() || want == 0 {
		return st, NullArgument
	}

	result := d.query(ctx, "OxygenStatus", sbe.CmdDisplayCoefficients, sbe.OxygenSentinel, func(line string) {
		switch {
		case strings.Contains(line, sbe.LabelOxygenNs):
			st.Ns = Some(sbe.Atof(after(line, sbe.LabelOxygenNs)))
		case strings.Contains(line, sbe.LabelOxygenNf):
			st.Nf = Some(sbe.Atof(after(line, sbe.LabelOxygenNf)))
		case strings.Contains(line, sbe.LabelOxygenTau20):
			st.Tau20 = Some(sbe.Atof(after(line, sbe.LabelOxygenTau20)))
		case strings.Contains(line, sbe.LabelOxygenSerial):
			st.SerialNumber = Some(sbe.Atoi(after(line, sbe.LabelOxygenSerial)))
		}
	})
	if err := d.link.flushIO(); err != nil {
		d.log.Warn("flush IO buffers", "op", "OxygenStatus", "error", err)
	}

	if result == Success {
		missing := (want&OxygenNs != 0 && !st.Ns.Valid) ||
			(want&OxygenNf != 0 && !st.Nf.Valid) ||
			(want&OxygenTau20 != 0 && !st.Tau20.Valid) ||
			(want&OxygenSerialNumber != 0 && !st.SerialNumber.Valid)
		if missing {
			d.log.Warn("requested coefficient not reported", "op", "OxygenStatus")
			result = GeneralFailure
		}
	}
	return st, result
}

// query sends cmd at the prompt and hands every reply line to scan until
// a line containing sentinel has been scanned or the CTD falls silent. It
// makes up to the configured number of attempts and reports Success once
// an attempt produced a line before the sentinel.
func (d *Driver) query(ctx context.Context, op, cmd, sentinel string, scan func(line string)) Result {
	log := d.log.With("op", op)
	buf := make([]byte, d.config.maxLineLen)

	result := NoResponse
	for attempt := 0; attempt < d.config.statusAttempts && result != Success && ctx.Err() == nil; attempt++ {
		d.keepalive()
		if err := d.link.flushIO(); err != nil {
			log.Warn("flush IO buffers", "error", err)
		}
		if d.chat(ctx, sbe.CmdWake, sbe.Prompt, d.config.commandTimeout) != Success {
			log.Warn("no prompt from CTD", "attempt", attempt+1)
			continue
		}
		if err := d.link.puts(ctx, cmd); err != nil {
			log.Warn("attempt to send command failed", "cmd", cmd, "error", err)
			continue
		}

		deadline := d.deadline()
		for time.Now().Before(deadline) {
			d.keepalive()
			n, _ := d.link.readLine(ctx, buf, d.config.commandTimeout, sbe.CRLF)
			if n == 0 {
				break
			}
			line := string(buf[:n])
			log.Debug("received", "line", line)

			scan(line)
			if strings.Contains(line, sentinel) {
				break
			}
			result = Success
		}
	}

	if result == NoResponse {
		log.Warn("no response from CTD")
	}
	return result
}

// after returns the text of line that follows label.
func after(line, label string) string {
	_, rest, _ := strings.Cut(line, label)
	return rest
}

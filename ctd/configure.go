package ctd

import (
	"context"
	"math"

	"i4.energy/across/ctdlink/sbe"
)

// Configure sets up the CTD for profiling: sample replies in the s
// format, no density output, no timing delays and a pump period ahead of
// PT samples if ptPump is set. The settings are read back and verified.
// The CTD is put back to sleep afterwards whatever the outcome.
func (d *Driver) Configure(ctx context.Context, ptPump bool) (result Result) {
	if !d.ready() {
		return NullArgument
	}
	log := d.log.With("op", "Configure")
	defer func() {
		if result != Success {
			log.Error("attempt to set up CTD failed", "result", result)
		}
		d.putToSleep(ctx)
	}()

	if _, result = d.EnterCommandMode(ctx); result != Success {
		return result
	}

	commands := []string{
		sbe.CmdPumpFastPT(ptPump),
		sbe.CmdReplyFormatS,
		sbe.CmdOutputDensityOff,
		sbe.CmdTimingDelaysOff,
	}
	for _, cmd := range commands {
		if d.chat(ctx, cmd, sbe.Prompt, d.config.commandTimeout) != Success {
			log.Error("chat failed", "cmd", cmd)
			return ChatFailure
		}
	}

	st, result := d.Status(ctx, StatusPTPump|StatusDensity|StatusTimingDelays)
	if result != Success {
		log.Error("CTD status query failed", "result", result)
		return result
	}
	if st.PTPump.Value != ptPump || st.Density.Value || st.TimingDelays.Value {
		log.Error("CTD configuration not applied",
			"pt_pump", st.PTPump.Value,
			"density", st.Density.Value,
			"timing_delays", st.TimingDelays.Value)
		return GeneralFailure
	}

	log.Info("CTD configuration successful", "pt_pump", ptPump)
	return Success
}

// Nominal SBE43 coefficients written by ConfigureOxygen.
const (
	oxygenNf        = 2.0
	oxygenNs        = 0.0
	oxygenTolerance = 0.1
)

// ConfigureOxygen sets the SBE43 sample count coefficients, verifies them
// and returns the oxygen sensor serial number. The CTD is put back to
// sleep afterwards whatever the outcome.
func (d *Driver) ConfigureOxygen(ctx context.Context) (serial Maybe[int], result Result) {
	if !d.ready() {
		return serial, NullArgument
	}
	log := d.log.With("op", "ConfigureOxygen")
	defer func() {
		if result != Success {
			log.Error("attempt to set up SBE43 failed", "result", result)
		}
		d.putToSleep(ctx)
	}()

	if _, result = d.EnterCommandMode(ctx); result != Success {
		return serial, result
	}

	for _, cmd := range []string{sbe.CmdOxygenNf, sbe.CmdOxygenNs} {
		if d.chat(ctx, cmd, sbe.Prompt, d.config.commandTimeout) != Success {
			log.Error("chat failed", "cmd", cmd)
			return serial, ChatFailure
		}
	}

	st, result := d.OxygenStatus(ctx, OxygenAll)
	if result != Success {
		log.Error("SBE43 coefficient query failed", "result", result)
		return st.SerialNumber, result
	}
	if math.Abs(st.Nf.Value-oxygenNf) > oxygenTolerance || math.Abs(st.Ns.Value-oxygenNs) > oxygenTolerance {
		log.Error("SBE43 configuration not applied", "nf", st.Nf.Value, "ns", st.Ns.Value)
		return st.SerialNumber, GeneralFailure
	}

	log.Info("SBE43 configuration successful", "serial", st.SerialNumber.Value)
	return st.SerialNumber, Success
}

package ctd

import (
	"context"
	"strings"

	"i4.energy/across/ctdlink/sbe"
)

// Sample is one CTD measurement. Fields not carried by the reply, or not
// parsable, are unset.
type Sample struct {
	Pressure    Maybe[float64] `json:"pressure"`
	Temperature Maybe[float64] `json:"temperature"`
	Salinity    Maybe[float64] `json:"salinity"`
	Oxygen      Maybe[float64] `json:"oxygen"`
}

// GetP takes a pressure-only sample.
func (d *Driver) GetP(ctx context.Context) (Sample, Result) {
	return d.sample(ctx, "GetP", sbe.LayoutP, func(s Sampler, buf []byte) (int, error) {
		return s.SampleP(ctx, buf)
	})
}

// GetPT takes a low-power pressure and temperature sample.
func (d *Driver) GetPT(ctx context.Context) (Sample, Result) {
	return d.sample(ctx, "GetPT", sbe.LayoutPT, func(s Sampler, buf []byte) (int, error) {
		return s.SamplePT(ctx, buf)
	})
}

// GetPTS takes a full pressure, temperature and salinity sample.
func (d *Driver) GetPTS(ctx context.Context) (Sample, Result) {
	return d.sample(ctx, "GetPTS", sbe.LayoutPTS, func(s Sampler, buf []byte) (int, error) {
		return s.SamplePTS(ctx, buf, d.config.ptsTimeout)
	})
}

// GetPTSO takes a full sample including SBE43 oxygen. The oxygen sensor
// needs a long pump period, so the reply may take more than a minute. I/O
// is disabled afterwards.
func (d *Driver) GetPTSO(ctx context.Context) (Sample, Result) {
	if d.ready() {
		defer d.disableIO()
	}
	return d.sample(ctx, "GetPTSO", sbe.LayoutPTSO, func(s Sampler, buf []byte) (int, error) {
		return s.SamplePTS(ctx, buf, d.config.ptsoTimeout)
	})
}

func (d *Driver) sample(ctx context.Context, op string, layout sbe.Layout, activate func(Sampler, []byte) (int, error)) (Sample, Result) {
	if !d.ready() || d.sampler == nil {
		return Sample{}, NullArgument
	}
	log := d.log.With("op", op)
	d.keepalive()

	buf := make([]byte, d.config.maxLineLen)
	n, err := activate(d.sampler, buf)
	if n <= 0 {
		log.Warn("no response from CTD", "error", err)
		return Sample{}, NoResponse
	}
	if err != nil {
		log.Debug("partial reply", "error", err)
	}
	line := strings.TrimRight(string(buf[:n]), sbe.CRLF)

	values, result := d.validate(op, line, layout)
	var s Sample
	fields := []*Maybe[float64]{&s.Pressure, &s.Temperature, &s.Salinity, &s.Oxygen}
	for i, v := range values {
		*fields[i] = v
	}
	return s, result
}

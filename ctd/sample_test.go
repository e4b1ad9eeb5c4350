package ctd_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/ctdlink/ctd"
	"i4.energy/across/ctdlink/sim"
)

// reply returns a sampler action that stores line in the buffer.
func reply(line string) func(context.Context, []byte) (int, error) {
	return func(_ context.Context, buf []byte) (int, error) {
		return copy(buf, line), nil
	}
}

func replyPTS(line string) func(context.Context, []byte, time.Duration) (int, error) {
	return func(_ context.Context, buf []byte, _ time.Duration) (int, error) {
		return copy(buf, line), nil
	}
}

func newSamplerDriver(t *testing.T, sampler ctd.Sampler) *ctd.Driver {
	inst := sim.New(sim.DefaultSettings())
	return newSimDriver(t, inst, func(b *ctd.ConfigBuilder) {
		b.WithSampler(sampler)
	})
}

func TestGetPTSO(t *testing.T) {
	ctx := context.Background()

	t.Run("Well formed reply", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sampler := ctd.NewMockSampler(ctrl)
		sampler.EXPECT().SamplePTS(gomock.Any(), gomock.Any(), 300*time.Millisecond).
			DoAndReturn(replyPTS(" 23.45, -1.2345, 34.5678,  512"))
		d := newSamplerDriver(t, sampler)

		s, got := d.GetPTSO(ctx)

		if got != ctd.Success {
			t.Errorf("expected Success, got %v", got)
		}
		want := ctd.Sample{
			Pressure:    ctd.Some(23.45),
			Temperature: ctd.Some(-1.2345),
			Salinity:    ctd.Some(34.5678),
			Oxygen:      ctd.Some(512.0),
		}
		if s != want {
			t.Errorf("expected %+v, got %+v", want, s)
		}
	})

	t.Run("Strict violation keeps values", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sampler := ctd.NewMockSampler(ctrl)
		sampler.EXPECT().SamplePTS(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(replyPTS("23.4,-1.2345,34.5678,512"))
		d := newSamplerDriver(t, sampler)

		s, got := d.GetPTSO(ctx)

		if got != ctd.StrictMismatch {
			t.Errorf("expected StrictMismatch, got %v", got)
		}
		want := ctd.Sample{
			Pressure:    ctd.Some(23.4),
			Temperature: ctd.Some(-1.2345),
			Salinity:    ctd.Some(34.5678),
			Oxygen:      ctd.Some(512.0),
		}
		if s != want {
			t.Errorf("expected %+v, got %+v", want, s)
		}
	})

	t.Run("Empty reply", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sampler := ctd.NewMockSampler(ctrl)
		sampler.EXPECT().SamplePTS(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil)
		d := newSamplerDriver(t, sampler)

		s, got := d.GetPTSO(ctx)

		if got != ctd.NoResponse {
			t.Errorf("expected NoResponse, got %v", got)
		}
		for name, v := range map[string]ctd.Maybe[float64]{
			"pressure": s.Pressure, "temperature": s.Temperature,
			"salinity": s.Salinity, "oxygen": s.Oxygen,
		} {
			if !math.IsNaN(ctd.Float(v)) {
				t.Errorf("%s: expected NaN, got %v", name, ctd.Float(v))
			}
		}
	})

	t.Run("Sampler error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sampler := ctd.NewMockSampler(ctrl)
		sampler.EXPECT().SamplePTS(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, errors.New("line down"))
		d := newSamplerDriver(t, sampler)

		if _, got := d.GetPTSO(ctx); got != ctd.NoResponse {
			t.Errorf("expected NoResponse, got %v", got)
		}
	})
}

func TestGetPTS_FewerFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	sampler := ctd.NewMockSampler(ctrl)
	sampler.EXPECT().SamplePTS(gomock.Any(), gomock.Any(), 200*time.Millisecond).
		DoAndReturn(replyPTS(" 23.45, -1.2345"))
	d := newSamplerDriver(t, sampler)

	s, got := d.GetPTS(context.Background())

	if got != ctd.LooseMismatch {
		t.Errorf("expected LooseMismatch, got %v", got)
	}
	if s != (ctd.Sample{}) {
		t.Errorf("expected all values unset, got %+v", s)
	}
}

func TestGetP_GetPT(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	sampler := ctd.NewMockSampler(ctrl)
	sampler.EXPECT().SampleP(gomock.Any(), gomock.Any()).DoAndReturn(reply("  512.30\r\n"))
	sampler.EXPECT().SamplePT(gomock.Any(), gomock.Any()).DoAndReturn(reply("  512.30,  4.1000"))
	d := newSamplerDriver(t, sampler)

	p, got := d.GetP(ctx)
	if got != ctd.Success {
		t.Errorf("GetP: expected Success, got %v", got)
	}
	if p.Pressure != ctd.Some(512.3) || p.Temperature.Valid {
		t.Errorf("GetP: unexpected sample %+v", p)
	}

	pt, got := d.GetPT(ctx)
	if got != ctd.Success {
		t.Errorf("GetPT: expected Success, got %v", got)
	}
	if pt.Pressure != ctd.Some(512.3) || pt.Temperature != ctd.Some(4.1) || pt.Salinity.Valid {
		t.Errorf("GetPT: unexpected sample %+v", pt)
	}
}

func TestHardwareSampler(t *testing.T) {
	ctx := context.Background()
	inst := sim.New(sim.DefaultSettings())
	inst.SetThresholds(sim.Thresholds{P: 20 * time.Millisecond, PT: 80 * time.Millisecond})
	inst.SetReading(sim.Reading{Pressure: 1500.25, Temperature: 3.5, Salinity: 34.9, Oxygen: 1234})

	sampler := ctd.NewHardwareSampler(inst, nil)
	sampler.PulseP = 5 * time.Millisecond
	sampler.PulsePT = 40 * time.Millisecond
	sampler.PulsePTS = 120 * time.Millisecond
	sampler.ReplyTimeout = 200 * time.Millisecond
	d := newSimDriver(t, inst, func(b *ctd.ConfigBuilder) {
		b.WithSampler(sampler)
	})

	p, got := d.GetP(ctx)
	if got != ctd.Success || p.Pressure != ctd.Some(1500.25) {
		t.Errorf("GetP: got %v %+v", got, p)
	}

	pt, got := d.GetPT(ctx)
	if got != ctd.Success || pt.Temperature != ctd.Some(3.5) {
		t.Errorf("GetPT: got %v %+v", got, pt)
	}

	ptso, got := d.GetPTSO(ctx)
	if got != ctd.Success || ptso.Salinity != ctd.Some(34.9) || ptso.Oxygen != ctd.Some(1234.0) {
		t.Errorf("GetPTSO: got %v %+v", got, ptso)
	}

	want := []sim.SampleType{sim.SampleP, sim.SamplePT, sim.SamplePTS}
	samples := inst.Samples()
	if len(samples) != len(want) {
		t.Fatalf("expected samples %v, got %v", want, samples)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], samples[i])
		}
	}

	inst.Silence(sim.SamplePTS)
	if _, got := d.GetPTS(ctx); got != ctd.NoResponse {
		t.Errorf("silent GetPTS: expected NoResponse, got %v", got)
	}
}

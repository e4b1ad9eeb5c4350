package ctd_test

import (
	"context"
	"slices"
	"testing"

	"i4.energy/across/ctdlink/ctd"
	"i4.energy/across/ctdlink/sim"
)

func TestConfigure(t *testing.T) {
	ctx := context.Background()

	for _, ptPump := range []bool{true, false} {
		inst := sim.New(sim.DefaultSettings())
		d := newSimDriver(t, inst)

		if got := d.Configure(ctx, ptPump); got != ctd.Success {
			t.Fatalf("pt pump %v: expected Success, got %v", ptPump, got)
		}

		s := inst.Settings()
		if s.PTPump != ptPump || s.Density || s.TimingDelays || !s.ReplyFormatS {
			t.Errorf("pt pump %v: settings not applied: %+v", ptPump, s)
		}
		if inst.Awake() {
			t.Errorf("pt pump %v: expected instrument asleep after cleanup", ptPump)
		}
	}
}

func TestConfigure_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("GeneralFailure when settings do not stick", func(t *testing.T) {
		inst := sim.New(sim.DefaultSettings())
		inst.IgnoreSettings(true)
		d := newSimDriver(t, inst)

		if got := d.Configure(ctx, true); got != ctd.GeneralFailure {
			t.Errorf("expected GeneralFailure, got %v", got)
		}
		if inst.Awake() {
			t.Error("expected instrument asleep after cleanup")
		}
		if !slices.Contains(inst.Commands(), "qs") {
			t.Error("expected cleanup to power down the instrument")
		}
	})

	t.Run("GeneralFailure when the instrument never answers", func(t *testing.T) {
		inst := sim.New(sim.DefaultSettings())
		inst.FailPrompts(1000)
		d := newSimDriver(t, inst)

		if got := d.Configure(ctx, true); got != ctd.GeneralFailure {
			t.Errorf("expected GeneralFailure, got %v", got)
		}
	})
}

func TestConfigureOxygen(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies coefficients and returns the sensor serial", func(t *testing.T) {
		inst := sim.New(sim.DefaultSettings())
		d := newSimDriver(t, inst)

		serial, got := d.ConfigureOxygen(ctx)

		if got != ctd.Success {
			t.Fatalf("expected Success, got %v", got)
		}
		if serial != ctd.Some(567) {
			t.Errorf("expected serial 567, got %+v", serial)
		}
		s := inst.Settings()
		if s.Nf != 2.0 || s.Ns != 0.0 {
			t.Errorf("coefficients not applied: nf=%v ns=%v", s.Nf, s.Ns)
		}
	})

	t.Run("GeneralFailure when coefficients do not stick", func(t *testing.T) {
		inst := sim.New(sim.DefaultSettings())
		inst.IgnoreSettings(true)
		d := newSimDriver(t, inst)

		if _, got := d.ConfigureOxygen(ctx); got != ctd.GeneralFailure {
			t.Errorf("expected GeneralFailure, got %v", got)
		}
	})
}

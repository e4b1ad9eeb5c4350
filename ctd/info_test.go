package ctd_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"i4.energy/across/ctdlink/ctd"
	"i4.energy/across/ctdlink/sim"
)

func TestFirmwareRevision(t *testing.T) {
	settings := sim.DefaultSettings()
	settings.Firmware = "3.0c"
	inst := sim.New(settings)
	d := newSimDriver(t, inst)

	rev, got := d.FirmwareRevision(context.Background())

	if got != ctd.Success {
		t.Fatalf("expected Success, got %v", got)
	}
	if rev != "3.0c" {
		t.Errorf("expected revision 3.0c, got %q", rev)
	}
	if inst.Awake() {
		t.Error("expected instrument asleep after cleanup")
	}
}

func TestLogCalibration(t *testing.T) {
	t.Run("Returns coefficient lines without echo or prompt", func(t *testing.T) {
		inst := sim.New(sim.DefaultSettings())
		d := newSimDriver(t, inst)

		lines, got := d.LogCalibration(context.Background())

		if got != ctd.Success {
			t.Fatalf("expected Success, got %v", got)
		}
		if len(lines) == 0 {
			t.Fatal("expected calibration lines")
		}
		for _, line := range lines {
			if line == "dc" || strings.HasPrefix(line, "S>") {
				t.Errorf("unexpected line %q", line)
			}
		}
		if !strings.Contains(strings.Join(lines, "\n"), "TAU_20") {
			t.Errorf("expected oxygen coefficients, got %q", lines)
		}
	})

	t.Run("GeneralFailure when the instrument never wakes", func(t *testing.T) {
		inst := sim.New(sim.DefaultSettings())
		inst.FailPrompts(1000)
		d := newSimDriver(t, inst, func(b *ctd.ConfigBuilder) {
			b.WithModeDeadline(300 * time.Millisecond)
		})

		if _, got := d.LogCalibration(context.Background()); got != ctd.GeneralFailure {
			t.Errorf("expected GeneralFailure, got %v", got)
		}
	})
}

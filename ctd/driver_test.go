package ctd_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/ctdlink/ctd"
	"i4.energy/across/ctdlink/sim"
)

// newSimDriver returns a driver talking to inst with timings short enough
// for tests.
func newSimDriver(t *testing.T, inst *sim.Instrument, configure ...func(*ctd.ConfigBuilder)) *ctd.Driver {
	t.Helper()

	builder := ctd.NewConfigBuilder().
		WithDialer(inst).
		WithCommandTimeout(150 * time.Millisecond).
		WithModeDeadline(2 * time.Second).
		WithWakePulse(2 * time.Millisecond).
		WithSettleDelay(4 * time.Millisecond).
		WithPausePeriod(20 * time.Millisecond).
		WithSampleTimeouts(200*time.Millisecond, 300*time.Millisecond)
	for _, f := range configure {
		f(builder)
	}
	config, err := builder.Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}

	d, err := ctd.New(context.Background(), config)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("ErrNoDialer without dialer", func(t *testing.T) {
		_, err := ctd.New(ctx, ctd.Config{})

		if err != ctd.ErrNoDialer {
			t.Errorf("expected ErrNoDialer, got: %v", err)
		}
	})

	t.Run("Dial error is wrapped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dialer := ctd.NewMockDialer(ctrl)
		dialErr := errors.New("no such port")
		dialer.EXPECT().Dial(gomock.Any()).Return(nil, dialErr)

		config, err := ctd.NewConfigBuilder().WithDialer(dialer).Build()
		if err != nil {
			t.Fatal(err)
		}
		_, err = ctd.New(ctx, config)

		if !errors.Is(err, dialErr) {
			t.Errorf("expected wrapped dial error, got: %v", err)
		}
	})

	t.Run("ErrNotInitialized without port", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		dialer := ctd.NewMockDialer(ctrl)
		dialer.EXPECT().Dial(gomock.Any()).Return(nil, nil)

		config, err := ctd.NewConfigBuilder().WithDialer(dialer).Build()
		if err != nil {
			t.Fatal(err)
		}
		_, err = ctd.New(ctx, config)

		if err != ctd.ErrNotInitialized {
			t.Errorf("expected ErrNotInitialized, got: %v", err)
		}
	})
}

func TestDriver_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	port := ctd.NewMockPort(ctrl)
	port.EXPECT().Close().Return(nil).Times(1)
	dialer := ctd.NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any()).Return(port, nil)

	config, err := ctd.NewConfigBuilder().WithDialer(dialer).Build()
	if err != nil {
		t.Fatal(err)
	}
	d, err := ctd.New(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := d.Close(); err != ctd.ErrAlreadyClosed {
		t.Errorf("expected ErrAlreadyClosed, got: %v", err)
	}

	ctx := context.Background()
	if _, got := d.GetPTS(ctx); got != ctd.NullArgument {
		t.Errorf("GetPTS after Close: expected NullArgument, got %v", got)
	}
	if _, got := d.EnterCommandMode(ctx); got != ctd.NullArgument {
		t.Errorf("EnterCommandMode after Close: expected NullArgument, got %v", got)
	}
}

func TestNilDriver(t *testing.T) {
	var d *ctd.Driver
	ctx := context.Background()

	checks := map[string]ctd.Result{}
	_, checks["GetP"] = d.GetP(ctx)
	_, checks["GetPT"] = d.GetPT(ctx)
	_, checks["GetPTS"] = d.GetPTS(ctx)
	_, checks["GetPTSO"] = d.GetPTSO(ctx)
	_, checks["EnterCommandMode"] = d.EnterCommandMode(ctx)
	checks["ExitCommandMode"] = d.ExitCommandMode(ctx)
	_, checks["SerialNumber"] = d.SerialNumber(ctx)
	_, checks["Status"] = d.Status(ctx, ctd.StatusAll)
	_, checks["OxygenStatus"] = d.OxygenStatus(ctx, ctd.OxygenAll)
	checks["Configure"] = d.Configure(ctx, true)
	_, checks["ConfigureOxygen"] = d.ConfigureOxygen(ctx)
	_, checks["FirmwareRevision"] = d.FirmwareRevision(ctx)
	_, checks["LogCalibration"] = d.LogCalibration(ctx)

	for op, got := range checks {
		if got != ctd.NullArgument {
			t.Errorf("%s: expected NullArgument, got %v", op, got)
		}
	}

	d.PowerDown(ctx)
	if err := d.Close(); err != ctd.ErrNotInitialized {
		t.Errorf("Close: expected ErrNotInitialized, got %v", err)
	}
}

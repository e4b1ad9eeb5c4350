package ctd

import (
	"context"
	"io"
	"time"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_ctd.go -package=ctd

// Transport represents an established, bidirectional byte stream to a CTD.
//
// A Transport is assumed to be already connected and ready for use. Read
// must return (0, nil) once the read timeout elapses without data, as
// go.bug.st/serial ports do. Typical implementations include serial ports
// and the in-memory instrument emulator used for testing.
type Transport interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds every subsequent Read.
	SetReadTimeout(t time.Duration) error
	// ResetInputBuffer discards received but unread bytes.
	ResetInputBuffer() error
	// ResetOutputBuffer discards written but untransmitted bytes.
	ResetOutputBuffer() error
}

// Signals controls the hardware lines between the float controller and the
// CTD.
type Signals interface {
	// AssertWake and ClearWake drive the wake line. A one second pulse with
	// the mode-select line low puts the CTD into command mode.
	AssertWake() error
	ClearWake() error

	// AssertModeSelect and ClearModeSelect drive the mode-select line. It
	// must be low while entering or leaving command mode or the CTD starts
	// a full sample.
	AssertModeSelect() error
	ClearModeSelect() error

	// EnableIO and DisableIO power the CTD serial interface.
	EnableIO() error
	DisableIO() error
}

// Port is a Transport together with the control lines of the same link.
type Port interface {
	Transport
	Signals
}

// Dialer opens a Port to a CTD.
//
// Dialer abstracts how the instrument link is created (for example, via a
// serial port or the emulator) and is intended to be used during driver
// construction only.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Port. It
	// should respect cancellation of the context. Dial returns an error if
	// the port cannot be established.
	Dial(ctx context.Context) (Port, error)
}

// Sampler activates a sample with the hardware control lines and stores
// the single reply line in buf.
//
// Each method returns the number of bytes stored; zero bytes means the CTD
// did not answer.
type Sampler interface {
	// SampleP takes a pressure-only sample.
	SampleP(ctx context.Context, buf []byte) (int, error)
	// SamplePT takes a low-power pressure and temperature sample.
	SamplePT(ctx context.Context, buf []byte) (int, error)
	// SamplePTS takes a full sample. The reply carries P, T, S and, with an
	// oxygen sensor fitted, O; timeout covers the pump period.
	SamplePTS(ctx context.Context, buf []byte, timeout time.Duration) (int, error)
}

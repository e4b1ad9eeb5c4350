package ctd

import "errors"

var (
	// ErrNoDialer is returned when a Driver is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the instrument.
	ErrNoDialer = errors.New("ctd: no dialer configured")

	// ErrNotInitialized is returned when the Dialer produced no port.
	ErrNotInitialized = errors.New("ctd: driver not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Driver that has
	// already been closed.
	ErrAlreadyClosed = errors.New("ctd: driver already closed")

	// ErrIODisabled is returned by a SerialPort written to while its I/O is
	// disabled.
	ErrIODisabled = errors.New("ctd: serial I/O disabled")

	// ErrLineTooLong is returned when a reply line exceeds the buffer it is
	// read into. The truncated line is still returned.
	ErrLineTooLong = errors.New("ctd: reply line too long")
)

// Sentinels behind Result.Err.
var (
	ErrChatFailure     = errors.New("ctd: chat failed")
	ErrNoResponse      = errors.New("ctd: no response from instrument")
	ErrRegexException  = errors.New("ctd: loose pattern exception")
	ErrNullArgument    = errors.New("ctd: null argument")
	ErrLooseMismatch   = errors.New("ctd: loose mismatch or general failure")
	ErrStrictMismatch  = errors.New("ctd: reply failed strict validation")
	ErrStrictException = errors.New("ctd: strict pattern exception")
)

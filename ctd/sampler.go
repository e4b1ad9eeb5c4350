package ctd

import (
	"context"
	"fmt"
	"time"

	"i4.energy/across/ctdlink/sbe"
)

// Default wake pulse widths that select the sample type while the
// mode-select line is asserted.
const (
	DefaultPulseP   = 100 * time.Millisecond
	DefaultPulsePT  = 300 * time.Millisecond
	DefaultPulsePTS = 600 * time.Millisecond
)

// HardwareSampler activates samples with the control lines of a Port.
//
// A sample is requested by asserting the mode-select line and pulsing the
// wake line; the pulse width selects the sample type. The CTD answers with
// a single line.
type HardwareSampler struct {
	port Port
	link *link

	PulseP   time.Duration
	PulsePT  time.Duration
	PulsePTS time.Duration
	// ReplyTimeout bounds the wait for a P or PT reply.
	ReplyTimeout time.Duration
}

func NewHardwareSampler(port Port, keepalive func()) *HardwareSampler {
	if keepalive == nil {
		keepalive = func() {}
	}
	return &HardwareSampler{
		port:         port,
		link:         &link{t: port, keepalive: keepalive},
		PulseP:       DefaultPulseP,
		PulsePT:      DefaultPulsePT,
		PulsePTS:     DefaultPulsePTS,
		ReplyTimeout: 5 * time.Second,
	}
}

func (s *HardwareSampler) SampleP(ctx context.Context, buf []byte) (int, error) {
	return s.sample(ctx, buf, s.PulseP, s.ReplyTimeout)
}

func (s *HardwareSampler) SamplePT(ctx context.Context, buf []byte) (int, error) {
	return s.sample(ctx, buf, s.PulsePT, s.ReplyTimeout)
}

func (s *HardwareSampler) SamplePTS(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	return s.sample(ctx, buf, s.PulsePTS, timeout)
}

func (s *HardwareSampler) sample(ctx context.Context, buf []byte, pulse, timeout time.Duration) (int, error) {
	if err := s.port.EnableIO(); err != nil {
		return 0, fmt.Errorf("enable I/O: %w", err)
	}
	if err := s.link.flushInput(); err != nil {
		return 0, fmt.Errorf("flush input: %w", err)
	}

	if err := s.port.AssertModeSelect(); err != nil {
		return 0, fmt.Errorf("assert mode-select: %w", err)
	}
	defer s.port.ClearModeSelect()

	if err := s.port.AssertWake(); err != nil {
		return 0, fmt.Errorf("assert wake: %w", err)
	}
	sleep(ctx, pulse)
	if err := s.port.ClearWake(); err != nil {
		return 0, fmt.Errorf("clear wake: %w", err)
	}

	return s.link.readLine(ctx, buf, timeout, sbe.CRLF)
}

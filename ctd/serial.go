package ctd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialDialer opens a CTD link over a serial port using go.bug.st/serial.
//
// The modem control lines double as the CTD hardware lines: RTS drives the
// wake line and DTR the mode-select line.
type SerialDialer struct {
	PortName string
	BaudRate int
	// Mode overrides BaudRate when set.
	Mode *serial.Mode
}

// DefaultBaudRate is the factory setting of the SBE41 console port.
const DefaultBaudRate = 9600

func (d SerialDialer) Dial(ctx context.Context) (Port, error) {
	if ctx == nil {
		return nil, errors.New("ctd: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("ctd: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = DefaultBaudRate
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
			InitialStatusBits: &serial.ModemOutputBits{
				RTS: false,
				DTR: false,
			},
		}
	}

	p, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("ctd: open %s: %w", d.PortName, err)
	}
	return &SerialPort{port: p, name: d.PortName, enabled: true}, nil
}

// SerialPort is the Port returned by SerialDialer.
type SerialPort struct {
	port serial.Port
	name string

	mu      sync.Mutex
	enabled bool
}

func (p *SerialPort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

func (p *SerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	enabled := p.enabled
	p.mu.Unlock()
	if !enabled {
		return 0, ErrIODisabled
	}
	return p.port.Write(b)
}

func (p *SerialPort) Close() error {
	return p.port.Close()
}

func (p *SerialPort) SetReadTimeout(t time.Duration) error {
	return p.port.SetReadTimeout(t)
}

func (p *SerialPort) ResetInputBuffer() error {
	return p.port.ResetInputBuffer()
}

func (p *SerialPort) ResetOutputBuffer() error {
	return p.port.ResetOutputBuffer()
}

func (p *SerialPort) AssertWake() error { return p.port.SetRTS(true) }

func (p *SerialPort) ClearWake() error { return p.port.SetRTS(false) }

func (p *SerialPort) AssertModeSelect() error { return p.port.SetDTR(true) }

func (p *SerialPort) ClearModeSelect() error { return p.port.SetDTR(false) }

func (p *SerialPort) EnableIO() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = true
	return nil
}

// DisableIO gates writes and drops whatever the CTD sent meanwhile.
func (p *SerialPort) DisableIO() error {
	p.mu.Lock()
	p.enabled = false
	p.mu.Unlock()
	return p.port.ResetInputBuffer()
}

// Name returns the serial port name.
func (p *SerialPort) Name() string {
	return p.name
}

// Package sim emulates an SBE41 CTD, optionally fitted with an SBE43
// oxygen sensor, behind the ctd.Port interface. It is used as a test
// double and as a bench stand-in for the real instrument.
package sim

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"i4.energy/across/ctdlink/ctd"
	"i4.energy/across/ctdlink/sbe"
)

var ErrClosed = errors.New("sim: instrument closed")

// Settings is the configuration and calibration state of the emulated
// instrument.
type Settings struct {
	SerialNumber int
	Firmware     string

	PTPump       bool
	Density      bool
	TimingDelays bool
	ReplyFormatS bool

	// Oxygen reports whether an SBE43 is fitted.
	Oxygen       bool
	OxygenSerial int
	Ns           float64
	Nf           float64
	Tau20        float64
}

// DefaultSettings is a freshly calibrated SBE41CP with an SBE43.
func DefaultSettings() Settings {
	return Settings{
		SerialNumber: 1234,
		Firmware:     "2.5",
		PTPump:       false,
		Density:      true,
		TimingDelays: true,
		Oxygen:       true,
		OxygenSerial: 567,
		Ns:           0.5,
		Nf:           1.0,
		Tau20:        2.75,
	}
}

// Reading is the water the emulated instrument is sitting in.
type Reading struct {
	Pressure    float64
	Temperature float64
	Salinity    float64
	Oxygen      int
}

// SampleType is the kind of sample requested through the control lines.
type SampleType int

const (
	SampleP SampleType = iota
	SamplePT
	SamplePTS
)

func (t SampleType) String() string {
	switch t {
	case SampleP:
		return "P"
	case SamplePT:
		return "PT"
	case SamplePTS:
		return "PTS"
	default:
		return "?"
	}
}

// Thresholds classify a sampling wake pulse by its width: shorter than P
// requests a P sample, shorter than PT a PT sample, anything longer a full
// sample.
type Thresholds struct {
	P  time.Duration
	PT time.Duration
}

// DefaultThresholds sit between the default pulse widths of
// ctd.HardwareSampler.
var DefaultThresholds = Thresholds{
	P:  (ctd.DefaultPulseP + ctd.DefaultPulsePT) / 2,
	PT: (ctd.DefaultPulsePT + ctd.DefaultPulsePTS) / 2,
}

// Instrument is an emulated CTD. It implements ctd.Port and ctd.Dialer.
//
// The instrument sleeps until the wake line is pulsed with the mode-select
// line low, after which it answers commands until told to power down. A
// wake pulse with mode-select high requests a sample instead; the reply
// line is queued as soon as the pulse ends.
type Instrument struct {
	mu     sync.Mutex
	notify chan struct{}

	settings   Settings
	reading    Reading
	thresholds Thresholds

	rx          bytes.Buffer
	pending     []byte
	readTimeout time.Duration

	awake      bool
	wake       bool
	wakeAt     time.Time
	modeSelect bool
	ioEnabled  bool
	closed     bool

	promptFailures int
	dropWrites     bool
	ignoreSettings bool
	replies        map[SampleType]string
	commands       []string
	samples        []SampleType
}

// New returns a sleeping instrument with the given settings.
func New(settings Settings) *Instrument {
	return &Instrument{
		notify:     make(chan struct{}, 1),
		settings:   settings,
		reading:    Reading{Pressure: 1000.5, Temperature: 4.1234, Salinity: 34.5678, Oxygen: 2345},
		thresholds: DefaultThresholds,
		ioEnabled:  true,
		replies:    make(map[SampleType]string),
	}
}

// Dial returns the instrument itself.
func (i *Instrument) Dial(ctx context.Context) (ctd.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, ErrClosed
	}
	return i, nil
}

// FailPrompts makes the instrument ignore the next n wake pulses.
func (i *Instrument) FailPrompts(n int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.promptFailures = n
}

// DropWrites makes the instrument deaf: writes succeed but are discarded.
func (i *Instrument) DropWrites(drop bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.dropWrites = drop
}

// IgnoreSettings makes the instrument acknowledge setting commands
// without applying them.
func (i *Instrument) IgnoreSettings(ignore bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ignoreSettings = ignore
}

// SetReply overrides the reply line of a sample type. An empty line
// restores the reply generated from the current reading; use Silence to
// make the instrument ignore a sample request.
func (i *Instrument) SetReply(t SampleType, line string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if line == "" {
		delete(i.replies, t)
		return
	}
	i.replies[t] = line
}

// Silence makes the instrument ignore requests for samples of type t.
func (i *Instrument) Silence(t SampleType) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.replies[t] = silent
}

const silent = "\x00"

func (i *Instrument) SetReading(r Reading) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.reading = r
}

func (i *Instrument) SetThresholds(t Thresholds) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.thresholds = t
}

func (i *Instrument) Settings() Settings {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.settings
}

// Awake reports whether the instrument is in command mode.
func (i *Instrument) Awake() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.awake
}

// Commands returns every command line received in command mode.
func (i *Instrument) Commands() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.commands...)
}

// Samples returns the sample types requested so far.
func (i *Instrument) Samples() []SampleType {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]SampleType(nil), i.samples...)
}

// Read blocks until the instrument has output or the read timeout elapses,
// in which case it returns (0, nil) like a serial port.
func (i *Instrument) Read(p []byte) (int, error) {
	i.mu.Lock()
	timeout := i.readTimeout
	i.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		i.mu.Lock()
		if i.closed {
			i.mu.Unlock()
			return 0, ErrClosed
		}
		if i.rx.Len() > 0 {
			n, _ := i.rx.Read(p)
			i.mu.Unlock()
			return n, nil
		}
		i.mu.Unlock()

		select {
		case <-i.notify:
		case <-expired:
			return 0, nil
		}
	}
}

// Write accepts bytes from the host. Complete lines are executed as
// commands while the instrument is awake.
func (i *Instrument) Write(p []byte) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return 0, ErrClosed
	}
	if !i.ioEnabled {
		return 0, ctd.ErrIODisabled
	}
	if i.dropWrites {
		return len(p), nil
	}

	i.pending = append(i.pending, p...)
	end := bytes.LastIndexAny(i.pending, sbe.CRLF)
	if end < 0 {
		return len(p), nil
	}
	complete := i.pending[:end+1]
	i.pending = append([]byte(nil), i.pending[end+1:]...)

	scanner := bufio.NewScanner(bytes.NewReader(complete))
	scanner.Split(sbe.Splitter)
	for scanner.Scan() {
		i.execute(strings.TrimSpace(scanner.Text()))
	}
	return len(p), nil
}

func (i *Instrument) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	i.signal()
	return nil
}

func (i *Instrument) SetReadTimeout(t time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.readTimeout = t
	return nil
}

func (i *Instrument) ResetInputBuffer() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.rx.Reset()
	return nil
}

func (i *Instrument) ResetOutputBuffer() error {
	return nil
}

func (i *Instrument) AssertWake() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.wake {
		i.wake = true
		i.wakeAt = time.Now()
	}
	return nil
}

func (i *Instrument) ClearWake() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.wake {
		return nil
	}
	i.wake = false
	width := time.Since(i.wakeAt)

	if i.modeSelect {
		i.sample(width)
		return nil
	}
	if i.awake {
		return nil
	}
	if i.promptFailures > 0 {
		i.promptFailures--
		return nil
	}
	i.awake = true
	return nil
}

func (i *Instrument) AssertModeSelect() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.modeSelect = true
	return nil
}

func (i *Instrument) ClearModeSelect() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.modeSelect = false
	return nil
}

func (i *Instrument) EnableIO() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ioEnabled = true
	return nil
}

func (i *Instrument) DisableIO() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ioEnabled = false
	i.rx.Reset()
	return nil
}

// emit queues output for the host. The caller holds mu.
func (i *Instrument) emit(s string) {
	i.rx.WriteString(s)
	i.signal()
}

func (i *Instrument) signal() {
	select {
	case i.notify <- struct{}{}:
	default:
	}
}

// sample answers a sampling wake pulse. The caller holds mu.
func (i *Instrument) sample(width time.Duration) {
	t := SamplePTS
	switch {
	case width < i.thresholds.P:
		t = SampleP
	case width < i.thresholds.PT:
		t = SamplePT
	}
	i.samples = append(i.samples, t)
	i.awake = false

	line, ok := i.replies[t]
	if ok && line == silent {
		return
	}
	if !ok {
		line = i.format(t)
	}
	i.emit(line + sbe.CRLF)
}

// format renders the current reading the way the instrument pads its
// replies. The caller holds mu.
func (i *Instrument) format(t SampleType) string {
	r := i.reading
	switch t {
	case SampleP:
		return fmt.Sprintf(" %7.2f", r.Pressure)
	case SamplePT:
		return fmt.Sprintf(" %7.2f, %7.4f", r.Pressure, r.Temperature)
	}
	line := fmt.Sprintf(" %7.2f, %7.4f, %7.4f", r.Pressure, r.Temperature, r.Salinity)
	if i.settings.Oxygen {
		line += fmt.Sprintf(", %5d", r.Oxygen)
	}
	return line
}

// execute runs one command line. The caller holds mu.
func (i *Instrument) execute(cmd string) {
	if !i.awake {
		return
	}
	if cmd == "" {
		i.emit(sbe.Prompt)
		return
	}
	i.commands = append(i.commands, cmd)
	i.emit(cmd + sbe.CRLF)

	switch {
	case cmd == "ds":
		i.emit(i.statusDump())
	case cmd == "dc":
		i.emit(i.coefficientDump())
	case cmd == "qs":
		i.awake = false
		return
	case strings.Contains(cmd, "="):
		if !i.apply(cmd) {
			i.emit("?CMD" + sbe.CRLF)
		}
	default:
		i.emit("?CMD" + sbe.CRLF)
	}
	i.emit(sbe.Prompt)
}

// apply updates a setting. It reports whether the command was understood.
// The caller holds mu.
func (i *Instrument) apply(cmd string) bool {
	key, value, _ := strings.Cut(cmd, "=")
	if i.ignoreSettings {
		return true
	}
	s := &i.settings
	switch key {
	case "pumpfastpt":
		s.PTPump = value == "y"
	case "outputdensity":
		s.Density = value == "y"
	case "addtimingdelays":
		s.TimingDelays = value == "y"
	case "dsreplyformat":
		s.ReplyFormatS = value == "s"
	case "oxnf", "oxns":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		if key == "oxnf" {
			s.Nf = v
		} else {
			s.Ns = v
		}
	default:
		return false
	}
	return true
}

// statusDump renders the reply to ds. The caller holds mu.
func (i *Instrument) statusDump() string {
	s := i.settings
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString(sbe.CRLF)
	}

	line("SBE 41CP STD V %s  %s %04d", s.Firmware, sbe.LabelSerialNumber, s.SerialNumber)
	line("stop profile when pressure is less than = 2.0 decibars")
	if s.PTPump {
		line(sbe.LabelPTPumped)
	} else {
		line(sbe.LabelPTUnpumped)
	}
	line("automatic bin averaging when p < 2.0 disabled")
	if s.TimingDelays {
		line(sbe.LabelTimingDelaysOn)
	} else {
		line(sbe.LabelTimingDelaysOff)
	}
	if s.Density {
		line(sbe.LabelDensityOn)
	} else {
		line(sbe.LabelDensityOff)
	}
	return b.String()
}

// coefficientDump renders the reply to dc. The caller holds mu.
func (i *Instrument) coefficientDump() string {
	s := i.settings
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString(sbe.CRLF)
	}

	line("SBE 41CP STD V %s  %s %04d", s.Firmware, sbe.LabelSerialNumber, s.SerialNumber)
	line("temperature:  14-jan-24")
	line("    TA0 = -9.420702e-05")
	line("    TA1 =  2.937924e-04")
	line("conductivity:  14-jan-24")
	line("    G = -1.036689e+00")
	line("    H =  1.444342e-01")
	line("pressure S/N = 2704198, range = 2900 psia:  10-jan-24")
	line("    PA0 =  6.051729e-01")
	if s.Oxygen {
		line("SBE43 %s %04d:  11-jan-24", sbe.LabelOxygenSerial, s.OxygenSerial)
		line("    Soc =  4.450000e-01")
		line("    %s %.3e", sbe.LabelOxygenTau20, s.Tau20)
		line("    %s %.4e", sbe.LabelOxygenNs, s.Ns)
		line("    %s %.4e", sbe.LabelOxygenNf, s.Nf)
	}
	return b.String()
}

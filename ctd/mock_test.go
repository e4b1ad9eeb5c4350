package ctd

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/ctdlink/sbe"
)

// MockSequenceBuilder scripts the exchanges of a MockPort. Each step waits
// for the driver to write its command and then queues the reply for
// reading, one byte per Read like a serial port with a one byte buffer.
type MockSequenceBuilder struct {
	port *MockPort

	mu      sync.Mutex
	steps   []exchange
	pending []byte
	written []byte
	input   []byte

	flushErr      error
	flushFailures int
}

type exchange struct {
	cmd   string
	reply string
}

func NewMockSequence(t *testing.T) *MockSequenceBuilder {
	ctrl := gomock.NewController(t)
	b := &MockSequenceBuilder{port: NewMockPort(ctrl)}

	p := b.port.EXPECT()
	p.SetReadTimeout(gomock.Any()).Return(nil).AnyTimes()
	p.ResetInputBuffer().DoAndReturn(b.flushInput).AnyTimes()
	p.ResetOutputBuffer().Return(nil).AnyTimes()
	p.AssertWake().Return(nil).AnyTimes()
	p.ClearWake().Return(nil).AnyTimes()
	p.AssertModeSelect().Return(nil).AnyTimes()
	p.ClearModeSelect().Return(nil).AnyTimes()
	p.EnableIO().Return(nil).AnyTimes()
	p.DisableIO().Return(nil).AnyTimes()
	p.Read(gomock.Any()).DoAndReturn(b.read).AnyTimes()
	p.Write(gomock.Any()).DoAndReturn(b.write).AnyTimes()
	return b
}

// Prompt answers the next bare carriage return with the command prompt.
func (b *MockSequenceBuilder) Prompt() *MockSequenceBuilder {
	return b.Command(sbe.CmdWake, sbe.Prompt)
}

// Command answers cmd with reply.
func (b *MockSequenceBuilder) Command(cmd, reply string) *MockSequenceBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, exchange{cmd: cmd, reply: reply})
	return b
}

// Queue makes reply readable without waiting for a command.
func (b *MockSequenceBuilder) Queue(reply string) *MockSequenceBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.input = append(b.input, reply...)
	return b
}

// FailFlush makes every input flush fail with err.
func (b *MockSequenceBuilder) FailFlush(err error) *MockSequenceBuilder {
	return b.FailFlushes(-1, err)
}

// FailFlushes makes the next n input flushes fail with err. A negative n
// fails every flush.
func (b *MockSequenceBuilder) FailFlushes(n int, err error) *MockSequenceBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushErr = err
	b.flushFailures = n
	return b
}

func (b *MockSequenceBuilder) Build() *Driver {
	return newTestDriver(b.port)
}

// Written returns every byte the driver wrote.
func (b *MockSequenceBuilder) Written() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.written)
}

// Done reports whether every scripted exchange took place.
func (b *MockSequenceBuilder) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.steps) == 0
}

func (b *MockSequenceBuilder) write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.written = append(b.written, p...)
	b.pending = append(b.pending, p...)
	if len(b.steps) > 0 && string(b.pending) == b.steps[0].cmd {
		b.input = append(b.input, b.steps[0].reply...)
		b.steps = b.steps[1:]
		b.pending = nil
	} else if len(p) > 0 && (p[len(p)-1] == '\r' || p[len(p)-1] == '\n') {
		b.pending = nil
	}
	return len(p), nil
}

func (b *MockSequenceBuilder) read(p []byte) (int, error) {
	b.mu.Lock()
	if len(b.input) == 0 {
		b.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		return 0, nil
	}
	defer b.mu.Unlock()
	n := copy(p[:1], b.input)
	b.input = b.input[n:]
	return n, nil
}

func (b *MockSequenceBuilder) flushInput() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flushErr != nil && b.flushFailures != 0 {
		if b.flushFailures > 0 {
			b.flushFailures--
		}
		return b.flushErr
	}
	b.input = nil
	return nil
}

var errFlush = errors.New("flush failed")

// newTestDriver wires a driver around port with timings short enough for
// unit tests.
func newTestDriver(port Port) *Driver {
	config := Config{
		commandTimeout: 150 * time.Millisecond,
		modeDeadline:   time.Second,
		wakePulse:      time.Millisecond,
		settleDelay:    time.Millisecond,
		exitSettle:     time.Millisecond,
		pausePeriod:    5 * time.Millisecond,
		ioGuard:        time.Millisecond,
		ptsTimeout:     100 * time.Millisecond,
		ptsoTimeout:    100 * time.Millisecond,
	}
	config.setDefaults()
	return &Driver{
		port:    port,
		link:    &link{t: port, keepalive: config.keepalive, pause: config.pausePeriod},
		sampler: NewHardwareSampler(port, nil),
		lexer:   config.lexer,
		config:  config,
		log:     slog.New(slog.DiscardHandler),
	}
}

// fakeLexer forces the outcome of individual patterns.
type fakeLexer struct {
	*sbe.Lexer
	loose  sbe.Outcome
	strict sbe.Outcome
	serial sbe.Outcome
}

func (f fakeLexer) Loose(line string, n int) ([]string, sbe.Outcome) {
	if f.loose != sbe.Matched {
		return nil, f.loose
	}
	return f.Lexer.Loose(line, n)
}

func (f fakeLexer) Strict(line string, layout sbe.Layout) sbe.Outcome {
	if f.strict != sbe.Matched {
		return f.strict
	}
	return f.Lexer.Strict(line, layout)
}

func (f fakeLexer) SerialNumber(line string) (int, sbe.Outcome) {
	if f.serial != sbe.Matched {
		return 0, f.serial
	}
	return f.Lexer.SerialNumber(line)
}

package ctd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"i4.energy/across/ctdlink/sbe"
)

// maxByteWait caps a single byte read so that blocking loops keep petting
// the keepalive at least once per second.
const maxByteWait = time.Second

// link implements the byte and line primitives of the CTD serial protocol
// on top of a Transport.
type link struct {
	t         Transport
	keepalive func()
	pause     time.Duration
}

func (l *link) sendByte(b byte) error {
	n, err := l.t.Write([]byte{b})
	if err != nil {
		return err
	}
	if n != 1 {
		return io.ErrShortWrite
	}
	return nil
}

// recvByte waits up to timeout for a single byte. ok is false when the
// timeout elapsed first.
func (l *link) recvByte(timeout time.Duration) (b byte, ok bool, err error) {
	if err := l.t.SetReadTimeout(timeout); err != nil {
		return 0, false, fmt.Errorf("set read timeout: %w", err)
	}
	var p [1]byte
	n, err := l.t.Read(p[:])
	if n == 1 {
		return p[0], true, nil
	}
	return 0, false, err
}

// puts transmits s one byte at a time. Every pause marker in s is replaced
// by a wait of one pause period. Bytes already sent are not retracted when
// a later byte fails.
func (l *link) puts(ctx context.Context, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == sbe.Pause {
			l.keepalive()
			if !sleep(ctx, l.pause) {
				return ctx.Err()
			}
			continue
		}
		if err := l.sendByte(s[i]); err != nil {
			return fmt.Errorf("send %q: %w", s, err)
		}
	}
	return nil
}

// readLine reads one line into buf, waiting at most timeout overall.
// Leading terminator bytes are skipped and the terminating byte is not
// stored. It returns the number of bytes stored, which is non-zero for a
// partial line cut off by the timeout. A line longer than buf is truncated
// and reported with ErrLineTooLong.
func (l *link) readLine(ctx context.Context, buf []byte, timeout time.Duration, terminators string) (int, error) {
	deadline := time.Now().Add(timeout)
	n := 0
	for {
		l.keepalive()
		if err := ctx.Err(); err != nil {
			return n, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return n, nil
		}
		b, ok, err := l.recvByte(min(remaining, maxByteWait))
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		if strings.IndexByte(terminators, b) >= 0 {
			if n == 0 {
				continue
			}
			return n, nil
		}
		if n == len(buf) {
			return n, ErrLineTooLong
		}
		buf[n] = b
		n++
	}
}

func (l *link) flushInput() error {
	return l.t.ResetInputBuffer()
}

func (l *link) flushIO() error {
	if err := l.t.ResetInputBuffer(); err != nil {
		return err
	}
	return l.t.ResetOutputBuffer()
}

// sleep pauses for d or until ctx is done. It reports whether the full
// period elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package ctd

import (
	"context"
	"time"
)

// chat sends cmd to the CTD and waits up to timeout for expect to appear
// in the byte stream. The match is a rolling one: a mismatching byte
// restarts the comparison at the first byte of expect.
//
// chat returns ChatFailure when it cannot start (no port, non-positive
// timeout, flush error), GeneralFailure when the command cannot be sent or
// expect did not arrive in time, and Success otherwise. I/O is enabled on
// every exit.
func (d *Driver) chat(ctx context.Context, cmd, expect string, timeout time.Duration) Result {
	if !d.ready() {
		return ChatFailure
	}
	log := d.log.With("op", "chat")
	defer d.enableIO()

	if timeout <= 0 {
		log.Error("invalid time-out period", "timeout", timeout)
		return ChatFailure
	}
	if err := d.link.flushIO(); err != nil {
		log.Error("attempt to flush IO buffers failed", "error", err)
		return ChatFailure
	}

	// one second is too short to be reliable with a whole-second clock
	if timeout == time.Second {
		timeout = 2 * time.Second
	}

	d.enableIO()
	sleep(ctx, d.config.ioGuard)

	if err := d.link.puts(ctx, cmd); err != nil {
		log.Warn("attempt to send command failed", "cmd", cmd, "error", err)
		return GeneralFailure
	}
	if expect == "" {
		return Success
	}

	deadline := time.Now().Add(timeout)
	i := 0
	for {
		d.keepalive()
		if ctx.Err() != nil {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		b, ok, err := d.link.recvByte(min(remaining, maxByteWait))
		if err != nil {
			log.Debug("read failed", "error", err)
			break
		}
		if !ok {
			continue
		}
		if b == expect[i] {
			i++
		} else {
			i = 0
		}
		if i >= len(expect) {
			log.Debug("expected string received", "cmd", cmd, "expect", expect)
			return Success
		}
	}

	log.Warn("expected string not received", "cmd", cmd, "expect", expect)
	return GeneralFailure
}

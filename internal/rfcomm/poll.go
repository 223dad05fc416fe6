package rfcomm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pollSlice bounds a single poll(2) so cancellation is noticed promptly.
const pollSlice = 100 * time.Millisecond

// Advancer is a state machine stepped by readiness waits; both Connector
// and ChannelQuery implement it.
type Advancer interface {
	Advance() (Status, error)
}

// PollEvents maps i to poll(2) event bits.
func (i Interest) PollEvents() int16 {
	switch i {
	case Readable:
		return unix.POLLIN
	case Writable:
		return unix.POLLOUT
	}
	return 0
}

// Drive steps a until it completes, waiting on each requested fd with
// poll(2). Every wait registers a single fd for a single round. ctx bounds
// the whole sequence; on cancellation a is left as is and the caller
// should Release or Close it.
func Drive(ctx context.Context, a Advancer) error {
	for {
		st, err := a.Advance()
		if err != nil {
			return err
		}
		if st.Done() {
			return nil
		}
		if err := waitReady(ctx, st); err != nil {
			return err
		}
	}
}

func waitReady(ctx context.Context, st Status) error {
	fds := []unix.PollFd{{Fd: int32(st.Fd), Events: st.Interest.PollEvents()}}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rfcomm: wait for fd %d to become %s: %w", st.Fd, st.Interest, err)
		}
		timeout := pollSlice
		if d, ok := ctx.Deadline(); ok {
			if left := time.Until(d); left < timeout {
				timeout = max(left, 0)
			}
		}
		n, err := unix.Poll(fds, int(timeout.Milliseconds()))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return errnoError("poll()", err)
		}
		// POLLERR and POLLHUP count as ready too: the next Advance reports
		// the cause.
		if n > 0 {
			return nil
		}
	}
}

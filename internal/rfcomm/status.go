package rfcomm

import "fmt"

// Interest is the readiness a caller must wait for.
type Interest uint8

const (
	Readable Interest = iota + 1
	Writable
)

func (i Interest) String() string {
	switch i {
	case Readable:
		return "readable"
	case Writable:
		return "writable"
	default:
		return "none"
	}
}

// Status is the outcome of one Advance: either Done, or a request to wait
// until Fd becomes ready for Interest.
type Status struct {
	Fd       int
	Interest Interest
}

// Done reports whether the sequence has completed.
func (s Status) Done() bool { return s.Interest == 0 }

func (s Status) String() string {
	if s.Done() {
		return "done"
	}
	return fmt.Sprintf("wait %s fd=%d", s.Interest, s.Fd)
}

func waitFor(fd int, i Interest) Status {
	return Status{Fd: fd, Interest: i}
}

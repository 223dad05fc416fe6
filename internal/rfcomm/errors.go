package rfcomm

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Sentinel causes. They are always returned wrapped in *Error; test with
// errors.Is.
var (
	ErrInvalidAddress = errors.New("invalid device address")
	ErrTimeoutRange   = errors.New("timeout out of range")
	ErrNoService      = errors.New("serial port service not offered")
	ErrMalformedPDU   = errors.New("malformed SDP response")
	ErrSDPError       = errors.New("SDP server returned an error")
	ErrNoAdapter      = errors.New("no local Bluetooth adapter")
	ErrUnsupported    = errors.New("not supported on this platform")
)

// Kind classifies an Error.
type Kind int

const (
	// KindUnknown carries no detail.
	KindUnknown Kind = iota
	// KindErrno is an OS failure; Errno holds the code.
	KindErrno
	// KindDesc is a validation or protocol failure described by Msg.
	KindDesc
	// KindIO passes a lower-level I/O error through in Err.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindErrno:
		return "errno"
	case KindDesc:
		return "desc"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the error type returned by this package.
type Error struct {
	Kind  Kind
	Errno unix.Errno
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindErrno:
		return "rfcomm: " + e.Msg
	case KindDesc:
		if e.Err != nil {
			return "rfcomm: " + e.Msg + ": " + e.Err.Error()
		}
		return "rfcomm: " + e.Msg
	case KindIO:
		if e.Err != nil {
			return "rfcomm: " + e.Err.Error()
		}
	}
	return "rfcomm: unknown error"
}

// Unwrap exposes the errno for KindErrno and the cause otherwise, so
// errors.Is(err, unix.ECONNREFUSED) and errors.Is(err, ErrNoService) work.
func (e *Error) Unwrap() error {
	if e.Kind == KindErrno {
		return e.Errno
	}
	return e.Err
}

// errnoError describes a failed system call. op names the operation; the
// message reads "<op>: <strerror>". Errors without an errno pass through
// as KindIO.
func errnoError(op string, err error) *Error {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return &Error{Kind: KindErrno, Errno: errno, Msg: op + ": " + errno.Error()}
	}
	if err == nil {
		return &Error{Kind: KindUnknown}
	}
	return ioError(fmt.Errorf("%s: %w", op, err))
}

func descError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindDesc, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func ioError(err error) *Error {
	return &Error{Kind: KindIO, Err: err}
}

// asError keeps an *Error from a collaborator as is and classifies anything
// else with errnoError.
func asError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return errnoError(op, err)
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

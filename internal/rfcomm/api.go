// Package rfcomm connects RFCOMM (serial port) sockets to remote Bluetooth
// devices without blocking system calls.
//
// A Connector first asks the remote SDP server which RFCOMM channel carries
// the Serial Port service, then issues a non-blocking connect on the
// caller's socket and verifies its outcome. Every call to Advance either
// finishes or names exactly one file descriptor and the readiness the
// caller must wait for before calling Advance again:
//
//	c := rfcomm.NewConnector(sock, addr)
//	for {
//		st, err := c.Advance()
//		if err != nil {
//			return err
//		}
//		if st.Done() {
//			break
//		}
//		// register st.Fd for st.Interest (oneshot), wait, deregister
//	}
//	sock = c.Release()
//
// Drive runs that loop on top of poll(2) for callers without an event loop.
//
// Thread-safety: Connector and ChannelQuery are not safe for concurrent use.
// Separate connection attempts share no state.
package rfcomm

import (
	"io"
	"log"
)

const (
	// SPPUUID is the Serial Port Profile UUID used for RFCOMM connections.
	SPPUUID = "00001101-0000-1000-8000-00805f9b34fb"
)

// Protocol selects the kind of Bluetooth socket OpenSocket creates.
type Protocol int

const (
	// ProtoRFCOMM is a stream socket for serial data.
	ProtoRFCOMM Protocol = iota
	// ProtoL2CAP is a sequential-packet socket, used for the SDP control channel.
	ProtoL2CAP
)

func (p Protocol) String() string {
	switch p {
	case ProtoRFCOMM:
		return "RFCOMM"
	case ProtoL2CAP:
		return "L2CAP"
	default:
		return "unknown"
	}
}

// Endpoint is a remote socket address.
//
// Addr is in wire order (see Address.ToWireOrder); Port is the RFCOMM
// channel or the L2CAP PSM depending on the socket's protocol.
type Endpoint struct {
	Addr Address
	Port uint16
}

// Socket is the non-blocking socket primitive the state machines drive.
//
// Read, Write and Connect must not block; they report unix.EAGAIN and
// unix.EINPROGRESS respectively instead.
type Socket interface {
	Fd() int
	Connect(ep Endpoint) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// PeerName fails with unix.ENOTCONN while the socket is not connected.
	PeerName() (Endpoint, error)
	Close() error
}

// Opener creates an unconnected, non-blocking socket. OpenSocket is the
// platform implementation.
type Opener func(proto Protocol) (Socket, error)

// Option configures a Connector, a ChannelQuery or a scan.
type Option func(*options)

type options struct {
	open    Opener
	logger  *log.Logger
	channel uint8
}

// WithOpener replaces OpenSocket for the sockets a Connector or
// ChannelQuery creates on its own (the SDP control channel, and the target
// socket in Dial).
func WithOpener(open Opener) Option {
	return func(o *options) { o.open = open }
}

// WithLogger sets the logger for progress messages. The default discards.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithChannel skips the SDP lookup and connects straight to channel ch.
func WithChannel(ch uint8) Option {
	return func(o *options) { o.channel = ch }
}

func newOptions(opts []Option) options {
	o := options{
		open:   OpenSocket,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.open == nil {
		o.open = OpenSocket
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard, "", 0)
	}
	return o
}

package rfcomm

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/sys/unix"
)

type phase int

const (
	phaseSDP phase = iota
	phaseConnect
	phaseDone
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phaseSDP:
		return "sdp-search"
	case phaseConnect:
		return "connect"
	case phaseDone:
		return "done"
	case phaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Connector connects a caller-supplied RFCOMM socket to the Serial Port
// service of a remote device: SDP lookup of the channel, then a
// non-blocking connect.
type Connector struct {
	addr    Address
	sock    Socket
	query   *ChannelQuery
	phase   phase
	channel uint8
	pollfd  int
	log     *log.Logger
}

// NewConnector takes ownership of sock, an unconnected non-blocking RFCOMM
// socket, until Release hands it back.
func NewConnector(sock Socket, addr Address, opts ...Option) *Connector {
	o := newOptions(opts)
	c := &Connector{
		addr:    addr,
		sock:    sock,
		channel: o.channel,
		pollfd:  -1,
		log:     o.logger,
	}
	if c.channel == 0 {
		c.query = NewChannelQuery(addr, opts...)
	}
	return c
}

// Advance moves the connection attempt forward. It returns a Status naming
// the fd to wait on, a Done status once the socket is connected, or an
// error that ends the attempt. Calling it after Done or after an error
// panics: the attempt cannot be resumed, only restarted with a new
// Connector.
func (c *Connector) Advance() (st Status, err error) {
	switch c.phase {
	case phaseDone, phaseFailed:
		panic(fmt.Sprintf("rfcomm: Connector.Advance called in %s phase", c.phase))
	}
	defer func() {
		if err != nil {
			c.phase = phaseFailed
			c.dropQuery()
		}
	}()

	switch c.phase {
	case phaseSDP:
		if c.query != nil {
			st, err := c.query.Advance()
			if err != nil {
				return Status{}, err
			}
			if !st.Done() {
				c.pollfd = st.Fd
				return st, nil
			}
			c.channel = c.query.Channel()
			c.dropQuery()
		}
		return c.connect()

	case phaseConnect:
		if err := checkConnected(c.sock, "connect() to target device"); err != nil {
			return Status{}, err
		}
		c.phase = phaseDone
		c.log.Printf("rfcomm: connected to %s channel %d", c.addr, c.channel)
		return Status{}, nil
	}
	return Status{}, nil
}

func (c *Connector) connect() (Status, error) {
	c.pollfd = c.sock.Fd()
	err := c.sock.Connect(Endpoint{Addr: c.addr.ToWireOrder(), Port: uint16(c.channel)})
	switch {
	case err == nil:
		c.phase = phaseDone
		c.log.Printf("rfcomm: connected to %s channel %d", c.addr, c.channel)
		return Status{}, nil
	case errors.Is(err, unix.EINPROGRESS):
		c.phase = phaseConnect
		return waitFor(c.pollfd, Writable), nil
	default:
		return Status{}, errnoError("connect() to target device", err)
	}
}

// checkConnected verifies a non-blocking connect after the socket became
// writable. When the peer name is unavailable with ENOTCONN the connect
// failed, and a read on the socket yields the real error code.
func checkConnected(sock Socket, op string) error {
	_, err := sock.PeerName()
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.ENOTCONN) {
		return errnoError("getpeername()", err)
	}
	var probe [1]byte
	n, rerr := sock.Read(probe[:])
	if rerr == nil {
		panic(fmt.Sprintf("rfcomm: %s: read probe on an unconnected socket returned %d bytes", op, n))
	}
	return errnoError(op, rerr)
}

// Channel returns the RFCOMM channel in use: the configured one, or the one
// found by SDP.
func (c *Connector) Channel() uint8 { return c.channel }

// Fd returns the file descriptor of the most recent wait.
func (c *Connector) Fd() int { return c.pollfd }

// Release ends the Connector and returns the target socket, connected if
// Advance reported Done. Any SDP control socket still open is closed; the
// target socket is never closed here. Later calls return nil.
func (c *Connector) Release() Socket {
	c.dropQuery()
	if c.phase != phaseDone {
		c.phase = phaseFailed
	}
	sock := c.sock
	c.sock = nil
	return sock
}

func (c *Connector) dropQuery() {
	if c.query == nil {
		return
	}
	if err := c.query.Close(); err != nil {
		c.log.Printf("rfcomm: %v", err)
	}
	c.query = nil
}

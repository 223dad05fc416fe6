package rfcomm

import (
	"errors"
	"fmt"
	"io"
	"log"

	"bluetooth-serial/internal/sdp"

	"golang.org/x/sys/unix"
)

// maxAttributeBytes is the MaximumAttributeByteCount of every request; the
// server splits larger answers with continuation state anyway.
const maxAttributeBytes = 0xffff

// recvBufSize must hold a whole L2CAP packet: a short read on a
// SOCK_SEQPACKET socket drops the rest of the packet.
const recvBufSize = sdp.HeaderLen + 0xffff

type queryState int

const (
	queryAwaitConnect queryState = iota
	queryAwaitWritable
	queryAwaitReadable
	queryParsing
	queryDone
	queryFailed
)

func (s queryState) String() string {
	switch s {
	case queryAwaitConnect:
		return "await-connect"
	case queryAwaitWritable:
		return "await-writable"
	case queryAwaitReadable:
		return "await-readable"
	case queryParsing:
		return "parsing"
	case queryDone:
		return "done"
	case queryFailed:
		return "failed"
	}
	return fmt.Sprintf("queryState(%d)", int(s))
}

// ChannelQuery looks up the RFCOMM channel of the Serial Port service on a
// remote device over a dedicated SDP control socket. The control socket is
// single-use: after a failure, build a new ChannelQuery to retry.
type ChannelQuery struct {
	addr  Address
	open  Opener
	log   *log.Logger
	state queryState

	sock Socket
	tid  uint16

	buf  []byte // request being sent, then response being accumulated
	off  int    // request bytes already sent
	recv []byte

	lists   []byte // attribute lists gathered over all rounds
	rounds  int
	channel uint8
}

// NewChannelQuery prepares a lookup against addr. Nothing is opened until
// the first Advance.
func NewChannelQuery(addr Address, opts ...Option) *ChannelQuery {
	o := newOptions(opts)
	return &ChannelQuery{
		addr: addr,
		open: o.open,
		log:  o.logger,
	}
}

// Advance runs the lookup until it would block or completes. Calling it
// again after completion or after an error panics.
func (q *ChannelQuery) Advance() (st Status, err error) {
	if q.state == queryDone || q.state == queryFailed {
		panic(fmt.Sprintf("rfcomm: ChannelQuery.Advance called in %s state", q.state))
	}
	defer func() {
		if err != nil {
			q.state = queryFailed
			q.closeSocket()
		}
	}()

	for {
		var wait Status
		switch q.state {
		case queryAwaitConnect:
			wait, err = q.connect()
		case queryAwaitWritable:
			wait, err = q.send()
		case queryAwaitReadable:
			wait, err = q.receive()
		case queryParsing:
			err = q.parse()
		}
		if err != nil {
			return Status{}, err
		}
		if !wait.Done() {
			return wait, nil
		}
		if q.state == queryDone {
			return Status{}, nil
		}
	}
}

func (q *ChannelQuery) connect() (Status, error) {
	if q.sock == nil {
		sock, err := q.open(ProtoL2CAP)
		if err != nil {
			return Status{}, asError("open SDP control socket", err)
		}
		q.sock = sock
		err = sock.Connect(Endpoint{Addr: q.addr.ToWireOrder(), Port: sdp.PSM})
		switch {
		case err == nil:
		case errors.Is(err, unix.EINPROGRESS):
			q.log.Printf("rfcomm: SDP connect to %s in progress", q.addr)
			return waitFor(sock.Fd(), Writable), nil
		default:
			return Status{}, errnoError("connect() to SDP server", err)
		}
	} else if err := checkConnected(q.sock, "connect() to SDP server"); err != nil {
		return Status{}, err
	}
	return Status{}, q.request(nil)
}

// request builds the next ServiceSearchAttribute PDU, echoing cont.
func (q *ChannelQuery) request(cont []byte) error {
	q.tid++
	req := sdp.ServiceSearchAttributeRequest{
		TID:      q.tid,
		UUID:     sdp.SerialPortUUID,
		MaxBytes: maxAttributeBytes,
		AttrIDs:  []uint16{sdp.AttrProtocolDescriptorList},
		Cont:     cont,
	}
	pdu, err := req.Marshal()
	if err != nil {
		return descError(fmt.Errorf("%w: %w", ErrMalformedPDU, err), "build SDP request")
	}
	q.buf, q.off = pdu, 0
	q.rounds++
	q.state = queryAwaitWritable
	return nil
}

func (q *ChannelQuery) send() (Status, error) {
	n, err := q.sock.Write(q.buf[q.off:])
	switch {
	case wouldBlock(err):
		return waitFor(q.sock.Fd(), Writable), nil
	case errors.Is(err, unix.EINTR):
		return Status{}, nil
	case err != nil:
		return Status{}, errnoError("send() SDP request", err)
	}
	q.off += n
	if q.off == len(q.buf) {
		q.buf = q.buf[:0]
		q.state = queryAwaitReadable
	}
	return Status{}, nil
}

func (q *ChannelQuery) receive() (Status, error) {
	if q.recv == nil {
		q.recv = make([]byte, recvBufSize)
	}
	n, err := q.sock.Read(q.recv)
	switch {
	case wouldBlock(err):
		return waitFor(q.sock.Fd(), Readable), nil
	case errors.Is(err, unix.EINTR):
		return Status{}, nil
	case err != nil:
		return Status{}, errnoError("recv() SDP response", err)
	case n == 0:
		return Status{}, descError(io.ErrUnexpectedEOF, "SDP server at %s closed the connection", q.addr)
	}
	q.buf = append(q.buf, q.recv[:n]...)
	if total, ok := sdp.PDULen(q.buf); ok && len(q.buf) >= total {
		q.state = queryParsing
	}
	return Status{}, nil
}

func (q *ChannelQuery) parse() error {
	resp, err := sdp.ParseResponse(q.buf)
	if err != nil {
		var er *sdp.ErrorResponse
		if errors.As(err, &er) {
			return descError(fmt.Errorf("%w: %w", ErrSDPError, err), "service search on %s", q.addr)
		}
		return descError(fmt.Errorf("%w: %w", ErrMalformedPDU, err), "decode SDP response")
	}
	if resp.TID != q.tid {
		return descError(ErrMalformedPDU, "SDP response transaction id %d, want %d", resp.TID, q.tid)
	}
	q.lists = append(q.lists, resp.AttributeLists...)

	if len(resp.Cont) > 0 {
		q.log.Printf("rfcomm: SDP response from %s continues (round %d)", q.addr, q.rounds)
		return q.request(resp.Cont)
	}

	ch, err := sdp.RFCOMMChannel(q.lists)
	switch {
	case errors.Is(err, sdp.ErrNotFound):
		return descError(fmt.Errorf("%w: %w", ErrNoService, err), "lookup on %s", q.addr)
	case err != nil:
		return descError(fmt.Errorf("%w: %w", ErrMalformedPDU, err), "decode SDP attribute lists")
	}
	q.channel = ch
	q.state = queryDone
	q.closeSocket()
	q.log.Printf("rfcomm: %s offers the serial port on channel %d", q.addr, ch)
	return nil
}

// Channel returns the discovered channel; it is zero until Advance
// completes.
func (q *ChannelQuery) Channel() uint8 { return q.channel }

// Rounds reports how many requests have been issued, continuations included.
func (q *ChannelQuery) Rounds() int { return q.rounds }

// Close abandons the lookup and closes the control socket. It is safe to
// call more than once and after completion.
func (q *ChannelQuery) Close() error {
	if q.state != queryDone {
		q.state = queryFailed
	}
	if q.sock == nil {
		return nil
	}
	err := q.sock.Close()
	q.sock = nil
	if err != nil {
		return errnoError("close() SDP control socket", err)
	}
	return nil
}

func (q *ChannelQuery) closeSocket() {
	if q.sock == nil {
		return
	}
	if err := q.sock.Close(); err != nil {
		q.log.Printf("rfcomm: close SDP control socket: %v", err)
	}
	q.sock = nil
}

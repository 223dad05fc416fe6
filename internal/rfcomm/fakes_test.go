package rfcomm

import (
	"testing"

	"bluetooth-serial/internal/sdp"

	"golang.org/x/sys/unix"
)

type readResult struct {
	data []byte
	err  error
}

// fakeSocket is a scripted Socket. Reads are served from a queue; an empty
// queue reads as EAGAIN. When respond is set, every complete PDU written is
// handed to it and the returned results are queued for reading.
type fakeSocket struct {
	fd int

	connectErr error
	connects   []Endpoint

	peerErr error

	writeLimit int // bytes accepted per Write; 0 means all
	sent       []byte
	requests   [][]byte
	respond    func(req []byte) []readResult

	reads []readResult

	closed int
}

func (s *fakeSocket) Fd() int { return s.fd }

func (s *fakeSocket) Connect(ep Endpoint) error {
	s.connects = append(s.connects, ep)
	return s.connectErr
}

func (s *fakeSocket) Write(p []byte) (int, error) {
	n := len(p)
	if s.writeLimit > 0 && n > s.writeLimit {
		n = s.writeLimit
	}
	s.sent = append(s.sent, p[:n]...)
	if total, ok := sdp.PDULen(s.sent); ok && len(s.sent) >= total {
		req := append([]byte(nil), s.sent[:total]...)
		s.sent = s.sent[total:]
		s.requests = append(s.requests, req)
		if s.respond != nil {
			s.reads = append(s.reads, s.respond(req)...)
		}
	}
	return n, nil
}

func (s *fakeSocket) Read(p []byte) (int, error) {
	if len(s.reads) == 0 {
		return 0, unix.EAGAIN
	}
	r := s.reads[0]
	s.reads = s.reads[1:]
	if r.err != nil {
		return 0, r.err
	}
	return copy(p, r.data), nil
}

func (s *fakeSocket) PeerName() (Endpoint, error) {
	if s.peerErr != nil {
		return Endpoint{}, s.peerErr
	}
	return Endpoint{}, nil
}

func (s *fakeSocket) Close() error {
	s.closed++
	return nil
}

// openerFor serves ctrl for every L2CAP open and target for RFCOMM opens.
func openerFor(t *testing.T, ctrl, target *fakeSocket) (Opener, *int) {
	t.Helper()
	opens := 0
	return func(proto Protocol) (Socket, error) {
		opens++
		switch proto {
		case ProtoL2CAP:
			if ctrl == nil {
				t.Fatalf("unexpected L2CAP open")
			}
			return ctrl, nil
		default:
			if target == nil {
				t.Fatalf("unexpected %v open", proto)
			}
			return target, nil
		}
	}, &opens
}

func sppAttributeLists(channel uint8) []byte {
	return sdp.Seq(sdp.Seq(
		sdp.Uint16(0x0001), sdp.Seq(sdp.UUID16(sdp.SerialPortUUID)),
		sdp.Uint16(sdp.AttrProtocolDescriptorList), sdp.Seq(
			sdp.Seq(sdp.UUID16(sdp.L2CAPUUID)),
			sdp.Seq(sdp.UUID16(sdp.RFCOMMUUID), sdp.Uint8(channel)),
		),
	))
}

// fragmentedResponder answers with lists split into len(tokens)+1
// fragments; fragment i carries continuation tokens[i]. Each answer is
// delivered in two reads with an EAGAIN in front of each.
func fragmentedResponder(t *testing.T, lists []byte, tokens ...[]byte) func([]byte) []readResult {
	t.Helper()
	parts := len(tokens) + 1
	size := (len(lists) + parts - 1) / parts
	round := 0
	return func(raw []byte) []readResult {
		req, err := sdp.ParseRequest(raw)
		if err != nil {
			t.Fatalf("responder: %v", err)
		}
		if round >= parts {
			t.Fatalf("responder: unexpected request %d", round+1)
		}
		lo := min(round*size, len(lists))
		hi := min(lo+size, len(lists))
		resp := sdp.Response{TID: req.TID, AttributeLists: lists[lo:hi]}
		if round < len(tokens) {
			resp.Cont = tokens[round]
		}
		round++
		pdu, err := resp.Marshal()
		if err != nil {
			t.Fatalf("responder: %v", err)
		}
		half := len(pdu) / 2
		return []readResult{
			{err: unix.EAGAIN},
			{data: pdu[:half]},
			{err: unix.EAGAIN},
			{data: pdu[half:]},
		}
	}
}

// advanceAll steps a until it is done or fails, collecting every wait.
func advanceAll(t *testing.T, a Advancer) ([]Status, error) {
	t.Helper()
	var waits []Status
	for i := 0; i < 100; i++ {
		st, err := a.Advance()
		if err != nil {
			return waits, err
		}
		if st.Done() {
			return waits, nil
		}
		waits = append(waits, st)
	}
	t.Fatal("state machine did not finish in 100 steps")
	return nil, nil
}

func mustPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	f()
}

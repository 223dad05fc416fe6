//go:build linux

package rfcomm

import (
	"errors"

	"golang.org/x/sys/unix"
)

// bluezSocket is an AF_BLUETOOTH socket created non-blocking.
type bluezSocket struct {
	fd    int
	proto Protocol
}

// OpenSocket creates an unconnected, non-blocking Bluetooth socket: a
// stream socket for ProtoRFCOMM, a sequential-packet socket for ProtoL2CAP.
func OpenSocket(proto Protocol) (Socket, error) {
	var typ, btproto int
	switch proto {
	case ProtoRFCOMM:
		typ, btproto = unix.SOCK_STREAM, unix.BTPROTO_RFCOMM
	case ProtoL2CAP:
		typ, btproto = unix.SOCK_SEQPACKET, unix.BTPROTO_L2CAP
	default:
		return nil, descError(ErrUnsupported, "open socket: protocol %v", proto)
	}
	fd, err := unix.Socket(unix.AF_BLUETOOTH, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, btproto)
	if err != nil {
		return nil, errnoError("create Bluetooth socket", err)
	}
	return &bluezSocket{fd: fd, proto: proto}, nil
}

func (s *bluezSocket) Fd() int { return s.fd }

func (s *bluezSocket) Connect(ep Endpoint) error {
	return unix.Connect(s.fd, s.sockaddr(ep))
}

func (s *bluezSocket) sockaddr(ep Endpoint) unix.Sockaddr {
	if s.proto == ProtoL2CAP {
		// SockaddrL2 reverses Addr itself; undo that so the wire-order
		// bytes reach the kernel unchanged.
		return &unix.SockaddrL2{PSM: ep.Port, Addr: [6]uint8(reverse(ep.Addr))}
	}
	return &unix.SockaddrRFCOMM{Addr: [6]uint8(ep.Addr), Channel: uint8(ep.Port)}
}

func (s *bluezSocket) Read(p []byte) (int, error) {
	return unix.Read(s.fd, p)
}

func (s *bluezSocket) Write(p []byte) (int, error) {
	return unix.Write(s.fd, p)
}

func (s *bluezSocket) PeerName() (Endpoint, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		// getpeername succeeded if only the address family is unknown.
		if errors.Is(err, unix.EAFNOSUPPORT) {
			return Endpoint{}, nil
		}
		return Endpoint{}, err
	}
	switch v := sa.(type) {
	case *unix.SockaddrRFCOMM:
		return Endpoint{Addr: Address(v.Addr), Port: uint16(v.Channel)}, nil
	case *unix.SockaddrL2:
		return Endpoint{Addr: reverse(Address(v.Addr)), Port: v.PSM}, nil
	}
	return Endpoint{}, nil
}

func (s *bluezSocket) Close() error {
	return unix.Close(s.fd)
}

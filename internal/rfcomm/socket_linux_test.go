//go:build linux

package rfcomm

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestSockaddr(t *testing.T) {
	ep := Endpoint{Addr: testAddr.ToWireOrder(), Port: 1}

	l2 := (&bluezSocket{proto: ProtoL2CAP}).sockaddr(ep)
	sl2, ok := l2.(*unix.SockaddrL2)
	if !ok {
		t.Fatalf("L2CAP sockaddr is %T", l2)
	}
	// x/sys reverses SockaddrL2.Addr when encoding it.
	if Address(sl2.Addr) != reverse(ep.Addr) || sl2.PSM != 1 {
		t.Fatalf("SockaddrL2 = %+v", sl2)
	}

	rc := (&bluezSocket{proto: ProtoRFCOMM}).sockaddr(Endpoint{Addr: ep.Addr, Port: 7})
	src, ok := rc.(*unix.SockaddrRFCOMM)
	if !ok {
		t.Fatalf("RFCOMM sockaddr is %T", rc)
	}
	if Address(src.Addr) != ep.Addr || src.Channel != 7 {
		t.Fatalf("SockaddrRFCOMM = %+v", src)
	}
}

func TestOpenSocketRejectsUnknownProtocol(t *testing.T) {
	if _, err := OpenSocket(Protocol(99)); err == nil {
		t.Fatal("OpenSocket accepted an unknown protocol")
	}
}

//go:build !linux

package rfcomm

import "runtime"

// OpenSocket always fails: Bluetooth sockets are Linux only.
func OpenSocket(proto Protocol) (Socket, error) {
	return nil, descError(ErrUnsupported, "open %v socket on %s", proto, runtime.GOOS)
}

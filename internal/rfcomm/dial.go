package rfcomm

import (
	"context"
	"os"

	"go.uber.org/multierr"
)

// Dial opens an RFCOMM socket and connects it to the Serial Port service
// of addr, blocking until the connection is up, it fails, or ctx ends.
// The returned file owns the socket; the caller must close it.
func Dial(ctx context.Context, addr Address, opts ...Option) (*os.File, error) {
	o := newOptions(opts)
	sock, err := o.open(ProtoRFCOMM)
	if err != nil {
		return nil, asError("open RFCOMM socket", err)
	}

	c := NewConnector(sock, addr, opts...)
	if err := Drive(ctx, c); err != nil {
		if cerr := c.Release().Close(); cerr != nil {
			err = multierr.Append(err, errnoError("close() RFCOMM socket", cerr))
		}
		return nil, err
	}
	sock = c.Release()
	o.logger.Printf("rfcomm: %s ready on fd %d", addr, sock.Fd())
	return os.NewFile(uintptr(sock.Fd()), "rfcomm"), nil
}

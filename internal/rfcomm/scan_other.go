//go:build !linux

package rfcomm

import (
	"context"
	"runtime"
	"time"
)

// ScanDevices always fails: device inquiry goes through BlueZ.
func ScanDevices(ctx context.Context, timeout time.Duration, opts ...Option) ([]Device, error) {
	if err := checkScanTimeout(timeout); err != nil {
		return nil, err
	}
	return nil, descError(ErrUnsupported, "scan on %s", runtime.GOOS)
}

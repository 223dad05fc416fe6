package rfcomm

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const unknownName = "[unknown]"

// Device is a remote device found by ScanDevices.
type Device struct {
	Name string
	Addr Address
	// Serial is set when the device advertises the Serial Port Profile.
	Serial bool
}

func (d Device) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Addr)
}

// checkScanTimeout rejects timeouts whose whole seconds do not fit in 32 bits.
func checkScanTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return descError(ErrTimeoutRange, "negative scan timeout %v", timeout)
	}
	secs := uint64(timeout / time.Second)
	if secs > math.MaxUint32 {
		return descError(ErrTimeoutRange, "timeout value too big %d > %d", secs, uint64(math.MaxUint32))
	}
	return nil
}

func sortDevices(devs []Device) {
	sort.Slice(devs, func(i, j int) bool {
		return Compare(devs[i].Addr, devs[j].Addr) < 0
	})
}

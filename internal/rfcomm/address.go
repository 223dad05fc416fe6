package rfcomm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Address is a 6-byte Bluetooth device address in display (network) order,
// i.e. Address{0x00, 0x16, ...} prints as "00:16:...".
type Address [6]byte

// hostLittleEndian selects the wire order of addresses. Kernel structures
// hold the address in host byte order.
var hostLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// AnyAddress returns 00:00:00:00:00:00, which never names a real device.
func AnyAddress() Address { return Address{} }

// ParseAddress parses "XX:XX:XX:XX:XX:XX" with exactly two hex digits per
// group, in either case.
func ParseAddress(s string) (Address, error) {
	var a Address
	groups := strings.Split(s, ":")
	if len(groups) != len(a) {
		return Address{}, descError(ErrInvalidAddress, "parse address %q: want 6 groups, have %d", s, len(groups))
	}
	for i, g := range groups {
		if len(g) != 2 {
			return Address{}, descError(ErrInvalidAddress, "parse address %q: group %d is not two hex digits", s, i+1)
		}
		hi, ok1 := fromHex(g[0])
		lo, ok2 := fromHex(g[1])
		if !ok1 || !ok2 {
			return Address{}, descError(ErrInvalidAddress, "parse address %q: group %d is not hex", s, i+1)
		}
		a[i] = hi<<4 | lo
	}
	return a, nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// String formats the address as uppercase, colon-separated hex.
func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsAny reports whether a is the all-zero sentinel.
func (a Address) IsAny() bool { return a == Address{} }

// ToWireOrder converts a to the byte order used inside kernel socket
// addresses. On little-endian hosts the bytes are reversed.
func (a Address) ToWireOrder() Address {
	if !hostLittleEndian {
		return a
	}
	return reverse(a)
}

// FromWireOrder is the inverse of ToWireOrder (and the same operation).
func (a Address) FromWireOrder() Address {
	return a.ToWireOrder()
}

func reverse(a Address) Address {
	a[0], a[5] = a[5], a[0]
	a[1], a[4] = a[4], a[1]
	a[2], a[3] = a[3], a[2]
	return a
}

// Compare orders addresses byte-wise, returning -1, 0 or +1.
func Compare(a, b Address) int {
	return bytes.Compare(a[:], b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

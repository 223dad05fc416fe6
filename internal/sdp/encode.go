package sdp

import "encoding/binary"

// Encoded data elements. Requests are built from these, and so are the
// records a local responder would return.

// Uint8 encodes an 8-bit unsigned integer element.
func Uint8(v uint8) []byte { return []byte{byte(typeUint)<<3 | sizeIdx1, v} }

// Uint16 encodes a 16-bit unsigned integer element.
func Uint16(v uint16) []byte {
	return binary.BigEndian.AppendUint16([]byte{byte(typeUint)<<3 | sizeIdx2}, v)
}

// UUID16 encodes a short UUID element.
func UUID16(v uint16) []byte {
	return binary.BigEndian.AppendUint16([]byte{byte(typeUUID)<<3 | sizeIdx2}, v)
}

// UUID128 encodes a full UUID element.
func UUID128(v [16]byte) []byte {
	return append([]byte{byte(typeUUID)<<3 | sizeIdx16}, v[:]...)
}

// Seq encodes a data element sequence of already encoded elements.
func Seq(items ...[]byte) []byte {
	return container(typeSequence, items)
}

// Alt encodes a data element alternative of already encoded elements.
func Alt(items ...[]byte) []byte {
	return container(typeAlternative, items)
}

func container(t Type, items [][]byte) []byte {
	n := 0
	for _, it := range items {
		n += len(it)
	}
	var b []byte
	switch {
	case n <= 0xff:
		b = append(make([]byte, 0, 2+n), byte(t)<<3|sizeIdxLen8, byte(n))
	case n <= 0xffff:
		b = append(make([]byte, 0, 3+n), byte(t)<<3|sizeIdxLen16)
		b = binary.BigEndian.AppendUint16(b, uint16(n))
	default:
		b = append(make([]byte, 0, 5+n), byte(t)<<3|sizeIdxLen32)
		b = binary.BigEndian.AppendUint32(b, uint32(n))
	}
	for _, it := range items {
		b = append(b, it...)
	}
	return b
}

package sdp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Type is the 5-bit type descriptor of a data element.
type Type uint8

const (
	typeNil Type = iota
	typeUint
	typeInt
	typeUUID
	typeText
	typeBool
	typeSequence
	typeAlternative
	typeURL
)

// Size indices 0-4 are fixed widths; 5-7 prefix the data with an 8, 16 or
// 32-bit length.
const (
	sizeIdx1 = iota
	sizeIdx2
	sizeIdx4
	sizeIdx8
	sizeIdx16
	sizeIdxLen8
	sizeIdxLen16
	sizeIdxLen32
)

const maxDepth = 16

var baseUUIDTail = []byte{0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb}

func (t Type) String() string {
	switch t {
	case typeNil:
		return "nil"
	case typeUint:
		return "uint"
	case typeInt:
		return "int"
	case typeUUID:
		return "uuid"
	case typeText:
		return "text"
	case typeBool:
		return "bool"
	case typeSequence:
		return "sequence"
	case typeAlternative:
		return "alternative"
	case typeURL:
		return "url"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Element is one decoded data element. Scalars keep their raw big-endian
// bytes in Value; sequences and alternatives keep their children in Items.
type Element struct {
	Type  Type
	Value []byte
	Items []Element
}

// DecodeElement decodes the data element at the start of b and returns the
// remaining bytes.
func DecodeElement(b []byte) (Element, []byte, error) {
	return decodeElement(b, 0)
}

func decodeElement(b []byte, depth int) (Element, []byte, error) {
	if depth > maxDepth {
		return Element{}, nil, fmt.Errorf("%w: elements nested deeper than %d", ErrMalformed, maxDepth)
	}
	if len(b) == 0 {
		return Element{}, nil, fmt.Errorf("%w: empty data element", ErrMalformed)
	}
	typ := Type(b[0] >> 3)
	idx := b[0] & 0x07
	b = b[1:]

	var n int
	switch idx {
	case sizeIdx1, sizeIdx2, sizeIdx4, sizeIdx8, sizeIdx16:
		n = 1 << idx
	case sizeIdxLen8:
		if len(b) < 1 {
			return Element{}, nil, fmt.Errorf("%w: truncated 8-bit length", ErrMalformed)
		}
		n, b = int(b[0]), b[1:]
	case sizeIdxLen16:
		if len(b) < 2 {
			return Element{}, nil, fmt.Errorf("%w: truncated 16-bit length", ErrMalformed)
		}
		n, b = int(binary.BigEndian.Uint16(b)), b[2:]
	case sizeIdxLen32:
		if len(b) < 4 {
			return Element{}, nil, fmt.Errorf("%w: truncated 32-bit length", ErrMalformed)
		}
		l := binary.BigEndian.Uint32(b)
		if uint64(l) > uint64(len(b)-4) {
			return Element{}, nil, fmt.Errorf("%w: %s of %d bytes exceeds buffer", ErrMalformed, typ, l)
		}
		n, b = int(l), b[4:]
	}

	if typ == typeNil {
		if idx != sizeIdx1 {
			return Element{}, nil, fmt.Errorf("%w: nil with size index %d", ErrMalformed, idx)
		}
		return Element{Type: typeNil}, b, nil
	}
	if len(b) < n {
		return Element{}, nil, fmt.Errorf("%w: %s needs %d bytes, have %d", ErrMalformed, typ, n, len(b))
	}
	data, rest := b[:n], b[n:]

	switch typ {
	case typeUint, typeInt, typeBool:
		if idx > sizeIdx16 {
			return Element{}, nil, fmt.Errorf("%w: %s with variable size", ErrMalformed, typ)
		}
	case typeUUID:
		if idx != sizeIdx2 && idx != sizeIdx4 && idx != sizeIdx16 {
			return Element{}, nil, fmt.Errorf("%w: uuid of %d bytes", ErrMalformed, n)
		}
	case typeText, typeURL:
	case typeSequence, typeAlternative:
		e := Element{Type: typ}
		for len(data) > 0 {
			child, more, err := decodeElement(data, depth+1)
			if err != nil {
				return Element{}, nil, err
			}
			e.Items = append(e.Items, child)
			data = more
		}
		return e, rest, nil
	default:
		return Element{}, nil, fmt.Errorf("%w: reserved element type %d", ErrMalformed, typ)
	}
	return Element{Type: typ, Value: data}, rest, nil
}

// IsSequence reports whether e is a data element sequence.
func (e Element) IsSequence() bool { return e.Type == typeSequence }

// Uint returns the value of an unsigned integer element of up to 64 bits.
func (e Element) Uint() (uint64, bool) {
	if e.Type != typeUint || len(e.Value) > 8 {
		return 0, false
	}
	var v uint64
	for _, c := range e.Value {
		v = v<<8 | uint64(c)
	}
	return v, true
}

// UUID16 returns the short form of a UUID element. 32 and 128-bit UUIDs
// collapse to 16 bits when they are aliases on the Bluetooth base UUID.
func (e Element) UUID16() (uint16, bool) {
	if e.Type != typeUUID {
		return 0, false
	}
	switch len(e.Value) {
	case 2:
		return binary.BigEndian.Uint16(e.Value), true
	case 4:
		v := binary.BigEndian.Uint32(e.Value)
		if v > 0xffff {
			return 0, false
		}
		return uint16(v), true
	case 16:
		if !bytes.Equal(e.Value[4:], baseUUIDTail) || e.Value[0] != 0 || e.Value[1] != 0 {
			return 0, false
		}
		return binary.BigEndian.Uint16(e.Value[2:4]), true
	}
	return 0, false
}

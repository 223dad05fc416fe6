// Package sdp encodes and decodes the small subset of Service Discovery
// Protocol PDUs needed to look up an RFCOMM channel: a single
// ServiceSearchAttribute exchange, possibly spread over several
// continuation rounds.
//
// All multi-byte fields are big-endian.
package sdp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PDU identifiers.
const (
	PDUErrorResponse                  byte = 0x01
	PDUServiceSearchAttributeRequest  byte = 0x06
	PDUServiceSearchAttributeResponse byte = 0x07
)

// Well-known values used by the RFCOMM lookup.
const (
	// PSM is the L2CAP protocol/service multiplexer of the SDP server.
	PSM uint16 = 0x0001

	// SerialPortUUID is the Serial Port Profile service class (0x1101).
	SerialPortUUID uint16 = 0x1101

	// L2CAPUUID and RFCOMMUUID identify entries of a protocol descriptor list.
	L2CAPUUID  uint16 = 0x0100
	RFCOMMUUID uint16 = 0x0003

	// AttrProtocolDescriptorList holds the RFCOMM channel of a record.
	AttrProtocolDescriptorList uint16 = 0x0004

	// HeaderLen is the size of the fixed PDU header.
	HeaderLen = 5

	// MaxContinuationLen is the largest continuation state allowed on the wire.
	MaxContinuationLen = 16
)

var (
	// ErrMalformed is returned for truncated or otherwise undecodable PDUs.
	ErrMalformed = errors.New("sdp: malformed pdu")

	// ErrNotFound is returned when no record carries an RFCOMM channel.
	ErrNotFound = errors.New("sdp: rfcomm channel not found")
)

// Header is the fixed part of every PDU.
type Header struct {
	PDU      byte
	TID      uint16
	ParamLen uint16
}

// ParseHeader decodes the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, have %d", ErrMalformed, HeaderLen, len(b))
	}
	return Header{
		PDU:      b[0],
		TID:      binary.BigEndian.Uint16(b[1:3]),
		ParamLen: binary.BigEndian.Uint16(b[3:5]),
	}, nil
}

// AppendHeader appends the encoded header to b.
func AppendHeader(b []byte, h Header) []byte {
	b = append(b, h.PDU)
	b = binary.BigEndian.AppendUint16(b, h.TID)
	return binary.BigEndian.AppendUint16(b, h.ParamLen)
}

// PDULen reports the total length of the PDU starting at b, or false if the
// header itself is not complete yet.
func PDULen(b []byte) (int, bool) {
	h, err := ParseHeader(b)
	if err != nil {
		return 0, false
	}
	return HeaderLen + int(h.ParamLen), true
}

// ServiceSearchAttributeRequest asks the server for a set of attributes of
// every record matching a single 16-bit service class UUID.
type ServiceSearchAttributeRequest struct {
	TID      uint16
	UUID     uint16
	MaxBytes uint16
	AttrIDs  []uint16
	Cont     []byte
}

// Marshal encodes the request as a complete PDU.
func (r *ServiceSearchAttributeRequest) Marshal() ([]byte, error) {
	if len(r.Cont) > MaxContinuationLen {
		return nil, fmt.Errorf("sdp: continuation state too long (%d > %d)", len(r.Cont), MaxContinuationLen)
	}

	ids := make([][]byte, 0, len(r.AttrIDs))
	for _, id := range r.AttrIDs {
		ids = append(ids, Uint16(id))
	}

	params := Seq(UUID16(r.UUID))
	params = binary.BigEndian.AppendUint16(params, r.MaxBytes)
	params = append(params, Seq(ids...)...)
	params = append(params, byte(len(r.Cont)))
	params = append(params, r.Cont...)

	out := AppendHeader(make([]byte, 0, HeaderLen+len(params)), Header{
		PDU:      PDUServiceSearchAttributeRequest,
		TID:      r.TID,
		ParamLen: uint16(len(params)),
	})
	return append(out, params...), nil
}

// Response is a decoded ServiceSearchAttributeResponse fragment.
type Response struct {
	TID uint16
	// AttributeLists is this fragment's share of the attribute lists; the
	// complete value is the concatenation over all rounds.
	AttributeLists []byte
	Cont           []byte
}

// ErrorResponse is returned by ParseResponse when the server answered with
// an error PDU.
type ErrorResponse struct {
	TID  uint16
	Code uint16
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("sdp: server error 0x%04x (%s)", e.Code, errorCodeName(e.Code))
}

func errorCodeName(code uint16) string {
	switch code {
	case 0x0001:
		return "invalid SDP version"
	case 0x0002:
		return "invalid service record handle"
	case 0x0003:
		return "invalid request syntax"
	case 0x0004:
		return "invalid PDU size"
	case 0x0005:
		return "invalid continuation state"
	case 0x0006:
		return "insufficient resources"
	default:
		return "reserved"
	}
}

// ParseResponse decodes one complete PDU as received from the server.
func ParseResponse(pdu []byte) (*Response, error) {
	h, err := ParseHeader(pdu)
	if err != nil {
		return nil, err
	}
	if len(pdu) != HeaderLen+int(h.ParamLen) {
		return nil, fmt.Errorf("%w: parameter length %d, have %d", ErrMalformed, h.ParamLen, len(pdu)-HeaderLen)
	}
	params := pdu[HeaderLen:]

	switch h.PDU {
	case PDUErrorResponse:
		if len(params) < 2 {
			return nil, fmt.Errorf("%w: short error response", ErrMalformed)
		}
		return nil, &ErrorResponse{TID: h.TID, Code: binary.BigEndian.Uint16(params)}
	case PDUServiceSearchAttributeResponse:
	default:
		return nil, fmt.Errorf("%w: unexpected pdu id 0x%02x", ErrMalformed, h.PDU)
	}

	if len(params) < 2 {
		return nil, fmt.Errorf("%w: missing attribute list byte count", ErrMalformed)
	}
	count := int(binary.BigEndian.Uint16(params))
	params = params[2:]
	if len(params) < count+1 {
		return nil, fmt.Errorf("%w: attribute lists truncated", ErrMalformed)
	}
	resp := &Response{TID: h.TID, AttributeLists: params[:count]}
	params = params[count:]

	contLen := int(params[0])
	if contLen > MaxContinuationLen || len(params) != 1+contLen {
		return nil, fmt.Errorf("%w: bad continuation state length %d", ErrMalformed, contLen)
	}
	if contLen > 0 {
		resp.Cont = append([]byte(nil), params[1:]...)
	}
	return resp, nil
}

// Marshal encodes the fragment as a complete ServiceSearchAttributeResponse PDU.
func (r *Response) Marshal() ([]byte, error) {
	if len(r.Cont) > MaxContinuationLen {
		return nil, fmt.Errorf("sdp: continuation state too long (%d > %d)", len(r.Cont), MaxContinuationLen)
	}
	params := binary.BigEndian.AppendUint16(nil, uint16(len(r.AttributeLists)))
	params = append(params, r.AttributeLists...)
	params = append(params, byte(len(r.Cont)))
	params = append(params, r.Cont...)

	out := AppendHeader(make([]byte, 0, HeaderLen+len(params)), Header{
		PDU:      PDUServiceSearchAttributeResponse,
		TID:      r.TID,
		ParamLen: uint16(len(params)),
	})
	return append(out, params...), nil
}

// ParseRequest decodes a ServiceSearchAttributeRequest whose search pattern
// and attribute list use 16-bit values only.
func ParseRequest(pdu []byte) (*ServiceSearchAttributeRequest, error) {
	h, err := ParseHeader(pdu)
	if err != nil {
		return nil, err
	}
	if h.PDU != PDUServiceSearchAttributeRequest {
		return nil, fmt.Errorf("%w: unexpected pdu id 0x%02x", ErrMalformed, h.PDU)
	}
	if len(pdu) != HeaderLen+int(h.ParamLen) {
		return nil, fmt.Errorf("%w: parameter length %d, have %d", ErrMalformed, h.ParamLen, len(pdu)-HeaderLen)
	}
	req := &ServiceSearchAttributeRequest{TID: h.TID}

	pattern, rest, err := DecodeElement(pdu[HeaderLen:])
	if err != nil {
		return nil, err
	}
	if !pattern.IsSequence() || len(pattern.Items) != 1 {
		return nil, fmt.Errorf("%w: search pattern must hold one uuid", ErrMalformed)
	}
	uuid, ok := pattern.Items[0].UUID16()
	if !ok {
		return nil, fmt.Errorf("%w: search pattern uuid is not 16-bit", ErrMalformed)
	}
	req.UUID = uuid

	if len(rest) < 2 {
		return nil, fmt.Errorf("%w: missing maximum byte count", ErrMalformed)
	}
	req.MaxBytes, rest = binary.BigEndian.Uint16(rest), rest[2:]

	ids, rest, err := DecodeElement(rest)
	if err != nil {
		return nil, err
	}
	if !ids.IsSequence() {
		return nil, fmt.Errorf("%w: attribute id list is not a sequence", ErrMalformed)
	}
	for _, it := range ids.Items {
		id, ok := it.Uint()
		if !ok || len(it.Value) != 2 {
			return nil, fmt.Errorf("%w: attribute id is not a uint16", ErrMalformed)
		}
		req.AttrIDs = append(req.AttrIDs, uint16(id))
	}

	if len(rest) < 1 || len(rest) != 1+int(rest[0]) || rest[0] > MaxContinuationLen {
		return nil, fmt.Errorf("%w: bad continuation state", ErrMalformed)
	}
	if rest[0] > 0 {
		req.Cont = append([]byte(nil), rest[1:]...)
	}
	return req, nil
}

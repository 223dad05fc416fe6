package sdp

import "fmt"

// RFCOMMChannel extracts the RFCOMM channel from the reassembled
// AttributeLists of a ServiceSearchAttribute exchange. The first record
// whose ProtocolDescriptorList names RFCOMM wins.
func RFCOMMChannel(attributeLists []byte) (uint8, error) {
	if len(attributeLists) == 0 {
		return 0, ErrNotFound
	}
	lists, rest, err := DecodeElement(attributeLists)
	if err != nil {
		return 0, err
	}
	if len(rest) != 0 || !lists.IsSequence() {
		return 0, fmt.Errorf("%w: attribute lists are not a single sequence", ErrMalformed)
	}

	for _, record := range lists.Items {
		if !record.IsSequence() || len(record.Items)%2 != 0 {
			return 0, fmt.Errorf("%w: attribute list is not id/value pairs", ErrMalformed)
		}
		for i := 0; i < len(record.Items); i += 2 {
			id, ok := record.Items[i].Uint()
			if !ok {
				return 0, fmt.Errorf("%w: attribute id is not an unsigned integer", ErrMalformed)
			}
			if uint16(id) != AttrProtocolDescriptorList {
				continue
			}
			if ch, ok := channelFromProtocols(record.Items[i+1]); ok {
				return ch, nil
			}
		}
	}
	return 0, ErrNotFound
}

// channelFromProtocols walks a protocol descriptor list, or an alternative
// of such lists, looking for ( UUID RFCOMM, uint8 channel ).
func channelFromProtocols(e Element) (uint8, bool) {
	switch e.Type {
	case typeAlternative:
		for _, alt := range e.Items {
			if ch, ok := channelFromProtocols(alt); ok {
				return ch, true
			}
		}
	case typeSequence:
		for _, desc := range e.Items {
			if !desc.IsSequence() || len(desc.Items) < 2 {
				continue
			}
			if uuid, ok := desc.Items[0].UUID16(); !ok || uuid != RFCOMMUUID {
				continue
			}
			if ch, ok := desc.Items[1].Uint(); ok && len(desc.Items[1].Value) == 1 {
				return uint8(ch), true
			}
		}
	}
	return 0, false
}

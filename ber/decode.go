package ber

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned for any input that cannot possibly be valid
// BER (bad length octets, indefinite-length encoding, truncated tag
// octets past the point where more data could help). It is never
// recoverable by feeding more bytes; callers must terminate the
// connection on receipt of it, per the protocol engine's malformed-frame
// policy.
var ErrMalformed = errors.New("ber: malformed packet")

// IncompleteError is returned by ParsePacket when data does not yet
// contain a full tag. Needed is the number of additional bytes required
// to make progress, or -1 if that count isn't known yet (e.g. the length
// octets themselves haven't all arrived).
type IncompleteError struct {
	Needed int
}

func (e *IncompleteError) Error() string {
	if e.Needed < 0 {
		return "ber: incomplete packet, more data needed"
	}
	return fmt.Sprintf("ber: incomplete packet, %d more byte(s) needed", e.Needed)
}

// ParsePacket attempts to decode exactly one tagged value from the front
// of data. On success it returns the parsed Packet and the number of
// bytes consumed. If data holds a truncated prefix of a valid encoding,
// it returns a *IncompleteError; the caller must retain data unconsumed
// and re-call ParsePacket once more bytes have arrived. Any other error
// is unrecoverable.
func ParsePacket(data []byte) (*Packet, int, error) {
	class, tagType, tag, idLen, err := decodeIdentifier(data)
	if err != nil {
		return nil, 0, err
	}

	length, lenLen, err := decodeLength(data[idLen:])
	if err != nil {
		return nil, 0, err
	}

	headerLen := idLen + lenLen
	total := headerLen + length
	if len(data) < total {
		return nil, 0, &IncompleteError{Needed: total - len(data)}
	}

	content := data[headerLen:total]

	p := &Packet{ClassType: class, TagType: tagType, Tag: tag}
	if tagType == TypeConstructed {
		pos := 0
		for pos < len(content) {
			child, n, err := ParsePacket(content[pos:])
			if err != nil {
				var inc *IncompleteError
				if errors.As(err, &inc) {
					// A constructed value's content is fully buffered
					// (we checked above); a child claiming to need
					// more than that is itself malformed.
					return nil, 0, ErrMalformed
				}
				return nil, 0, err
			}
			child.Value = decodeUniversalValue(child)
			p.Children = append(p.Children, child)
			pos += n
		}
	} else {
		p.Data = bytes.NewBuffer(append([]byte(nil), content...))
	}
	p.Value = decodeUniversalValue(p)

	return p, total, nil
}

func decodeUniversalValue(p *Packet) interface{} {
	if p.TagType != TypePrimitive || p.ClassType != ClassUniversal || p.Data == nil {
		return p.Value
	}
	switch p.Tag {
	case TagBoolean:
		b := p.Data.Bytes()
		return len(b) > 0 && b[0] != 0x00
	case TagInteger, TagEnumerated:
		return DecodeInteger(p.Data.Bytes())
	case TagOctetString:
		return DecodeString(p.Data.Bytes())
	default:
		return p.Value
	}
}

// decodeIdentifier parses the tag octet(s) at the front of data.
func decodeIdentifier(data []byte) (class Class, tagType Type, tag uint64, consumed int, err error) {
	if len(data) < 1 {
		return 0, 0, 0, 0, &IncompleteError{Needed: 1}
	}
	first := data[0]
	class = Class(first >> 6 & 0x03)
	tagType = Type(first >> 5 & 0x01)
	low := uint64(first & 0x1F)

	if low != 0x1F {
		return class, tagType, low, 1, nil
	}

	tag = 0
	pos := 1
	for {
		if pos >= len(data) {
			return 0, 0, 0, 0, &IncompleteError{Needed: -1}
		}
		b := data[pos]
		tag = tag<<7 | uint64(b&0x7F)
		pos++
		if b&0x80 == 0 {
			break
		}
	}
	return class, tagType, tag, pos, nil
}

// decodeLength parses the length octet(s) at the front of data (which
// must already have had the identifier stripped). Indefinite-length form
// (0x80 alone) is rejected: this codec only speaks definite-length BER.
func decodeLength(data []byte) (length int, consumed int, err error) {
	if len(data) < 1 {
		return 0, 0, &IncompleteError{Needed: -1}
	}
	first := data[0]
	if first&0x80 == 0 {
		return int(first), 1, nil
	}
	n := int(first & 0x7F)
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: indefinite-length encoding not supported", ErrMalformed)
	}
	if len(data) < 1+n {
		return 0, 0, &IncompleteError{Needed: 1 + n - len(data)}
	}
	length = 0
	for _, b := range data[1 : 1+n] {
		length = length<<8 | int(b)
	}
	return length, 1 + n, nil
}

// ReadPacket reads exactly one full tagged value from r, blocking and
// growing an internal buffer as needed. This is the entry point used by
// the protocol engine's reader goroutine, which otherwise only ever
// speaks to a net.Conn and doesn't need the lower-level incremental
// ParsePacket interface directly.
func ReadPacket(r io.Reader) (*Packet, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		p, n, err := ParsePacket(buf)
		if err == nil {
			return p, nil
		}
		var inc *IncompleteError
		if !errors.As(err, &inc) {
			return nil, err
		}
		_ = n

		toRead := len(chunk)
		if inc.Needed > 0 && inc.Needed > toRead {
			toRead = inc.Needed
		}
		if toRead > len(chunk) {
			chunk = make([]byte, toRead)
		}
		n, rerr := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			if n > 0 {
				// give ParsePacket one more chance at a fully-arrived
				// packet before surfacing the read error.
				if p, _, err := ParsePacket(buf); err == nil {
					return p, nil
				}
			}
			return nil, rerr
		}
	}
}

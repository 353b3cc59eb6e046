package ber

// Bytes serializes the packet to its definite-length BER wire form. For a
// constructed packet the content octets are the concatenation of each
// child's own encoding, per the StructureTag invariant.
func (p *Packet) Bytes() []byte {
	content := p.contentBytes()

	out := encodeIdentifier(p.ClassType, p.TagType, p.Tag)
	out = append(out, encodeLength(len(content))...)
	out = append(out, content...)
	return out
}

func (p *Packet) contentBytes() []byte {
	if p.TagType == TypeConstructed {
		var content []byte
		for _, child := range p.Children {
			content = append(content, child.Bytes()...)
		}
		return content
	}
	if p.Data == nil {
		return nil
	}
	return p.Data.Bytes()
}

// encodeIdentifier writes the tag octet(s): class in the top two bits,
// P/C in the next bit, and either the tag number in the low five bits
// (short form, tag < 31) or 0x1F followed by base-128 continuation octets
// with the MSB set on all but the last (high-tag-number form).
func encodeIdentifier(class Class, tagType Type, tag uint64) []byte {
	first := byte(class)<<6 | byte(tagType)<<5

	if tag < 0x1F {
		return []byte{first | byte(tag)}
	}

	out := []byte{first | 0x1F}
	var tagBytes []byte
	for tag > 0 {
		tagBytes = append([]byte{byte(tag & 0x7F)}, tagBytes...)
		tag >>= 7
	}
	for i := 0; i < len(tagBytes)-1; i++ {
		tagBytes[i] |= 0x80
	}
	return append(out, tagBytes...)
}

// encodeLength writes the length octet(s): short form for 0..127, long
// form (0x80|n followed by n big-endian octets) otherwise. Length 0 is
// legal and uses the short form.
func encodeLength(length int) []byte {
	if length < 128 {
		return []byte{byte(length)}
	}

	var lenBytes []byte
	n := length
	for n > 0 {
		lenBytes = append([]byte{byte(n & 0xFF)}, lenBytes...)
		n >>= 8
	}
	return append([]byte{0x80 | byte(len(lenBytes))}, lenBytes...)
}

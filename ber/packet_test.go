package ber

import (
	"bytes"
	"testing"
)

func TestIntegerRoundTrip(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x00, 0x80}},
		{-1, []byte{0xFF}},
		{-128, []byte{0x80}},
		{-129, []byte{0xFF, 0x7F}},
		{256, []byte{0x01, 0x00}},
	}
	for _, c := range cases {
		got := EncodeInteger(c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("EncodeInteger(%d) = % X, want % X", c.v, got, c.want)
		}
		if back := DecodeInteger(got); back != c.v {
			t.Errorf("DecodeInteger(EncodeInteger(%d)) = %d", c.v, back)
		}
		if got[0] == 0x00 && len(got) > 1 && got[1]&0x80 == 0 {
			t.Errorf("EncodeInteger(%d) has superfluous leading 0x00: % X", c.v, got)
		}
		if got[0] == 0xFF && len(got) > 1 && got[1]&0x80 != 0 {
			t.Errorf("EncodeInteger(%d) has superfluous leading 0xFF: % X", c.v, got)
		}
	}
}

func TestPacketEncodeDecodeRoundTrip(t *testing.T) {
	seq := NewPacket(ClassUniversal, TypeConstructed, TagSequence, "seq")
	seq.AppendChild(NewInteger(ClassUniversal, TypePrimitive, TagInteger, 1, "id"))
	seq.AppendChild(NewString(ClassUniversal, TypePrimitive, TagOctetString, "cn=a", "dn"))

	encoded := seq.Bytes()
	decoded, n, err := ParsePacket(encoded)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d, want %d", n, len(encoded))
	}
	if decoded.Tag != TagSequence || decoded.TagType != TypeConstructed {
		t.Fatalf("decoded tag mismatch: %+v", decoded)
	}
	if len(decoded.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(decoded.Children))
	}
	if decoded.Children[0].Value.(int64) != 1 {
		t.Errorf("child[0] = %v, want 1", decoded.Children[0].Value)
	}
	if decoded.Children[1].Value.(string) != "cn=a" {
		t.Errorf("child[1] = %v, want cn=a", decoded.Children[1].Value)
	}
}

func TestParsePacketIncomplete(t *testing.T) {
	seq := NewPacket(ClassUniversal, TypeConstructed, TagSequence, "seq")
	seq.AppendChild(NewString(ClassUniversal, TypePrimitive, TagOctetString, "hello world", "s"))
	full := seq.Bytes()

	for i := 0; i < len(full); i++ {
		_, _, err := ParsePacket(full[:i])
		if err == nil {
			t.Fatalf("expected incomplete error at prefix length %d", i)
		}
		if _, ok := err.(*IncompleteError); !ok {
			t.Fatalf("at prefix %d: expected *IncompleteError, got %T: %v", i, err, err)
		}
	}
}

func TestHighTagNumberForm(t *testing.T) {
	p := NewString(ClassContext, TypePrimitive, 40, "x", "high tag")
	encoded := p.Bytes()
	decoded, _, err := ParsePacket(encoded)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	if decoded.Tag != 40 {
		t.Errorf("decoded tag = %d, want 40", decoded.Tag)
	}
	if decoded.ClassType != ClassContext {
		t.Errorf("decoded class = %v, want Context", decoded.ClassType)
	}
}

func TestIndefiniteLengthRejected(t *testing.T) {
	// 0x30 0x80 is a constructed SEQUENCE with indefinite length.
	_, _, err := ParsePacket([]byte{0x30, 0x80})
	if err == nil {
		t.Fatal("expected error for indefinite-length encoding")
	}
}

package ldap3

import (
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypePaging is the simple paged results control, RFC 2696.
const ControlTypePaging = "1.2.840.113556.1.4.319"

// ControlPaging implements the RFC 2696 paged results control.
type ControlPaging struct {
	// PagingSize is the requested page size.
	PagingSize uint32
	// Cookie is the opaque cursor handed back by the server; resend it
	// unchanged on the next page request, and an empty cookie in the
	// response means the result set is exhausted.
	Cookie []byte
}

func (c *ControlPaging) GetControlType() string { return ControlTypePaging }

func init() {
	RegisterControl(ControlTypePaging, "Paging", &ControlPaging{})
}

func (c *ControlPaging) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypePaging, "Control Type ("+ControlDescription(ControlTypePaging)+")"))

	seq := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Search Control Value")
	seq.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(c.PagingSize), "Paging Size"))
	cookie := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Cookie")
	cookie.Data.Write(c.Cookie)
	cookie.Value = c.Cookie
	seq.AppendChild(cookie)

	value := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Control Value (Paging)")
	value.Data.Write(seq.Bytes())
	packet.AppendChild(value)
	return packet
}

func (c *ControlPaging) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  PagingSize: %d  Cookie: %q",
		ControlDescription(ControlTypePaging), ControlTypePaging, c.PagingSize, c.Cookie)
}

// SetCookie stores the cookie to send on the next page request.
func (c *ControlPaging) SetCookie(cookie []byte) { c.Cookie = cookie }

// Decode parses a wire controlValue into a ControlPaging.
func (c *ControlPaging) Decode(criticality bool, value *ber.Packet) (Control, error) {
	seq, _, err := ber.ParsePacket(value.Data.Bytes())
	if err != nil {
		return nil, err
	}
	if len(seq.Children) != 2 {
		return nil, NewError(ErrorUnexpectedResponse, fmt.Errorf("ldap3: malformed paging control value"))
	}
	size, _ := seq.Children[0].Value.(int64)
	return &ControlPaging{PagingSize: uint32(size), Cookie: seq.Children[1].Data.Bytes()}, nil
}

// NewControlPaging builds a paging control requesting pagingSize entries
// per page and no cookie (the first page of a new search).
func NewControlPaging(pagingSize uint32) *ControlPaging {
	return &ControlPaging{PagingSize: pagingSize}
}

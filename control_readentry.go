package ldap3

import (
	"fmt"
	"strings"

	"github.com/nmorey/ldap3/ber"
)

// PreRead/PostRead controls, RFC 4527: request the server return the
// entry's state immediately before (PreRead) or after (PostRead) the
// Modify/ModifyDN/Delete operation it rides along with.
const (
	ControlTypePreRead  = "1.3.6.1.1.13.1"
	ControlTypePostRead = "1.3.6.1.1.13.2"
)

// ControlReadEntryRequest is the request-side control: the list of
// attributes to include in the returned entry (empty means all
// user attributes, matching Search's Attributes semantics).
type ControlReadEntryRequest struct {
	OID        string
	Attributes []string
}

func (c *ControlReadEntryRequest) GetControlType() string { return c.OID }

func (c *ControlReadEntryRequest) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, c.OID, "Control Type ("+ControlDescription(c.OID)+")"))

	seq := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "AttributeSelection")
	for _, a := range c.Attributes {
		seq.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, a, "Attribute"))
	}
	value := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Control Value (AttributeSelection)")
	value.Data.Write(seq.Bytes())
	packet.AppendChild(value)
	return packet
}

func (c *ControlReadEntryRequest) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Attributes: %s", ControlDescription(c.OID), c.OID, strings.Join(c.Attributes, ", "))
}

// NewControlPreRead builds a PreRead request control for the given
// attribute selection.
func NewControlPreRead(attributes ...string) *ControlReadEntryRequest {
	return &ControlReadEntryRequest{OID: ControlTypePreRead, Attributes: attributes}
}

// NewControlPostRead builds a PostRead request control for the given
// attribute selection.
func NewControlPostRead(attributes ...string) *ControlReadEntryRequest {
	return &ControlReadEntryRequest{OID: ControlTypePostRead, Attributes: attributes}
}

// ControlReadEntryResponse is the response-side control: the entry as
// it stood immediately before/after the operation.
type ControlReadEntryResponse struct {
	OID   string
	Entry *SearchEntry
}

func (c *ControlReadEntryResponse) GetControlType() string { return c.OID }

func (c *ControlReadEntryResponse) Encode() *ber.Packet {
	// Servers send this control; clients never need to encode it, but
	// Control requires Encode. Only the controlType is written: the entry
	// is not carried, so decoding this output yields no Entry.
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, c.OID, "Control Type ("+ControlDescription(c.OID)+")"))
	return packet
}

func (c *ControlReadEntryResponse) String() string {
	dn := ""
	if c.Entry != nil {
		dn = c.Entry.DN
	}
	return fmt.Sprintf("Control Type: %s (%q)  Entry: %s", ControlDescription(c.OID), c.OID, dn)
}

func decodeReadEntryControl(oid string, value *ber.Packet) (Control, error) {
	if value == nil || value.Data == nil {
		return &ControlReadEntryResponse{OID: oid}, nil
	}
	searchEntry, _, err := ber.ParsePacket(value.Data.Bytes())
	if err != nil {
		return nil, err
	}
	if len(searchEntry.Children) < 2 {
		return nil, fmt.Errorf("ldap3: malformed %s control value", ControlDescription(oid))
	}
	dn, _ := searchEntry.Children[0].Value.(string)
	raw := &RawEntry{dn: dn, rawAttrs: searchEntry.Children[1].Children}
	return &ControlReadEntryResponse{OID: oid, Entry: raw.Entry()}, nil
}

type preReadDecoder struct{}

func (preReadDecoder) Decode(criticality bool, value *ber.Packet) (Control, error) {
	return decodeReadEntryControl(ControlTypePreRead, value)
}

type postReadDecoder struct{}

func (postReadDecoder) Decode(criticality bool, value *ber.Packet) (Control, error) {
	return decodeReadEntryControl(ControlTypePostRead, value)
}

func init() {
	RegisterControl(ControlTypePreRead, "Pre-Read", preReadDecoder{})
	RegisterControl(ControlTypePostRead, "Post-Read", postReadDecoder{})
}

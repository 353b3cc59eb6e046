package ldap3

import (
	"errors"

	"github.com/nmorey/ldap3/ber"
)

// AddAttribute is one `type: values` pair of an Add request.
type AddAttribute struct {
	Type string
	Vals []string
}

// AddRequest is the DN and attribute set of an Add operation.
type AddRequest struct {
	DN         string
	Attributes []AddAttribute
	Controls   []Control
}

// NewAddRequest builds an AddRequest.
func NewAddRequest(dn string, controls []Control) *AddRequest {
	return &AddRequest{DN: dn, Controls: controls}
}

// Attribute appends an attribute to the request. Per RFC 4511 an Add
// attribute must carry at least one value; CompileFilter-style
// pre-validation happens in Conn.Add, not here, so callers can build the
// request incrementally.
func (req *AddRequest) Attribute(attrType string, attrVals []string) {
	req.Attributes = append(req.Attributes, AddAttribute{Type: attrType, Vals: attrVals})
}

// Add performs an Add operation. Each attribute must carry at least one
// value; an empty value set is rejected locally before any network I/O.
func (c *Conn) Add(req *AddRequest) error {
	for _, attr := range req.Attributes {
		if len(attr.Vals) == 0 {
			return NewError(ErrorEmptyValueSet, errors.New("ldap3: add attribute "+attr.Type+" has no values"))
		}
	}

	p := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationAddRequest, "Add Request")
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.DN, "DN"))

	attrs := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Attributes")
	for _, attr := range req.Attributes {
		attrs.AppendChild(encodeAttribute(attr.Type, attr.Vals))
	}
	p.AppendChild(attrs)

	envelope, err := c.doRequest(p, req.Controls...)
	if err != nil {
		return err
	}
	return success(parseLdapResult(envelope.Children[1]))
}

func encodeAttribute(attrType string, vals []string) *ber.Packet {
	p := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Attribute")
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, attrType, "Type"))
	set := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, "Values")
	for _, v := range vals {
		set.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, v, "Value"))
	}
	p.AppendChild(set)
	return p
}

package ldap3

import "github.com/nmorey/ldap3/ber"

// Modify operation change types, RFC 4511 section 4.6.
const (
	ModifyAddAttribute     = 0
	ModifyDeleteAttribute  = 1
	ModifyReplaceAttribute = 2
)

// PartialAttribute is one attribute value set carried in a Modify
// change, or in Add/Compare.
type PartialAttribute struct {
	Type string
	Vals []string
}

// Change is one element of a Modify request's changes SEQUENCE.
type Change struct {
	Operation int
	Modification PartialAttribute
}

// ModifyRequest is the DN and ordered list of changes of a Modify
// operation.
type ModifyRequest struct {
	DN       string
	Changes  []Change
	Controls []Control
}

// NewModifyRequest builds a ModifyRequest.
func NewModifyRequest(dn string, controls []Control) *ModifyRequest {
	return &ModifyRequest{DN: dn, Controls: controls}
}

func (req *ModifyRequest) change(op int, attrType string, attrVals []string) {
	req.Changes = append(req.Changes, Change{Operation: op, Modification: PartialAttribute{Type: attrType, Vals: attrVals}})
}

// Add queues an add-value change. RFC 4511 requires at least one value.
func (req *ModifyRequest) Add(attrType string, attrVals []string) { req.change(ModifyAddAttribute, attrType, attrVals) }

// Delete queues a delete-value change. An empty attrVals deletes the
// entire attribute.
func (req *ModifyRequest) Delete(attrType string, attrVals []string) {
	req.change(ModifyDeleteAttribute, attrType, attrVals)
}

// Replace queues a replace-value change. An empty attrVals removes the
// attribute entirely.
func (req *ModifyRequest) Replace(attrType string, attrVals []string) {
	req.change(ModifyReplaceAttribute, attrType, attrVals)
}

// Modify performs a Modify operation.
func (c *Conn) Modify(req *ModifyRequest) error {
	res, err := c.modifyResult(req)
	if err != nil {
		return err
	}
	return success(res)
}

// ModifyWithResult is Modify, but returns the full LdapResult, including
// any response controls the server attached (e.g. a Behera password
// policy warning after a password-changing modify).
func (c *Conn) ModifyWithResult(req *ModifyRequest) (*LdapResult, error) {
	res, err := c.modifyResult(req)
	if err != nil {
		return res, err
	}
	return res, success(res)
}

func (c *Conn) modifyResult(req *ModifyRequest) (*LdapResult, error) {
	p := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationModifyRequest, "Modify Request")
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.DN, "DN"))

	changes := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Changes")
	for _, ch := range req.Changes {
		changePacket := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Change")
		changePacket.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(ch.Operation), "Operation"))
		changePacket.AppendChild(encodeAttribute(ch.Modification.Type, ch.Modification.Vals))
		changes.AppendChild(changePacket)
	}
	p.AppendChild(changes)

	envelope, err := c.doRequest(p, req.Controls...)
	if err != nil {
		return nil, err
	}
	res := parseLdapResult(envelope.Children[1])
	res.Controls = extractControls(envelope)
	return res, nil
}

package ldap3

import "github.com/nmorey/ldap3/ber"

// CompareRequest asks the server whether an attribute of an entry holds
// a given value.
//
//	CompareRequest ::= [APPLICATION 14] SEQUENCE {
//	     entry           LDAPDN,
//	     ava             SEQUENCE {
//	          attributeDesc   AttributeDescription,
//	          assertionValue  AssertionValue } }
type CompareRequest struct {
	DN       string
	Attr     string
	Value    string
	Controls []Control
}

// NewCompareRequest builds a CompareRequest.
func NewCompareRequest(dn, attr, value string) *CompareRequest {
	return &CompareRequest{DN: dn, Attr: attr, Value: value}
}

// Compare returns true if the entry at req.DN holds req.Value in
// req.Attr, false if it does not. Any other server response is
// returned as an error (rc 5 compareFalse and rc 6 compareTrue are not
// errors; every other non-zero rc is).
func (c *Conn) Compare(req *CompareRequest) (bool, error) {
	p := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationCompareRequest, "Compare Request")
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.DN, "DN"))

	ava := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "AttributeValueAssertion")
	ava.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.Attr, "Attribute"))
	ava.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.Value, "Value"))
	p.AppendChild(ava)

	envelope, err := c.doRequest(p, req.Controls...)
	if err != nil {
		return false, err
	}
	res := parseLdapResult(envelope.Children[1])
	switch res.ResultCode {
	case LDAPResultCompareTrue:
		return true, nil
	case LDAPResultCompareFalse:
		return false, nil
	default:
		return false, success(res)
	}
}

package ldap3

import "github.com/nmorey/ldap3/ber"

// DelRequest is the DN of a Delete operation.
type DelRequest struct {
	DN       string
	Controls []Control
}

// NewDelRequest builds a DelRequest.
func NewDelRequest(dn string, controls []Control) *DelRequest {
	return &DelRequest{DN: dn, Controls: controls}
}

// Del performs a Delete operation. The target entry must have no
// children; servers report that as LDAPResultNotAllowedOnNonLeaf.
func (c *Conn) Del(req *DelRequest) error {
	p := ber.NewPacket(ber.ClassApplication, ber.TypePrimitive, ApplicationDelRequest, "Del Request")
	p.Data.WriteString(req.DN)
	p.Value = req.DN

	envelope, err := c.doRequest(p, req.Controls...)
	if err != nil {
		return err
	}
	return success(parseLdapResult(envelope.Children[1]))
}

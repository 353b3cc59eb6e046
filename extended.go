package ldap3

import "github.com/nmorey/ldap3/ber"

const oidWhoAmI = "1.3.6.1.4.1.4203.1.11.3"

// ExtendedRequest is a vendor/RFC-defined extended operation.
//
//	ExtendedRequest ::= [APPLICATION 23] SEQUENCE {
//	     requestName      [0] LDAPOID,
//	     requestValue     [1] OCTET STRING OPTIONAL }
type ExtendedRequest struct {
	Name     string
	Value    []byte
	Controls []Control
}

// NewExtendedRequest builds an ExtendedRequest. value may be nil.
func NewExtendedRequest(name string, value []byte) *ExtendedRequest {
	return &ExtendedRequest{Name: name, Value: value}
}

// ExtendedResponse is the decoded reply to an Extended operation: the
// usual LdapResult plus the optional responseName/responseValue pair
// RFC 4511 section 4.12 allows a server to echo back.
type ExtendedResponse struct {
	*LdapResult
	Name  string
	Value []byte
}

// Extended performs a generic Extended operation.
func (c *Conn) Extended(req *ExtendedRequest) (*ExtendedResponse, error) {
	p := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationExtendedRequest, "Extended Request")
	p.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 0, req.Name, "Request Name"))
	if req.Value != nil {
		p.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 1, string(req.Value), "Request Value"))
	}

	envelope, err := c.doRequest(p, req.Controls...)
	if err != nil {
		return nil, err
	}
	op := envelope.Children[1]
	res := parseLdapResult(op)
	if err := success(res); err != nil {
		return nil, err
	}

	resp := &ExtendedResponse{LdapResult: res}
	for _, child := range op.Children {
		if child.ClassType != ber.ClassContext || child.Data == nil {
			continue
		}
		switch child.Tag {
		case 10: // [10] responseName
			resp.Name = string(child.Data.Bytes())
		case 11: // [11] responseValue
			resp.Value = child.Data.Bytes()
		}
	}
	return resp, nil
}

// WhoAmI performs the WhoAmI extended operation (RFC 4532), returning
// the authzId the server considers this connection bound as.
func (c *Conn) WhoAmI() (string, error) {
	resp, err := c.Extended(NewExtendedRequest(oidWhoAmI, nil))
	if err != nil {
		return "", err
	}
	return string(resp.Value), nil
}

package ldap3

import "github.com/nmorey/ldap3/ber"

// SASLMechanism models only the byte-exchange contract a SASL mechanism
// needs from this package: given the server's last challenge (nil on the
// first call), produce the next client response. Mechanism state (NTLM
// message sequencing, GSSAPI context, ...) lives entirely in the
// implementation; this package never inspects it.
type SASLMechanism interface {
	// Name is the SASL mechanism name sent in the Bind request, e.g.
	// "PLAIN", "GSS-SPNEGO", "NTLM".
	Name() string
	// Step consumes the server's challenge (nil before the first call)
	// and returns the next client response, or an error that aborts
	// the bind. done is true once the mechanism has no further tokens
	// to send, even if the server has not yet confirmed success.
	Step(challenge []byte) (response []byte, done bool, err error)
}

// Bind performs a simple Bind with a DN and password. An empty password
// performs an unauthenticated bind per RFC 4513 section 5.1.2.
func (c *Conn) Bind(username, password string) error {
	res, err := c.bindResult(username, password)
	if err != nil {
		return err
	}
	return success(res)
}

// BindWithResult is Bind, but returns the full LdapResult, including any
// response controls the server attached (e.g. a Behera password policy
// warning or a VChu must-change control) even on a successful bind.
func (c *Conn) BindWithResult(username, password string) (*LdapResult, error) {
	res, err := c.bindResult(username, password)
	if err != nil {
		return res, err
	}
	return res, success(res)
}

func (c *Conn) bindResult(username, password string) (*LdapResult, error) {
	req := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationBindRequest, "Bind Request")
	req.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, 3, "Version"))
	req.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, username, "User Name"))
	req.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 0, password, "Password"))

	envelope, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	res := parseLdapResult(envelope.Children[1])
	res.Controls = extractControls(envelope)
	return res, nil
}

// UnauthenticatedBind performs the RFC 4513 section 5.1.2 unauthenticated
// bind: a DN with no password, which servers must treat as anonymous
// rather than as an authentication attempt.
func (c *Conn) UnauthenticatedBind(username string) error {
	return c.Bind(username, "")
}

// SASLBind drives the SASL bind loop described by RFC 4511 section 4.2:
// repeatedly feed the server's credentials to mech and reissue Bind with
// the resulting token until the server reports success or an error.
func (c *Conn) SASLBind(mech SASLMechanism) error {
	var challenge []byte
	for {
		response, done, err := mech.Step(challenge)
		if err != nil {
			return NewError(ErrorNetwork, err)
		}

		req := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationBindRequest, "Bind Request")
		req.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, 3, "Version"))
		req.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "User Name"))

		sasl := ber.NewPacket(ber.ClassContext, ber.TypeConstructed, 3, "SASL Auth")
		sasl.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, mech.Name(), "Mechanism"))
		if response != nil {
			credentials := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Credentials")
			credentials.Data.Write(response)
			credentials.Value = response
			sasl.AppendChild(credentials)
		}
		req.AppendChild(sasl)

		envelope, err := c.doRequest(req)
		if err != nil {
			return err
		}
		op := envelope.Children[1]
		res := parseLdapResult(op)

		switch res.ResultCode {
		case LDAPResultSuccess:
			return nil
		case LDAPResultSaslBindInProgress:
			challenge = bindServerCredentials(op)
			if done {
				// Mechanism believes it's finished but the server wants
				// another round: Step is called again with the server's
				// credentials as the challenge, and the loop only ends
				// when the server returns a final result code.
				continue
			}
		default:
			return success(res)
		}
	}
}

// bindServerCredentials extracts the [7]-tagged serverSaslCreds octet
// string from a BindResponse, RFC 4511 section 4.2.
func bindServerCredentials(op *ber.Packet) []byte {
	if len(op.Children) <= 3 {
		return nil
	}
	for _, child := range op.Children[3:] {
		if child.ClassType == ber.ClassContext && child.Tag == 7 {
			if child.Data != nil {
				return child.Data.Bytes()
			}
		}
	}
	return nil
}

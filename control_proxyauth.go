package ldap3

import (
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypeProxyAuth is the Proxy Authorization control, RFC 4370.
const ControlTypeProxyAuth = "2.16.840.1.113730.3.4.18"

// ControlProxyAuth asks the server to perform the operation as if it
// had been authorized by AuthzID (RFC 4370 section 2 authzId syntax,
// e.g. "dn:uid=alice,ou=people,dc=example,dc=com" or "u:alice"). It is
// always sent critical: a server that does not support it must reject
// the whole operation rather than silently ignore the control.
type ControlProxyAuth struct {
	AuthzID string
}

func init() {
	RegisterControl(ControlTypeProxyAuth, "Proxy Authorization", &ControlProxyAuth{})
}

func (c *ControlProxyAuth) GetControlType() string { return ControlTypeProxyAuth }

func (c *ControlProxyAuth) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeProxyAuth, "Control Type ("+ControlDescription(ControlTypeProxyAuth)+")"))
	packet.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, true, "Criticality"))
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, c.AuthzID, "Control Value (AuthzID)"))
	return packet
}

func (c *ControlProxyAuth) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Criticality: true  AuthzID: %q", ControlDescription(ControlTypeProxyAuth), ControlTypeProxyAuth, c.AuthzID)
}

func (c *ControlProxyAuth) Decode(criticality bool, value *ber.Packet) (Control, error) {
	authzID := ""
	if value != nil && value.Data != nil {
		authzID = string(value.Data.Bytes())
	}
	return &ControlProxyAuth{AuthzID: authzID}, nil
}

// NewControlProxyAuth builds a ProxyAuth control for the given authzId.
func NewControlProxyAuth(authzID string) *ControlProxyAuth {
	return &ControlProxyAuth{AuthzID: authzID}
}

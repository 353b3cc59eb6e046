package ldap3

import "github.com/nmorey/ldap3/ber"

// Unbind sends the Unbind request and closes the connection. Unbind is a
// Solo operation (RFC 4511 section 4.3): no response is expected, so the
// request is written without registering a pending entry.
func (c *Conn) Unbind() error {
	req := ber.NewPacket(ber.ClassApplication, ber.TypePrimitive, ApplicationUnbindRequest, "Unbind Request")
	if err := c.sendSolo(req); err != nil {
		return err
	}
	return c.Close()
}

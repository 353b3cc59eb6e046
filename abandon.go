package ldap3

import "github.com/nmorey/ldap3/ber"

// Abandon requests that the server give up on the operation identified
// by id, typically a SearchStream's LastID(). Abandon is a Solo
// operation (RFC 4511 section 4.11): the server sends no response, so
// the caller cannot tell whether the target operation had already
// completed on the server side. If id names no operation currently
// pending on this connection, Abandon returns an error without
// transmitting anything.
func (c *Conn) Abandon(id uint64) error {
	op := ber.NewInteger(ber.ClassApplication, ber.TypePrimitive, ApplicationAbandonRequest, int64(id), "Abandon Request")

	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(c.nextMessageID()), "MessageID"))
	envelope.AppendChild(op)

	return c.abandon(id, envelope)
}

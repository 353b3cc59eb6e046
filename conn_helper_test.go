package ldap3_test

import (
	"net"
	"testing"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/ber"
)

// pipeConn wires a *ldap3.Conn to one end of an in-memory net.Pipe,
// handing the test the other end to play the server role by hand.
func pipeConn(t *testing.T) (*ldap3.Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	conn := ldap3.NewConn(client, false)
	t.Cleanup(func() { conn.Close() })
	return conn, server
}

// readRequest reads one LDAPMessage envelope off server and returns its
// messageID and protocolOp.
func readRequest(t *testing.T, server net.Conn) (int64, *ber.Packet) {
	t.Helper()
	envelope, err := ber.ReadPacket(server)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	id, _ := envelope.Children[0].Value.(int64)
	return id, envelope.Children[1]
}

// writeResult writes an LDAPMessage envelope carrying a minimal
// LDAPResult-shaped protocolOp of the given application tag.
func writeResult(t *testing.T, server net.Conn, id int64, tag uint64, resultCode int64, matchedDN, diagnostic string) {
	t.Helper()
	op := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, tag, "Response")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, resultCode, "Result Code"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, matchedDN, "Matched DN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, diagnostic, "Diagnostic Message"))

	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, id, "MessageID"))
	envelope.AppendChild(op)

	if _, err := server.Write(envelope.Bytes()); err != nil {
		t.Fatalf("write response: %v", err)
	}
}

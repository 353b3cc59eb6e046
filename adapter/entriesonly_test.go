package adapter_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/adapter"
	"github.com/nmorey/ldap3/ber"
)

func pipeConn(t *testing.T) (*ldap3.Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	conn := ldap3.NewConn(client, false)
	t.Cleanup(func() { conn.Close() })
	return conn, server
}

func readSearchRequest(t *testing.T, server net.Conn) int64 {
	t.Helper()
	envelope, err := ber.ReadPacket(server)
	require.NoError(t, err)
	id, _ := envelope.Children[0].Value.(int64)
	require.EqualValues(t, ldap3.ApplicationSearchRequest, envelope.Children[1].Tag)
	return id
}

func writeEnvelope(t *testing.T, server net.Conn, id int64, op *ber.Packet, controls []*ber.Packet) {
	t.Helper()
	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, id, "MessageID"))
	envelope.AppendChild(op)
	if len(controls) > 0 {
		ctrls := ber.NewPacket(ber.ClassContext, ber.TypeConstructed, 0, "Controls")
		for _, c := range controls {
			ctrls.AppendChild(c)
		}
		envelope.AppendChild(ctrls)
	}
	_, err := server.Write(envelope.Bytes())
	require.NoError(t, err)
}

func writeEntry(t *testing.T, server net.Conn, id int64, dn string) {
	t.Helper()
	op := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ldap3.ApplicationSearchResultEntry, "Search Result Entry")
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, dn, "DN"))
	op.AppendChild(ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Attributes"))
	writeEnvelope(t, server, id, op, nil)
}

func writeReference(t *testing.T, server net.Conn, id int64, uris ...string) {
	t.Helper()
	op := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ldap3.ApplicationSearchResultReference, "Search Result Reference")
	for _, u := range uris {
		op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, u, "URI"))
	}
	writeEnvelope(t, server, id, op, nil)
}

func writeDone(t *testing.T, server net.Conn, id int64, resultCode int64, controls ...*ber.Packet) {
	t.Helper()
	op := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ldap3.ApplicationSearchResultDone, "Search Result Done")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, resultCode, "Result Code"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Matched DN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Diagnostic Message"))
	writeEnvelope(t, server, id, op, controls)
}

func newSearchRequest() *ldap3.SearchRequest {
	return ldap3.NewSearchRequest("dc=example,dc=com", ldap3.ScopeWholeSubtree, ldap3.NeverDerefAliases, 0, 0, false, "(objectClass=*)", nil, nil)
}

func TestEntriesOnlyFiltersReferralsAndIntermediate(t *testing.T) {
	conn, server := pipeConn(t)
	defer server.Close()

	stream := conn.Search(newSearchRequest(), adapter.NewEntriesOnly())

	var dns []string
	done := make(chan error, 1)
	go func() {
		for {
			re, err := stream.Next()
			if err != nil {
				done <- err
				return
			}
			if re == nil {
				done <- nil
				return
			}
			dns = append(dns, re.Entry().DN)
		}
	}()

	id := readSearchRequest(t, server)
	writeEntry(t, server, id, "cn=a,dc=example,dc=com")
	writeReference(t, server, id, "ldap://other/dc=example,dc=com")
	writeEntry(t, server, id, "cn=b,dc=example,dc=com")
	writeDone(t, server, id, ldap3.LDAPResultSuccess)

	require.NoError(t, <-done)
	assert.Equal(t, []string{"cn=a,dc=example,dc=com", "cn=b,dc=example,dc=com"}, dns)

	res := stream.Finish()
	require.NotNil(t, res)
	assert.Equal(t, []string{"ldap://other/dc=example,dc=com"}, res.Referrals)
}

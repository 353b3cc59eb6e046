package ldap3_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/adapter"
	"github.com/nmorey/ldap3/ber"
)

// writeEntryWithAttr writes a SearchResultEntry whose single attribute
// carries the given raw values, exercising RawEntry.Entry()'s
// string/binary conversion.
func writeEntryWithAttr(t *testing.T, server interface {
	Write([]byte) (int, error)
}, id int64, dn, attrName string, values ...[]byte) {
	t.Helper()
	op := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ldap3.ApplicationSearchResultEntry, "Search Result Entry")
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, dn, "DN"))

	attrs := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Attributes")
	attr := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Attribute")
	attr.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, attrName, "Type"))
	vals := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, "Values")
	for _, v := range values {
		p := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Value")
		p.Data.Write(v)
		vals.AppendChild(p)
	}
	attr.AppendChild(vals)
	attrs.AppendChild(attr)
	op.AppendChild(attrs)

	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, id, "MessageID"))
	envelope.AppendChild(op)
	_, err := server.Write(envelope.Bytes())
	require.NoError(t, err)
}

func writeSearchDone(t *testing.T, server interface {
	Write([]byte) (int, error)
}, id int64) {
	t.Helper()
	op := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ldap3.ApplicationSearchResultDone, "Search Result Done")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(ldap3.LDAPResultSuccess), "Result Code"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Matched DN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Diagnostic Message"))

	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, id, "MessageID"))
	envelope.AppendChild(op)
	_, err := server.Write(envelope.Bytes())
	require.NoError(t, err)
}

func TestRawEntryMixedAttributeMovesWithoutDuplicating(t *testing.T) {
	conn, server := pipeConn(t)
	defer server.Close()

	stream := conn.Search(ldap3.NewSearchRequest("dc=example,dc=com", ldap3.ScopeWholeSubtree, ldap3.NeverDerefAliases, 0, 0, false, "(objectClass=*)", nil, nil), adapter.NewEntriesOnly())

	var entry *ldap3.SearchEntry
	done := make(chan error, 1)
	go func() {
		re, err := stream.Next()
		if err != nil {
			done <- err
			return
		}
		entry = re.Entry()
		done <- nil
	}()

	envelope, err := ber.ReadPacket(server)
	require.NoError(t, err)
	id, _ := envelope.Children[0].Value.(int64)

	valid := []byte("valid-utf8")
	invalid := []byte{0xff, 0xfe, 0x00}
	writeEntryWithAttr(t, server, id, "cn=mixed,dc=example,dc=com", "jpegPhoto", valid, invalid)
	writeSearchDone(t, server, id)

	require.NoError(t, <-done)
	require.NotNil(t, entry)

	assert.Empty(t, entry.Attrs["jpegPhoto"])
	assert.Equal(t, [][]byte{valid, invalid}, entry.BinAttrs["jpegPhoto"])
}

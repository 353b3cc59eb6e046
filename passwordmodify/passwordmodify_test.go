package passwordmodify_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/ber"
	"github.com/nmorey/ldap3/passwordmodify"
)

func pipeConn(t *testing.T) (*ldap3.Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	conn := ldap3.NewConn(client, false)
	t.Cleanup(func() { conn.Close() })
	return conn, server
}

func readRequest(t *testing.T, server net.Conn) (int64, *ber.Packet) {
	t.Helper()
	envelope, err := ber.ReadPacket(server)
	require.NoError(t, err)
	id, _ := envelope.Children[0].Value.(int64)
	return id, envelope.Children[1]
}

func writeExtendedResult(t *testing.T, server net.Conn, id int64, responseValue []byte) {
	t.Helper()
	op := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ldap3.ApplicationExtendedResponse, "Extended Response")
	op.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, ldap3.LDAPResultSuccess, "Result Code"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Matched DN"))
	op.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Diagnostic Message"))
	if responseValue != nil {
		value := ber.NewPacket(ber.ClassContext, ber.TypePrimitive, 11, "Response Value")
		value.Data.Write(responseValue)
		op.AppendChild(value)
	}

	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, id, "MessageID"))
	envelope.AppendChild(op)
	_, err := server.Write(envelope.Bytes())
	require.NoError(t, err)
}

func TestModifySendsExpectedFields(t *testing.T) {
	conn, server := pipeConn(t)
	defer server.Close()

	req := &passwordmodify.Request{UserID: "u:alice", OldPassword: "old", NewPassword: "new"}
	done := make(chan struct {
		resp *passwordmodify.Response
		err  error
	}, 1)
	go func() {
		resp, err := passwordmodify.Modify(conn, req)
		done <- struct {
			resp *passwordmodify.Response
			err  error
		}{resp, err}
	}()

	id, op := readRequest(t, server)
	require.EqualValues(t, ldap3.ApplicationExtendedRequest, op.Tag)
	require.NotNil(t, op.Children[0].Data)
	name := ber.DecodeString(op.Children[0].Data.Bytes())
	assert.Equal(t, passwordmodify.OID, name)

	require.Len(t, op.Children, 2)
	seq, _, err := ber.ParsePacket(op.Children[1].Data.Bytes())
	require.NoError(t, err)
	require.Len(t, seq.Children, 3)
	assert.Equal(t, "u:alice", ber.DecodeString(seq.Children[0].Data.Bytes()))
	assert.Equal(t, "old", ber.DecodeString(seq.Children[1].Data.Bytes()))
	assert.Equal(t, "new", ber.DecodeString(seq.Children[2].Data.Bytes()))

	writeExtendedResult(t, server, id, nil)

	res := <-done
	require.NoError(t, res.err)
	assert.Empty(t, res.resp.GeneratedPassword)
}

func TestModifyReturnsGeneratedPassword(t *testing.T) {
	conn, server := pipeConn(t)
	defer server.Close()

	req := &passwordmodify.Request{UserID: "u:bob"}
	done := make(chan struct {
		resp *passwordmodify.Response
		err  error
	}, 1)
	go func() {
		resp, err := passwordmodify.Modify(conn, req)
		done <- struct {
			resp *passwordmodify.Response
			err  error
		}{resp, err}
	}()

	id, _ := readRequest(t, server)

	genSeq := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "PasswordModifyResponseValue")
	gen := ber.NewPacket(ber.ClassContext, ber.TypePrimitive, 0, "genPasswd")
	gen.Data.WriteString("s3cr3t!")
	genSeq.AppendChild(gen)

	writeExtendedResult(t, server, id, genSeq.Bytes())

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "s3cr3t!", res.resp.GeneratedPassword)
}

func TestGeneratePasswordLengthAndAlphabet(t *testing.T) {
	pw, err := passwordmodify.GeneratePassword("a passphrase", 24)
	require.NoError(t, err)
	assert.Len(t, pw, 24)
	for _, r := range pw {
		assert.True(t, (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	}
}

func TestGeneratePasswordDefaultLength(t *testing.T) {
	pw, err := passwordmodify.GeneratePassword("x", 0)
	require.NoError(t, err)
	assert.Len(t, pw, 16)
}

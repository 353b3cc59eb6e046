package ldap3_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/ber"
)

func TestAbandonKnownIDSendsSoloRequest(t *testing.T) {
	conn, server := pipeConn(t)
	defer server.Close()

	// Start a Compare and leave it pending so its message ID is
	// registered on the connection.
	compareDone := make(chan error, 1)
	go func() {
		_, err := conn.Compare(ldap3.NewCompareRequest("cn=a,dc=example,dc=com", "cn", "a"))
		compareDone <- err
	}()

	targetID, op := readRequest(t, server)
	require.EqualValues(t, ldap3.ApplicationCompareRequest, op.Tag)

	done := make(chan error, 1)
	go func() { done <- conn.Abandon(uint64(targetID)) }()

	envelope, err := ber.ReadPacket(server)
	require.NoError(t, err)
	abandonOp := envelope.Children[1]
	require.EqualValues(t, ldap3.ApplicationAbandonRequest, abandonOp.Tag)
	require.NotNil(t, abandonOp.Data)
	abandoned := ber.DecodeInteger(abandonOp.Data.Bytes())
	require.EqualValues(t, targetID, abandoned)

	require.NoError(t, <-done)

	// The abandoned Compare never gets a response; abandoning it closes
	// its response channel, so the caller unblocks with an error rather
	// than hanging forever.
	assert.Error(t, <-compareDone)
}

func TestAbandonUnknownIDReturnsErrorWithoutWriting(t *testing.T) {
	conn, server := pipeConn(t)
	defer server.Close()

	err := conn.Abandon(999)
	assert.Error(t, err)

	wroteSomething := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		if _, err := server.Read(buf); err == nil {
			close(wroteSomething)
		}
	}()

	select {
	case <-wroteSomething:
		t.Fatal("Abandon of an unknown message id wrote bytes to the wire")
	case <-time.After(50 * time.Millisecond):
	}
}

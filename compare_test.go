package ldap3_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
)

func TestCompareTrueFalse(t *testing.T) {
	for _, tc := range []struct {
		name string
		rc   int64
		want bool
	}{
		{"true", ldap3.LDAPResultCompareTrue, true},
		{"false", ldap3.LDAPResultCompareFalse, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conn, server := pipeConn(t)
			defer server.Close()

			req := ldap3.NewCompareRequest("cn=test,dc=example,dc=com", "mail", "test@example.com")
			done := make(chan struct {
				ok  bool
				err error
			}, 1)
			go func() {
				ok, err := conn.Compare(req)
				done <- struct {
					ok  bool
					err error
				}{ok, err}
			}()

			id, op := readRequest(t, server)
			require.EqualValues(t, ldap3.ApplicationCompareRequest, op.Tag)
			writeResult(t, server, id, ldap3.ApplicationCompareResponse, tc.rc, "", "")

			res := <-done
			require.NoError(t, res.err)
			assert.Equal(t, tc.want, res.ok)
		})
	}
}

func TestCompareOtherErrorIsError(t *testing.T) {
	conn, server := pipeConn(t)
	defer server.Close()

	req := ldap3.NewCompareRequest("cn=test,dc=example,dc=com", "mail", "test@example.com")
	done := make(chan error, 1)
	go func() {
		_, err := conn.Compare(req)
		done <- err
	}()

	id, _ := readRequest(t, server)
	writeResult(t, server, id, ldap3.ApplicationCompareResponse, ldap3.LDAPResultNoSuchObject, "", "")

	require.Error(t, <-done)
}

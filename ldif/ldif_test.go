package ldif_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3/ldif"
)

func parseString(str string) (*ldif.LDIF, error) {
	l := &ldif.LDIF{}
	err := ldif.Unmarshal(bytes.NewBufferString(str), l)
	return l, err
}

var ldifRFC2849Example = `version: 1
dn: cn=Barbara Jensen, ou=Product Development, dc=airius, dc=com
objectclass: top
objectclass: person
objectclass: organizationalPerson
cn: Barbara Jensen
cn: Barbara J Jensen
cn: Babs Jensen
sn: Jensen
uid: bjensen
telephonenumber: +1 408 555 1212
description: A big sailing fan.

dn: cn=Bjorn Jensen, ou=Accounting, dc=airius, dc=com
objectclass: top
objectclass: person
objectclass: organizationalPerson
cn: Bjorn Jensen
sn: Jensen
telephonenumber: +1 408 555 1212
`

func TestLDIFParseRFC2849Example(t *testing.T) {
	l, err := parseString(ldifRFC2849Example)
	require.NoError(t, err)
	require.Len(t, l.Entries, 2)
	assert.Equal(t, 1, l.Version)
	assert.Equal(t, "Jensen", l.Entries[1].Entry.GetAttributeValues("sn")[0])
}

var ldifEmpty = `dn: uid=someone,dc=example,dc=org
cn:
cn: Some User
`

func TestLDIFParseEmptyAttr(t *testing.T) {
	_, err := parseString(ldifEmpty)
	assert.Error(t, err)
}

var ldifMissingDN = `objectclass: top
cn: Some User
`

func TestLDIFParseMissingDN(t *testing.T) {
	_, err := parseString(ldifMissingDN)
	assert.Error(t, err)
}

var ldifContinuation = `dn: uid=someone,dc=example,dc=org
sn: Some
  One
cn: Someone
`

func TestLDIFContinuation(t *testing.T) {
	l, err := parseString(ldifContinuation)
	require.NoError(t, err)
	assert.Equal(t, "Some One", l.Entries[0].Entry.GetAttributeValues("sn")[0])
}

var ldifBase64 = `dn: uid=someone,dc=example,dc=org
sn:: U29tZSBPbmU=
`

func TestLDIFBase64(t *testing.T) {
	l, err := parseString(ldifBase64)
	require.NoError(t, err)
	assert.Equal(t, "Some One", l.Entries[0].Entry.GetAttributeValues("sn")[0])
}

var ldifBase64Broken = `dn: uid=someone,dc=example,dc=org
sn:: XXX-U29tZSBPbmU=
`

func TestLDIFBase64Broken(t *testing.T) {
	_, err := parseString(ldifBase64Broken)
	assert.Error(t, err)
}

var ldifTrailingBlank = `dn: uid=someone,dc=example,dc=org
sn:: U29tZSBPbmU=

`

func TestLDIFTrailingBlank(t *testing.T) {
	_, err := parseString(ldifTrailingBlank)
	assert.NoError(t, err)
}

var ldifComments = `dn: uid=someone,dc=example,dc=org
# a comment
 continued comment
sn: someone
`

func TestLDIFComments(t *testing.T) {
	l, err := parseString(ldifComments)
	require.NoError(t, err)
	assert.Equal(t, "someone", l.Entries[0].Entry.GetAttributeValues("sn")[0])
}

var ldifNoSpace = `dn:uid=someone,dc=example,dc=org
sn:someone
`

func TestLDIFNoSpace(t *testing.T) {
	l, err := parseString(ldifNoSpace)
	require.NoError(t, err)
	assert.Equal(t, "someone", l.Entries[0].Entry.GetAttributeValues("sn")[0])
}

var ldifMultiSpace = `dn:  uid=someone,dc=example,dc=org
sn:    someone
`

func TestLDIFMultiSpace(t *testing.T) {
	l, err := parseString(ldifMultiSpace)
	require.NoError(t, err)
	assert.Equal(t, "someone", l.Entries[0].Entry.GetAttributeValues("sn")[0])
}

func TestLDIFURL(t *testing.T) {
	f, err := os.CreateTemp("", "ldifurl")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	_, err = f.Write([]byte("TEST\n"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	l, err := parseString("dn: uid=someone,dc=example,dc=org\ndescription:< file://" + f.Name() + "\n")
	require.NoError(t, err)
	assert.Equal(t, "TEST\n", l.Entries[0].Entry.GetAttributeValues("description")[0])
}

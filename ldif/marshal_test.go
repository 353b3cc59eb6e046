package ldif_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/ldif"
)

var personLDIF = `dn: uid=someone,ou=people,dc=example,dc=org
cn: Someone
mail: someone@example.org
objectClass: top
objectClass: person
objectClass: organizationalPerson
objectClass: inetOrgPerson
uid: someone

`

var ouLDIF = `dn: ou=people,dc=example,dc=org
objectClass: top
objectClass: organizationalUnit
ou: people

`

var entries = []*ldap3.SearchEntry{
	{
		DN: "ou=people,dc=example,dc=org",
		Attrs: map[string][]string{
			"objectClass": {"top", "organizationalUnit"},
			"ou":          {"people"},
		},
	},
	{
		DN: "uid=someone,ou=people,dc=example,dc=org",
		Attrs: map[string][]string{
			"objectClass": {"top", "person", "organizationalPerson", "inetOrgPerson"},
			"uid":         {"someone"},
			"cn":          {"Someone"},
			"mail":        {"someone@example.org"},
		},
	},
}

func TestMarshalSingleEntry(t *testing.T) {
	l := &ldif.LDIF{Entries: []*ldif.Entry{{Entry: entries[1]}}}
	res, err := ldif.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, personLDIF, res)
}

func TestMarshalEntries(t *testing.T) {
	l := &ldif.LDIF{Entries: []*ldif.Entry{{Entry: entries[0]}, {Entry: entries[1]}}}
	res, err := ldif.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, ouLDIF+personLDIF, res)
}

func TestMarshalB64(t *testing.T) {
	entryLDIF := `dn: ou=people,dc=example,dc=org
description:: VGhlIFBlw7ZwbGUgw5ZyZ2FuaXphdGlvbg==
objectClass: top
objectClass: organizationalUnit
ou: people

`
	entry := &ldap3.SearchEntry{
		DN: "ou=people,dc=example,dc=org",
		Attrs: map[string][]string{
			"objectClass": {"top", "organizationalUnit"},
			"ou":          {"people"},
			"description": {"The Peöple Örganization"},
		},
	}
	l := &ldif.LDIF{Entries: []*ldif.Entry{{Entry: entry}}}
	res, err := ldif.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, entryLDIF, res)
}

func TestMarshalMod(t *testing.T) {
	modLDIF := `dn: uid=someone,ou=people,dc=example,dc=org
changetype: modify
add: givenName
givenName: Some
-
delete: mail
-
delete: telephoneNumber
telephoneNumber: 123 456 789 - 0
-
replace: sn
sn: One
-

`
	mod := ldap3.NewModifyRequest("uid=someone,ou=people,dc=example,dc=org", nil)
	mod.Add("givenName", []string{"Some"})
	mod.Delete("mail", []string{})
	mod.Delete("telephoneNumber", []string{"123 456 789 - 0"})
	mod.Replace("sn", []string{"One"})
	l := &ldif.LDIF{Entries: []*ldif.Entry{{Modify: mod}}}
	res, err := ldif.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, modLDIF, res)
}

func TestMarshalAdd(t *testing.T) {
	addLDIF := `dn: uid=someone,ou=people,dc=example,dc=org
changetype: add
objectClass: top
objectClass: person
objectClass: organizationalPerson
objectClass: inetOrgPerson
uid: someone
cn: Someone
mail: someone@example.org

`
	add := ldap3.NewAddRequest("uid=someone,ou=people,dc=example,dc=org", nil)
	for _, name := range []string{"objectClass", "uid", "cn", "mail"} {
		add.Attribute(name, entries[1].Attrs[name])
	}
	l := &ldif.LDIF{Entries: []*ldif.Entry{{Add: add}}}
	res, err := ldif.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, addLDIF, res)
}

func TestMarshalDel(t *testing.T) {
	delLDIF := `dn: uid=someone,ou=people,dc=example,dc=org
changetype: delete

`
	del := ldap3.NewDelRequest("uid=someone,ou=people,dc=example,dc=org", nil)
	l := &ldif.LDIF{Entries: []*ldif.Entry{{Del: del}}}
	res, err := ldif.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, delLDIF, res)
}

func TestDump(t *testing.T) {
	delLDIF := `dn: uid=someone,ou=people,dc=example,dc=org
changetype: delete

`
	del := ldap3.NewDelRequest("uid=someone,ou=people,dc=example,dc=org", nil)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, ldif.Dump(buf, 0, del))
	assert.Equal(t, delLDIF, buf.String())
}

func TestMarshalMixedIsError(t *testing.T) {
	add := ldap3.NewAddRequest("uid=someone,ou=people,dc=example,dc=org", nil)
	l := &ldif.LDIF{Entries: []*ldif.Entry{{Entry: entries[0]}, {Add: add}}}
	_, err := ldif.Marshal(l)
	assert.ErrorIs(t, err, ldif.ErrMixed)
}

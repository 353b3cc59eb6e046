package ldap3_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/ber"
)

// roundTrip encodes a control, reparses the bytes as the wire would
// deliver them, and decodes the result back through the registry.
func roundTrip(t *testing.T, c ldap3.Control) ldap3.Control {
	t.Helper()
	packet, _, err := ber.ParsePacket(c.Encode().Bytes())
	require.NoError(t, err)
	return ldap3.DecodeControl(packet)
}

func TestControlPagingRoundTrip(t *testing.T) {
	c := ldap3.NewControlPaging(50)
	c.SetCookie([]byte("cookie-1"))
	decoded := roundTrip(t, c)
	got, ok := decoded.(*ldap3.ControlPaging)
	require.True(t, ok)
	assert.EqualValues(t, 50, got.PagingSize)
	assert.Equal(t, []byte("cookie-1"), got.Cookie)
}

func TestControlManageDsaITRoundTrip(t *testing.T) {
	c := ldap3.NewControlManageDsaIT(true)
	decoded := roundTrip(t, c)
	got, ok := decoded.(*ldap3.ControlManageDsaIT)
	require.True(t, ok)
	assert.True(t, got.Criticality)
}

func TestControlRelaxRulesRoundTrip(t *testing.T) {
	c := ldap3.NewControlRelaxRules(true)
	decoded := roundTrip(t, c)
	got, ok := decoded.(*ldap3.ControlRelaxRules)
	require.True(t, ok)
	assert.True(t, got.Criticality)
}

func TestControlProxyAuthRoundTrip(t *testing.T) {
	c := ldap3.NewControlProxyAuth("dn:uid=alice,ou=people,dc=example,dc=com")
	decoded := roundTrip(t, c)
	got, ok := decoded.(*ldap3.ControlProxyAuth)
	require.True(t, ok)
	assert.Equal(t, "dn:uid=alice,ou=people,dc=example,dc=com", got.AuthzID)
}

func TestControlAssertionRoundTrip(t *testing.T) {
	c := ldap3.NewControlAssertion("(objectClass=*)")
	decoded := roundTrip(t, c)
	got, ok := decoded.(*ldap3.ControlAssertion)
	require.True(t, ok)
	assert.Equal(t, "(objectClass=*)", got.Filter)
}

func TestControlMatchedValuesRoundTrip(t *testing.T) {
	c := ldap3.NewControlMatchedValues("(mail=*)", "(cn=a*)")
	decoded := roundTrip(t, c)
	got, ok := decoded.(*ldap3.ControlMatchedValues)
	require.True(t, ok)
	assert.Equal(t, []string{"(mail=*)", "(cn=a*)"}, got.Filters)
}

func TestControlBeheraPasswordPolicyDecode(t *testing.T) {
	value := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "PasswordPolicyResponseValue")
	warning := ber.NewPacket(ber.ClassContext, ber.TypeConstructed, 0, "warning")
	timeBeforeExpiration := ber.NewPacket(ber.ClassContext, ber.TypePrimitive, 0, "timeBeforeExpiration")
	timeBeforeExpiration.Data.Write([]byte{0x0E, 0x10}) // 3600, big-endian
	warning.AppendChild(timeBeforeExpiration)
	value.AppendChild(warning)
	errTag := ber.NewPacket(ber.ClassContext, ber.TypePrimitive, 1, "error")
	errTag.Data.Write([]byte{0x01})
	value.AppendChild(errTag)

	outer := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Control Value")
	outer.Data.Write(value.Bytes())

	c := ldap3.NewControlBeheraPasswordPolicy()
	decoded, err := c.Decode(false, outer)
	require.NoError(t, err)
	got, ok := decoded.(*ldap3.ControlBeheraPasswordPolicy)
	require.True(t, ok)
	assert.EqualValues(t, 3600, got.Expire)
	assert.EqualValues(t, -1, got.Grace)
	assert.EqualValues(t, 1, got.Error)
	assert.Equal(t, "Account locked", got.ErrorString)
}

func TestControlVChuPasswordWarningDecode(t *testing.T) {
	outer := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Control Value")
	outer.Data.Write([]byte("1209600"))

	c := &ldap3.ControlVChuPasswordWarning{}
	decoded, err := c.Decode(false, outer)
	require.NoError(t, err)
	got, ok := decoded.(*ldap3.ControlVChuPasswordWarning)
	require.True(t, ok)
	assert.EqualValues(t, 1209600, got.Expire)
}

func TestControlVChuPasswordMustChangeDecode(t *testing.T) {
	c := &ldap3.ControlVChuPasswordMustChange{}
	decoded, err := c.Decode(true, nil)
	require.NoError(t, err)
	got, ok := decoded.(*ldap3.ControlVChuPasswordMustChange)
	require.True(t, ok)
	assert.True(t, got.MustChange)
}

func TestFindControl(t *testing.T) {
	controls := []ldap3.Control{
		ldap3.NewControlManageDsaIT(true),
		ldap3.NewControlPaging(10),
	}
	found := ldap3.FindControl(controls, ldap3.ControlTypePaging)
	require.NotNil(t, found)
	_, ok := found.(*ldap3.ControlPaging)
	assert.True(t, ok)

	assert.Nil(t, ldap3.FindControl(controls, ldap3.ControlTypeAssertion))
}

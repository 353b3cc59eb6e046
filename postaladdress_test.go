package ldap3_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmorey/ldap3"
)

func TestPostalAddressParse(t *testing.T) {
	for _, tc := range []struct {
		escaped  string
		expected string
	}{
		{"1234 Main St.$Anytown, CA 12345$USA", "1234 Main St.\nAnytown, CA 12345\nUSA"},
		{`\241,000,000 Sweepstakes$PO Box 1000000$Anytown, CA 12345$USA`, "$1,000,000 Sweepstakes\nPO Box 1000000\nAnytown, CA 12345\nUSA"},
	} {
		addr, err := ldap3.ParsePostalAddress(tc.escaped)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, addr.String())
	}
}

func TestPostalAddressEscapeRoundTrip(t *testing.T) {
	addr := ldap3.NewPostalAddress([]string{"1234 Main St.", "Anytown, CA 12345", "USA"})
	escaped := addr.Escape()
	parsed, err := ldap3.ParsePostalAddress(escaped)
	require.NoError(t, err)
	assert.Equal(t, addr.Lines(), parsed.Lines())
}

func TestPostalAddressSkipsEmptyLines(t *testing.T) {
	addr := ldap3.NewPostalAddress([]string{"a", "", "b"})
	assert.Equal(t, []string{"a", "b"}, addr.Lines())
}

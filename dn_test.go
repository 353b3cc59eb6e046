package ldap3_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nmorey/ldap3"
)

func TestEscapeValue(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"", ""},
		{"Sue, Grabbit and Runn", `Sue\, Grabbit and Runn`},
		{"  leading and trailing  ", `\  leading and trailing \ `},
		{"#hashtag", `\#hashtag`},
		{"a+b=c", `a\+b\=c`},
		{"quote\"me", `quote\"me`},
		{"back\\slash", `back\\slash`},
		{"semi;colon", `semi\;colon`},
		{"plain", "plain"},
	} {
		assert.Equal(t, tc.want, ldap3.EscapeValue(tc.in))
	}
}

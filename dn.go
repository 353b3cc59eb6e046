package ldap3

import "strings"

// dnEscape escapes a value for use in an RDN, RFC 4514 section 2.4:
// always-escape `"+,;<=>\`, and NUL as \00; escape a leading space or '#' and a
// trailing space; everything else passes through unescaped.
//
// Full DN parsing is out of scope for this package (Search returns the
// entry DN as an opaque string); this is the one DN-adjacent utility the
// operation surface needs, to let callers build RDNs for Add/ModifyDN.
func dnEscape(value string) string {
	if value == "" {
		return value
	}
	var out strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == 0:
			out.WriteString(`\00`)
		case strings.IndexByte(`"+,;<=>\`, c) >= 0:
			out.WriteByte('\\')
			out.WriteByte(c)
		case i == 0 && (c == ' ' || c == '#'):
			out.WriteByte('\\')
			out.WriteByte(c)
		case i == len(value)-1 && c == ' ':
			out.WriteByte('\\')
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// EscapeValue is an exported alias for dnEscape, for callers building
// RDN values for Add/ModifyDN.
func EscapeValue(value string) string { return dnEscape(value) }

package ldap3

import "strings"

// PostalAddress represents the RFC 4517 postalAddress syntax: a sequence
// of one or more lines, encoded on the wire with lines joined by "$" and
// '\' and '$' backslash-escaped within a line.
type PostalAddress struct {
	lines []string
}

// NewPostalAddress builds a PostalAddress from unescaped lines, dropping
// empty lines and copying the slice so later caller mutations don't
// reach back into the value.
func NewPostalAddress(lines []string) *PostalAddress {
	copied := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		copied = append(copied, line)
	}
	return &PostalAddress{lines: copied}
}

// Lines returns a copy of the address lines.
func (p *PostalAddress) Lines() []string {
	out := make([]string, len(p.lines))
	copy(out, p.lines)
	return out
}

// String joins the address lines with newlines.
func (p *PostalAddress) String() string {
	return strings.Join(p.lines, "\n")
}

// Escape renders the address in its RFC 4517 wire form: '\' and '$'
// escaped as \5C and \24, lines joined by unescaped '$'.
func (p *PostalAddress) Escape() string {
	var out strings.Builder
	for i, line := range p.lines {
		if i > 0 {
			out.WriteByte('$')
		}
		for _, r := range line {
			switch r {
			case '\\':
				out.WriteString(`\5C`)
			case '$':
				out.WriteString(`\24`)
			default:
				out.WriteRune(r)
			}
		}
	}
	return out.String()
}

// ParsePostalAddress parses an RFC 4517 escaped postalAddress value.
func ParsePostalAddress(escaped string) (*PostalAddress, error) {
	var lines []string
	for _, line := range strings.Split(escaped, "$") {
		if line == "" {
			continue
		}
		var out strings.Builder
		for i := 0; i < len(line); i++ {
			if line[i] == '\\' && i+2 < len(line) {
				switch line[i+1 : i+3] {
				case "5C":
					out.WriteByte('\\')
					i += 2
					continue
				case "24":
					out.WriteByte('$')
					i += 2
					continue
				}
			}
			out.WriteByte(line[i])
		}
		lines = append(lines, out.String())
	}
	return &PostalAddress{lines: lines}, nil
}

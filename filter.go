package ldap3

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nmorey/ldap3/ber"
)

// Filter choice tag numbers, RFC 4515 / RFC 4511 section 4.5.1.
const (
	FilterAnd             = 0
	FilterOr              = 1
	FilterNot             = 2
	FilterEqualityMatch   = 3
	FilterSubstrings      = 4
	FilterGreaterOrEqual  = 5
	FilterLessOrEqual     = 6
	FilterPresent         = 7
	FilterApproxMatch     = 8
	FilterExtensibleMatch = 9
)

var filterMap = map[uint64]string{
	FilterAnd:             "And",
	FilterOr:              "Or",
	FilterNot:             "Not",
	FilterEqualityMatch:   "Equality Match",
	FilterSubstrings:      "Substrings",
	FilterGreaterOrEqual:  "Greater Or Equal",
	FilterLessOrEqual:     "Less Or Equal",
	FilterPresent:         "Present",
	FilterApproxMatch:     "Approx Match",
	FilterExtensibleMatch: "Extensible Match",
}

const (
	FilterSubstringsInitial = 0
	FilterSubstringsAny     = 1
	FilterSubstringsFinal   = 2
)

// CompileFilter parses the RFC 4515 text representation of a filter and
// returns the Context-class BER tag tree expected in a SearchRequest.
func CompileFilter(filter string) (*ber.Packet, error) {
	if len(filter) == 0 || filter[0] != '(' {
		return nil, NewError(ErrorFilterCompile, errors.New("ldap3: filter does not start with '('"))
	}
	packet, pos, err := compileFilter(filter, 1)
	if err != nil {
		return nil, err
	}
	if pos != len(filter) {
		return nil, NewError(ErrorFilterCompile, fmt.Errorf("ldap3: trailing input after filter: %q", filter[pos:]))
	}
	return packet, nil
}

// DecompileFilter renders a compiled filter tag tree back to RFC 4515
// text, the inverse of CompileFilter.
func DecompileFilter(packet *ber.Packet) (ret string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrorFilterDecompile, fmt.Errorf("ldap3: malformed filter packet: %v", r))
		}
	}()

	ret = "("
	switch packet.Tag {
	case FilterAnd, FilterOr:
		if packet.Tag == FilterAnd {
			ret += "&"
		} else {
			ret += "|"
		}
		for _, child := range packet.Children {
			childStr, childErr := DecompileFilter(child)
			if childErr != nil {
				return "", childErr
			}
			ret += childStr
		}
	case FilterNot:
		childStr, childErr := DecompileFilter(packet.Children[0])
		if childErr != nil {
			return "", childErr
		}
		ret += "!" + childStr
	case FilterSubstrings:
		ret += decodeAttr(packet.Children[0]) + "="
		for i, seg := range packet.Children[1].Children {
			text := ldapEscape(decodeAttr(seg))
			switch seg.Tag {
			case FilterSubstringsInitial:
				ret += text + "*"
			case FilterSubstringsAny:
				if i == 0 {
					ret += "*"
				}
				ret += text + "*"
			case FilterSubstringsFinal:
				if i == 0 {
					ret += "*"
				}
				ret += text
			}
		}
	case FilterEqualityMatch:
		ret += decodeAttr(packet.Children[0]) + "=" + ldapEscape(decodeAttr(packet.Children[1]))
	case FilterGreaterOrEqual:
		ret += decodeAttr(packet.Children[0]) + ">=" + ldapEscape(decodeAttr(packet.Children[1]))
	case FilterLessOrEqual:
		ret += decodeAttr(packet.Children[0]) + "<=" + ldapEscape(decodeAttr(packet.Children[1]))
	case FilterPresent:
		ret += decodeAttr(packet) + "=*"
	case FilterApproxMatch:
		ret += decodeAttr(packet.Children[0]) + "~=" + ldapEscape(decodeAttr(packet.Children[1]))
	case FilterExtensibleMatch:
		ret += decompileExtensibleMatch(packet)
	default:
		return "", NewError(ErrorFilterDecompile, fmt.Errorf("ldap3: unknown filter tag %d", packet.Tag))
	}
	ret += ")"
	return ret, nil
}

func decompileExtensibleMatch(packet *ber.Packet) string {
	var attr, rule, value string
	dnAttrs := false
	for _, child := range packet.Children {
		switch child.Tag {
		case 1:
			rule = decodeAttr(child)
		case 2:
			attr = decodeAttr(child)
		case 3:
			value = decodeAttr(child)
		case 4:
			dnAttrs, _ = child.Value.(bool)
		}
	}
	out := attr
	if dnAttrs {
		out += ":dn"
	}
	if rule != "" {
		out += ":" + rule
	}
	out += ":=" + ldapEscape(value)
	return out
}

func decodeAttr(p *ber.Packet) string {
	if s, ok := p.Value.(string); ok {
		return s
	}
	if p.Data != nil {
		return ber.DecodeString(p.Data.Bytes())
	}
	return ""
}

func compileFilterSet(filter string, pos int, parent *ber.Packet) (int, error) {
	for pos < len(filter) && filter[pos] == '(' {
		child, newPos, err := compileFilter(filter, pos+1)
		if err != nil {
			return pos, err
		}
		pos = newPos
		parent.AppendChild(child)
	}
	if pos == len(filter) {
		return pos, NewError(ErrorFilterCompile, errors.New("ldap3: unexpected end of filter"))
	}
	return pos + 1, nil
}

func compileFilter(filter string, pos int) (p *ber.Packet, newPos int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrorFilterCompile, fmt.Errorf("ldap3: error compiling filter: %v", r))
		}
	}()

	switch filter[pos] {
	case '(':
		p, newPos, err = compileFilter(filter, pos+1)
		newPos++
		return
	case '&':
		p = ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterAnd, filterMap[FilterAnd])
		newPos, err = compileFilterSet(filter, pos+1, p)
		return
	case '|':
		p = ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterOr, filterMap[FilterOr])
		newPos, err = compileFilterSet(filter, pos+1, p)
		return
	case '!':
		p = ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterNot, filterMap[FilterNot])
		var child *ber.Packet
		child, newPos, err = compileFilter(filter, pos+1)
		if err != nil {
			return
		}
		p.AppendChild(child)
		return
	default:
		return compileSimpleFilter(filter, pos)
	}
}

// compileSimpleFilter handles equality/substrings/present/ordering/
// approx/extensible-match filter items, i.e. everything that is not
// &, |, or !.
func compileSimpleFilter(filter string, pos int) (p *ber.Packet, newPos int, err error) {
	start := pos
	for pos < len(filter) && filter[pos] != ')' {
		pos++
	}
	if pos == len(filter) {
		return nil, pos, NewError(ErrorFilterCompile, errors.New("ldap3: unexpected end of filter"))
	}
	item := filter[start:pos]
	newPos = pos + 1

	if idx := strings.Index(item, ":="); idx >= 0 && !strings.ContainsAny(item[:idx], "=<>~") {
		if tag, ok := tryExtensibleMatch(item); ok {
			return tag, newPos, nil
		}
	}

	switch {
	case strings.Contains(item, ">="):
		attr, val, _ := splitOnce(item, ">=")
		p = ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterGreaterOrEqual, filterMap[FilterGreaterOrEqual])
		appendAV(p, attr, val)
		return p, newPos, nil
	case strings.Contains(item, "<="):
		attr, val, _ := splitOnce(item, "<=")
		p = ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterLessOrEqual, filterMap[FilterLessOrEqual])
		appendAV(p, attr, val)
		return p, newPos, nil
	case strings.Contains(item, "~="):
		attr, val, _ := splitOnce(item, "~=")
		p = ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterApproxMatch, filterMap[FilterApproxMatch])
		appendAV(p, attr, val)
		return p, newPos, nil
	case strings.Contains(item, "="):
		attr, val, _ := splitOnce(item, "=")
		return compileEqualityOrSubstrings(attr, val, newPos)
	}
	return nil, pos, NewError(ErrorFilterCompile, fmt.Errorf("ldap3: no operator found in filter item %q", item))
}

func splitOnce(s, sep string) (string, string, bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

func appendAV(p *ber.Packet, attr, val string) {
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, attr, "Attribute"))
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, unescapeFilterValue(val), "Condition"))
}

func compileEqualityOrSubstrings(attr, val string, newPos int) (*ber.Packet, int, error) {
	if val == "*" {
		p := ber.NewPacket(ber.ClassContext, ber.TypePrimitive, FilterPresent, filterMap[FilterPresent])
		p.Data.WriteString(attr)
		p.Value = attr
		return p, newPos, nil
	}
	if strings.Contains(val, "*") {
		segs, err := splitSubstrings(val)
		if err != nil {
			return nil, newPos, err
		}
		p := ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterSubstrings, filterMap[FilterSubstrings])
		p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, attr, "Attribute"))
		seq := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Substrings")
		for _, seg := range segs {
			seq.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, seg.tag, unescapeFilterValue(seg.text), substringTagName(seg.tag)))
		}
		p.AppendChild(seq)
		return p, newPos, nil
	}
	p := ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterEqualityMatch, filterMap[FilterEqualityMatch])
	appendAV(p, attr, val)
	return p, newPos, nil
}

func substringTagName(tag uint64) string {
	switch tag {
	case FilterSubstringsInitial:
		return "Initial Substring"
	case FilterSubstringsAny:
		return "Any Substring"
	case FilterSubstringsFinal:
		return "Final Substring"
	default:
		return "Substring"
	}
}

type substringSegment struct {
	tag  uint64
	text string
}

// splitSubstrings splits a `sub*str*ing` value (with escaped asterisks
// already protected, see unescapeFilterValue's caller contract: this
// function splits on raw '*' runes not preceded by an odd number of
// backslashes) into initial/any/final segments, rejecting a doubled "**".
func splitSubstrings(val string) ([]substringSegment, error) {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range val {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			cur.WriteRune(r)
			escaped = true
		case r == '*':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())

	var segs []substringSegment
	if parts[0] != "" {
		segs = append(segs, substringSegment{FilterSubstringsInitial, parts[0]})
	}
	for i := 1; i < len(parts)-1; i++ {
		if parts[i] == "" {
			return nil, NewError(ErrorFilterCompile, errors.New("ldap3: doubled '**' in filter value"))
		}
		segs = append(segs, substringSegment{FilterSubstringsAny, parts[i]})
	}
	if last := parts[len(parts)-1]; last != "" {
		segs = append(segs, substringSegment{FilterSubstringsFinal, last})
	}
	if len(segs) == 0 {
		return nil, NewError(ErrorFilterCompile, errors.New("ldap3: empty substrings filter"))
	}
	return segs, nil
}

func tryExtensibleMatch(item string) (*ber.Packet, bool) {
	idx := strings.Index(item, ":=")
	if idx < 0 {
		return nil, false
	}
	lhs, value := item[:idx], item[idx+2:]

	var attr, rule string
	dnAttrs := false
	fields := strings.Split(lhs, ":")
	attr = fields[0]
	for _, f := range fields[1:] {
		if f == "dn" {
			dnAttrs = true
			continue
		}
		rule = f
	}
	if attr == "" && rule == "" {
		return nil, false
	}

	p := ber.NewPacket(ber.ClassContext, ber.TypeConstructed, FilterExtensibleMatch, filterMap[FilterExtensibleMatch])
	if rule != "" {
		p.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 1, rule, "Matching Rule"))
	}
	if attr != "" {
		p.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 2, attr, "Type"))
	}
	p.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 3, unescapeFilterValue(value), "Match Value"))
	if dnAttrs {
		p.AppendChild(ber.NewBoolean(ber.ClassContext, ber.TypePrimitive, 4, true, "DN Attributes"))
	}
	return p, true
}

// unescapeFilterValue decodes RFC 4515 `\xx` hex escapes. Values passed
// through CompileFilter may arrive pre-escaped by the caller; decoding
// here as well is idempotent for any byte sequence that isn't itself a
// literal backslash-hex-hex run.
func unescapeFilterValue(val string) string {
	if !strings.Contains(val, "\\") {
		return val
	}
	var out strings.Builder
	for i := 0; i < len(val); i++ {
		if val[i] == '\\' && i+2 < len(val) {
			if b, err := strconv.ParseUint(val[i+1:i+3], 16, 8); err == nil {
				out.WriteByte(byte(b))
				i += 2
				continue
			}
		}
		out.WriteByte(val[i])
	}
	return out.String()
}

// ldapEscape hex-escapes bytes that RFC 4515 requires to be escaped in
// filter text: NUL, '(', ')', '\\', and '*'.
func ldapEscape(val string) string {
	var out strings.Builder
	for i := 0; i < len(val); i++ {
		switch c := val[i]; c {
		case 0, '(', ')', '\\', '*':
			fmt.Fprintf(&out, "\\%02x", c)
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// Package ldif reads and writes the LDAP Data Interchange Format,
// RFC 2849, using ldap3's Search/Add/Del/Modify request shapes as its
// in-memory representation.
package ldif

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/nmorey/ldap3"
)

// ErrMixed is returned by Marshal when content entries and change
// records are mixed in the same LDIF, which RFC 2849 forbids.
var ErrMixed = errors.New("ldif: cannot mix change records and content records")

var foldWidth = 76

// Entry is one LDIF record: either a plain content entry, or exactly
// one of the three change record kinds this package supports.
type Entry struct {
	Entry  *ldap3.SearchEntry
	Add    *ldap3.AddRequest
	Del    *ldap3.DelRequest
	Modify *ldap3.ModifyRequest
}

// LDIF is a full LDIF document: an optional version header and an
// ordered list of entries.
type LDIF struct {
	Version   int
	FoldWidth int
	Entries   []*Entry
}

// ToLDIF collects entries (any mix of *ldap3.SearchEntry,
// *ldap3.AddRequest, *ldap3.DelRequest, *ldap3.ModifyRequest, or
// slices of those) into an *LDIF.
func ToLDIF(entries ...interface{}) (*LDIF, error) {
	l := &LDIF{}
	for _, e := range entries {
		switch v := e.(type) {
		case []*ldap3.SearchEntry:
			for _, en := range v {
				l.Entries = append(l.Entries, &Entry{Entry: en})
			}
		case *ldap3.SearchEntry:
			l.Entries = append(l.Entries, &Entry{Entry: v})
		case []*ldap3.AddRequest:
			for _, en := range v {
				l.Entries = append(l.Entries, &Entry{Add: en})
			}
		case *ldap3.AddRequest:
			l.Entries = append(l.Entries, &Entry{Add: v})
		case []*ldap3.DelRequest:
			for _, en := range v {
				l.Entries = append(l.Entries, &Entry{Del: en})
			}
		case *ldap3.DelRequest:
			l.Entries = append(l.Entries, &Entry{Del: v})
		case []*ldap3.ModifyRequest:
			for _, en := range v {
				l.Entries = append(l.Entries, &Entry{Modify: en})
			}
		case *ldap3.ModifyRequest:
			l.Entries = append(l.Entries, &Entry{Modify: v})
		default:
			return nil, fmt.Errorf("ldif: unsupported type %T", e)
		}
	}
	return l, nil
}

// Dump writes entries (see ToLDIF) to w as LDIF text.
func Dump(w io.Writer, fw int, entries ...interface{}) error {
	l, err := ToLDIF(entries...)
	if err != nil {
		return err
	}
	l.FoldWidth = fw
	str, err := Marshal(l)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(str))
	return err
}

// Marshal renders l as LDIF text. Fold width 0 uses the 76-column
// default from RFC 2849; a negative width disables folding.
func Marshal(l *LDIF) (string, error) {
	var b strings.Builder
	hasEntry, hasChange := false, false

	if l.Version > 0 {
		b.WriteString("version: 1\n")
	}

	fw := l.FoldWidth
	if fw == 0 {
		fw = foldWidth
	}

	writeAttr := func(name, value string) {
		ev, isBinary := encodeValue(value)
		sep := ": "
		if isBinary {
			sep = ":: "
		}
		b.WriteString(foldLine(name+sep+ev, fw))
		b.WriteByte('\n')
	}

	for _, e := range l.Entries {
		switch {
		case e.Add != nil:
			hasChange = true
			if hasEntry {
				return "", ErrMixed
			}
			b.WriteString(foldLine("dn: "+e.Add.DN, fw) + "\n")
			b.WriteString("changetype: add\n")
			for _, attr := range e.Add.Attributes {
				if len(attr.Vals) == 0 {
					return "", errors.New("ldif: changetype add requires a non-empty value list")
				}
				for _, v := range attr.Vals {
					writeAttr(attr.Type, v)
				}
			}

		case e.Del != nil:
			hasChange = true
			if hasEntry {
				return "", ErrMixed
			}
			b.WriteString(foldLine("dn: "+e.Del.DN, fw) + "\n")
			b.WriteString("changetype: delete\n")

		case e.Modify != nil:
			hasChange = true
			if hasEntry {
				return "", ErrMixed
			}
			b.WriteString(foldLine("dn: "+e.Modify.DN, fw) + "\n")
			b.WriteString("changetype: modify\n")
			for _, ch := range e.Modify.Changes {
				switch ch.Operation {
				case ldap3.ModifyAddAttribute:
					b.WriteString("add: " + ch.Modification.Type + "\n")
				case ldap3.ModifyDeleteAttribute:
					b.WriteString("delete: " + ch.Modification.Type + "\n")
				case ldap3.ModifyReplaceAttribute:
					b.WriteString("replace: " + ch.Modification.Type + "\n")
				}
				for _, v := range ch.Modification.Vals {
					writeAttr(ch.Modification.Type, v)
				}
				b.WriteString("-\n")
			}

		default:
			hasEntry = true
			if hasChange {
				return "", ErrMixed
			}
			if e.Entry == nil {
				continue
			}
			b.WriteString(foldLine("dn: "+e.Entry.DN, fw) + "\n")
			// Attrs is a map; sort its keys so Marshal's output is
			// deterministic rather than following Go's randomized map
			// iteration order.
			names := make([]string, 0, len(e.Entry.Attrs))
			for name := range e.Entry.Attrs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				for _, v := range e.Entry.Attrs[name] {
					writeAttr(name, v)
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func encodeValue(value string) (string, bool) {
	for _, r := range value {
		if r < ' ' || r > '~' {
			return base64.StdEncoding.EncodeToString([]byte(value)), true
		}
	}
	return value, false
}

func foldLine(line string, fw int) string {
	if fw < 0 || len(line) <= fw {
		return line
	}
	var b strings.Builder
	b.WriteString(line[:fw])
	line = line[fw:]
	for len(line) > fw-1 {
		b.WriteByte('\n')
		b.WriteByte(' ')
		b.WriteString(line[:fw-1])
		line = line[fw-1:]
	}
	if len(line) > 0 {
		b.WriteByte('\n')
		b.WriteByte(' ')
		b.WriteString(line)
	}
	return b.String()
}

// Unmarshal parses LDIF text from r into l, appending to any entries
// already present. It supports content records and add/delete/modify
// change records, base64 (::) values, file:// URL values (< syntax),
// continuation lines, and # comments, per RFC 2849.
func Unmarshal(r io.Reader, l *LDIF) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	flush := func() error {
		if len(lines) == 0 {
			return nil
		}
		entry, err := parseRecord(lines)
		lines = nil
		if err != nil {
			return err
		}
		if entry != nil {
			l.Entries = append(l.Entries, entry)
		}
		return nil
	}

	first := true
	for scanner.Scan() {
		raw := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(raw, "version:") {
				l.Version = 1
				continue
			}
		}
		if raw == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(raw, " ") {
			if len(lines) == 0 {
				return errors.New("ldif: continuation line with no preceding line")
			}
			lines[len(lines)-1] += raw[1:]
			continue
		}
		lines = append(lines, raw)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

func parseRecord(lines []string) (*Entry, error) {
	// Strip comment lines (and their folded continuations, already
	// merged above) before interpreting the record.
	kept := lines[:0:0]
	for _, ln := range lines {
		if !strings.HasPrefix(ln, "#") {
			kept = append(kept, ln)
		}
	}
	lines = kept
	if len(lines) == 0 {
		return nil, nil
	}

	dnLine := lines[0]
	if !strings.HasPrefix(dnLine, "dn:") {
		return nil, errors.New("ldif: record does not begin with dn:")
	}
	dn, _, err := parseAttrLine(dnLine)
	if err != nil {
		return nil, err
	}

	changeType := ""
	rest := lines[1:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "changetype:") {
		changeType = strings.TrimSpace(strings.TrimPrefix(rest[0], "changetype:"))
		rest = rest[1:]
	}

	switch changeType {
	case "add":
		req := ldap3.NewAddRequest(dn, nil)
		byAttr := map[string][]string{}
		var order []string
		for _, ln := range rest {
			name, val, err := parseAttrLine(ln)
			if err != nil {
				return nil, err
			}
			if _, ok := byAttr[name]; !ok {
				order = append(order, name)
			}
			byAttr[name] = append(byAttr[name], val)
		}
		for _, name := range order {
			req.Attribute(name, byAttr[name])
		}
		return &Entry{Add: req}, nil

	case "delete":
		return &Entry{Del: ldap3.NewDelRequest(dn, nil)}, nil

	case "modify":
		req := ldap3.NewModifyRequest(dn, nil)
		i := 0
		for i < len(rest) {
			ln := rest[i]
			op, attr, ok := strings.Cut(ln, ":")
			if !ok {
				return nil, fmt.Errorf("ldif: malformed modify op line %q", ln)
			}
			attr = strings.TrimSpace(attr)
			i++
			var vals []string
			for i < len(rest) && rest[i] != "-" {
				_, v, err := parseAttrLine(rest[i])
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
				i++
			}
			if i < len(rest) {
				i++ // consume "-"
			}
			switch op {
			case "add":
				req.Add(attr, vals)
			case "delete":
				req.Delete(attr, vals)
			case "replace":
				req.Replace(attr, vals)
			default:
				return nil, fmt.Errorf("ldif: unknown modify op %q", op)
			}
		}
		return &Entry{Modify: req}, nil

	default:
		entry := &ldap3.SearchEntry{DN: dn, Attrs: map[string][]string{}, BinAttrs: map[string][][]byte{}}
		for _, ln := range rest {
			name, val, err := parseAttrLine(ln)
			if err != nil {
				return nil, err
			}
			entry.Attrs[name] = append(entry.Attrs[name], val)
		}
		return &Entry{Entry: entry}, nil
	}
}

// parseAttrLine decodes one "name: value", "name:: base64", or
// "name:< file://path" line.
func parseAttrLine(line string) (name, value string, err error) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", fmt.Errorf("ldif: malformed attribute line %q", line)
	}
	switch {
	case strings.HasPrefix(rest, ":"):
		val := strings.TrimSpace(rest[1:])
		decoded, err := base64.StdEncoding.DecodeString(val)
		if err != nil {
			return "", "", fmt.Errorf("ldif: invalid base64 value for %s: %w", name, err)
		}
		value = string(decoded)
	case strings.HasPrefix(rest, "<"):
		ref := strings.TrimSpace(rest[1:])
		u, err := url.Parse(ref)
		if err != nil || u.Scheme != "file" {
			return "", "", fmt.Errorf("ldif: unsupported URL reference %q", ref)
		}
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return "", "", err
		}
		value = string(data)
	default:
		value = strings.TrimLeft(rest, " ")
	}
	if name != "dn" && value == "" {
		return "", "", fmt.Errorf("ldif: empty value for attribute %s", name)
	}
	return name, value, nil
}

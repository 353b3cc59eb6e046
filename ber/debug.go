package ber

import (
	"fmt"
	"io"
	"strings"
)

// PrintPacket writes a human-readable dump of the packet tree to stdout.
// It is only ever reached from behind a debug flag; production code paths
// never call it.
func PrintPacket(p *Packet) {
	p.WriteIndent(stdout{}, 0)
}

type stdout struct{}

func (stdout) Write(b []byte) (int, error) { return fmt.Print(string(b)) }

// WriteIndent writes an indented dump of the packet tree to w, used by
// PrintPacket and by tests that want deterministic output.
func (p *Packet) WriteIndent(w io.Writer, depth int) {
	indent := strings.Repeat("  ", depth)
	desc := p.Description
	if desc == "" {
		desc = fmt.Sprintf("tag %d", p.Tag)
	}
	if p.TagType == TypeConstructed {
		fmt.Fprintf(w, "%s%s (%s, %s[%d])\n", indent, desc, p.ClassType, p.TagType, p.Tag)
		for _, c := range p.Children {
			c.WriteIndent(w, depth+1)
		}
		return
	}
	fmt.Fprintf(w, "%s%s (%s, %s[%d]): %v\n", indent, desc, p.ClassType, p.TagType, p.Tag, p.Value)
}

package ldap3

import (
	"fmt"
	"strings"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypeMatchedValues is the MatchedValues control, RFC 3876: it
// restricts which attribute values a search response returns to those
// matching one of the given filters.
const ControlTypeMatchedValues = "1.2.826.0.1.3344810.2.3"

// ControlMatchedValues carries one or more simple match filters (no
// and/or/not per RFC 3876's SimpleFilterItem grammar).
type ControlMatchedValues struct {
	Filters []string
}

func init() {
	RegisterControl(ControlTypeMatchedValues, "Matched Values", &ControlMatchedValues{})
}

func (c *ControlMatchedValues) GetControlType() string { return ControlTypeMatchedValues }

func (c *ControlMatchedValues) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeMatchedValues, "Control Type ("+ControlDescription(ControlTypeMatchedValues)+")"))

	seq := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "ValuesReturnFilter")
	for _, f := range c.Filters {
		if item, err := CompileFilter(f); err == nil {
			seq.AppendChild(item)
		}
	}
	value := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Control Value (MatchedValues)")
	value.Data.Write(seq.Bytes())
	packet.AppendChild(value)
	return packet
}

func (c *ControlMatchedValues) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Filters: %s", ControlDescription(ControlTypeMatchedValues), ControlTypeMatchedValues, strings.Join(c.Filters, ", "))
}

func (c *ControlMatchedValues) Decode(criticality bool, value *ber.Packet) (Control, error) {
	if value == nil || value.Data == nil {
		return &ControlMatchedValues{}, nil
	}
	seq, _, err := ber.ParsePacket(value.Data.Bytes())
	if err != nil {
		return nil, err
	}
	filters := make([]string, 0, len(seq.Children))
	for _, item := range seq.Children {
		f, err := DecompileFilter(item)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &ControlMatchedValues{Filters: filters}, nil
}

// NewControlMatchedValues builds a MatchedValues control.
func NewControlMatchedValues(filters ...string) *ControlMatchedValues {
	return &ControlMatchedValues{Filters: filters}
}

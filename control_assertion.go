package ldap3

import (
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypeAssertion is the LDAP Assertion control, RFC 4528: the
// operation only proceeds if Filter matches the target entry.
const ControlTypeAssertion = "1.3.6.1.1.12"

type ControlAssertion struct {
	Filter string
}

func init() {
	RegisterControl(ControlTypeAssertion, "Assertion", &ControlAssertion{})
}

func (c *ControlAssertion) GetControlType() string { return ControlTypeAssertion }

func (c *ControlAssertion) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeAssertion, "Control Type ("+ControlDescription(ControlTypeAssertion)+")"))

	filterPacket, err := CompileFilter(c.Filter)
	value := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Control Value (Assertion)")
	if err == nil {
		value.Data.Write(filterPacket.Bytes())
	}
	packet.AppendChild(value)
	return packet
}

func (c *ControlAssertion) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Filter: %s", ControlDescription(ControlTypeAssertion), ControlTypeAssertion, c.Filter)
}

func (c *ControlAssertion) Decode(criticality bool, value *ber.Packet) (Control, error) {
	if value == nil || value.Data == nil {
		return &ControlAssertion{}, nil
	}
	filterPacket, _, err := ber.ParsePacket(value.Data.Bytes())
	if err != nil {
		return nil, err
	}
	filterStr, err := DecompileFilter(filterPacket)
	if err != nil {
		return nil, err
	}
	return &ControlAssertion{Filter: filterStr}, nil
}

// NewControlAssertion builds an Assertion control from a RFC 4515 filter.
func NewControlAssertion(filter string) *ControlAssertion {
	return &ControlAssertion{Filter: filter}
}

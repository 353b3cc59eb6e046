package ldap3

import (
	"errors"
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypeRelaxRules is the Relax Rules control, request-only, used to
// ask the server to relax certain schema/constraint enforcement (e.g.
// when restoring a backup). It carries no controlValue.
const ControlTypeRelaxRules = "1.3.6.1.4.1.4203.666.5.12"

type ControlRelaxRules struct {
	Criticality bool
}

func init() {
	RegisterControl(ControlTypeRelaxRules, "Relax Rules", &ControlRelaxRules{})
}

func (c *ControlRelaxRules) GetControlType() string { return ControlTypeRelaxRules }

func (c *ControlRelaxRules) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeRelaxRules, "Control Type ("+ControlDescription(ControlTypeRelaxRules)+")"))
	if c.Criticality {
		packet.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, true, "Criticality"))
	}
	return packet
}

func (c *ControlRelaxRules) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Criticality: %t", ControlDescription(ControlTypeRelaxRules), ControlTypeRelaxRules, c.Criticality)
}

func (c *ControlRelaxRules) Decode(criticality bool, value *ber.Packet) (Control, error) {
	if value != nil && value.Data != nil && value.Data.Len() > 0 {
		return nil, errors.New("ldap3: unexpected RelaxRules control value")
	}
	return &ControlRelaxRules{Criticality: criticality}, nil
}

// NewControlRelaxRules builds a RelaxRules control.
func NewControlRelaxRules(criticality bool) *ControlRelaxRules {
	return &ControlRelaxRules{Criticality: criticality}
}

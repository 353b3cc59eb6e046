package ldap3

import (
	"errors"
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypeManageDsaIT is the ManageDsaIT control, RFC 3296.
const ControlTypeManageDsaIT = "2.16.840.1.113730.3.4.2"

// ControlManageDsaIT tells the server to treat referral/glue entries as
// ordinary entries instead of following or returning a referral. It
// carries no controlValue.
type ControlManageDsaIT struct {
	Criticality bool
}

func init() {
	RegisterControl(ControlTypeManageDsaIT, "Manage DSA IT", &ControlManageDsaIT{})
}

func (c *ControlManageDsaIT) GetControlType() string { return ControlTypeManageDsaIT }

func (c *ControlManageDsaIT) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeManageDsaIT, "Control Type ("+ControlDescription(ControlTypeManageDsaIT)+")"))
	if c.Criticality {
		packet.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, true, "Criticality"))
	}
	return packet
}

func (c *ControlManageDsaIT) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Criticality: %t", ControlDescription(ControlTypeManageDsaIT), ControlTypeManageDsaIT, c.Criticality)
}

func (c *ControlManageDsaIT) Decode(criticality bool, value *ber.Packet) (Control, error) {
	if value != nil && value.Data != nil && value.Data.Len() > 0 {
		return nil, errors.New("ldap3: unexpected ManageDsaIT control value")
	}
	return &ControlManageDsaIT{Criticality: criticality}, nil
}

// NewControlManageDsaIT builds a ManageDsaIT control.
func NewControlManageDsaIT(criticality bool) *ControlManageDsaIT {
	return &ControlManageDsaIT{Criticality: criticality}
}

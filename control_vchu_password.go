package ldap3

import (
	"fmt"
	"strconv"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypeVChuPasswordMustChange is the VChu password-must-change
// control, draft-vchu-ldap-pwd-policy-00.
const ControlTypeVChuPasswordMustChange = "2.16.840.1.113730.3.4.4"

// ControlTypeVChuPasswordWarning is the VChu password expiry warning
// control, draft-vchu-ldap-pwd-policy-00.
const ControlTypeVChuPasswordWarning = "2.16.840.1.113730.3.4.5"

func init() {
	RegisterControl(ControlTypeVChuPasswordMustChange, "VChu Password Must Change", &ControlVChuPasswordMustChange{})
	RegisterControl(ControlTypeVChuPasswordWarning, "VChu Password Warning", &ControlVChuPasswordWarning{})
}

// ControlVChuPasswordMustChange is a response-only control: its presence
// on a bind result means the account's password must be changed before
// any other operation will be permitted.
type ControlVChuPasswordMustChange struct {
	MustChange bool
}

func (c *ControlVChuPasswordMustChange) GetControlType() string {
	return ControlTypeVChuPasswordMustChange
}

// Encode returns the request form: the control carries no value.
func (c *ControlVChuPasswordMustChange) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeVChuPasswordMustChange, "Control Type ("+ControlDescription(ControlTypeVChuPasswordMustChange)+")"))
	return packet
}

func (c *ControlVChuPasswordMustChange) String() string {
	return fmt.Sprintf(
		"Control Type: %s (%q)  MustChange: %v",
		ControlDescription(ControlTypeVChuPasswordMustChange),
		ControlTypeVChuPasswordMustChange,
		c.MustChange)
}

// Decode always reports MustChange true: the server only ever sends this
// control to signal the condition, never to clear it.
func (c *ControlVChuPasswordMustChange) Decode(criticality bool, value *ber.Packet) (Control, error) {
	return &ControlVChuPasswordMustChange{MustChange: true}, nil
}

// ControlVChuPasswordWarning is a response-only control carrying the
// number of seconds remaining before the password expires.
type ControlVChuPasswordWarning struct {
	Expire int64
}

func (c *ControlVChuPasswordWarning) GetControlType() string {
	return ControlTypeVChuPasswordWarning
}

func (c *ControlVChuPasswordWarning) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeVChuPasswordWarning, "Control Type ("+ControlDescription(ControlTypeVChuPasswordWarning)+")"))
	return packet
}

func (c *ControlVChuPasswordWarning) String() string {
	return fmt.Sprintf(
		"Control Type: %s (%q)  Expire: %d",
		ControlDescription(ControlTypeVChuPasswordWarning),
		ControlTypeVChuPasswordWarning,
		c.Expire)
}

// Decode parses the controlValue, a decimal ASCII string rather than a
// BER INTEGER, giving the seconds remaining before expiry.
func (c *ControlVChuPasswordWarning) Decode(criticality bool, value *ber.Packet) (Control, error) {
	expireStr := ber.DecodeString(value.Data.Bytes())
	expire, err := strconv.ParseInt(expireStr, 10, 64)
	if err != nil {
		return nil, err
	}
	return &ControlVChuPasswordWarning{Expire: expire}, nil
}

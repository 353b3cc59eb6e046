package ldap3

import (
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// Control is any LDAPv3 control (RFC 4511 section 4.1.11): a Controls
// SEQUENCE element with a controlType OID, an optional criticality flag,
// and an optional opaque controlValue.
type Control interface {
	GetControlType() string
	Encode() *ber.Packet
	String() string
}

// ControlDecoder is implemented by controls that know how to parse their
// own controlValue out of the wire representation. Controls register a
// decoder (usually a zero-value prototype) via RegisterControl from an
// init() func, the way the Behera and VChu controls in this package do.
type ControlDecoder interface {
	Decode(criticality bool, value *ber.Packet) (Control, error)
}

var controlRegistry = map[string]ControlDecoder{}
var controlNames = map[string]string{}

// RegisterControl associates an OID with a human-readable name and a
// decoder used by DecodeControl. Called from init() in the files that
// implement specific controls.
func RegisterControl(oid, name string, decoder ControlDecoder) {
	controlNames[oid] = name
	if decoder != nil {
		controlRegistry[oid] = decoder
	}
}

// ControlDescription returns the human-readable name registered for oid,
// or oid itself if nothing is registered.
func ControlDescription(oid string) string {
	if name, ok := controlNames[oid]; ok {
		return name
	}
	return oid
}

// ControlString is the fallback representation for any control without a
// registered decoder: controlValue is carried as an opaque string.
type ControlString struct {
	ControlType  string
	Criticality  bool
	ControlValue string
}

func (c *ControlString) GetControlType() string { return c.ControlType }

func (c *ControlString) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, c.ControlType, "Control Type ("+ControlDescription(c.ControlType)+")"))
	if c.Criticality {
		packet.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, true, "Criticality"))
	}
	if c.ControlValue != "" {
		packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, c.ControlValue, "Control Value"))
	}
	return packet
}

func (c *ControlString) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Criticality: %t  Control Value: %s",
		ControlDescription(c.ControlType), c.ControlType, c.Criticality, c.ControlValue)
}

// NewControlString builds an opaque control for OIDs this package has no
// dedicated type for.
func NewControlString(controlType string, criticality bool, controlValue string) *ControlString {
	return &ControlString{ControlType: controlType, Criticality: criticality, ControlValue: controlValue}
}

// FindControl returns the first control of the given OID, or nil.
func FindControl(controls []Control, controlType string) Control {
	for _, c := range controls {
		if c.GetControlType() == controlType {
			return c
		}
	}
	return nil
}

// DecodeControl decodes a single Control SEQUENCE element off the wire,
// dispatching to a registered ControlDecoder when one exists for the
// OID, and falling back to ControlString otherwise.
func DecodeControl(packet *ber.Packet) Control {
	controlType, _ := packet.Children[0].Value.(string)
	packet.Children[0].Description = "Control Type (" + ControlDescription(controlType) + ")"

	criticality := false
	value := ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "", "Control Value")
	for i, child := range packet.Children[1:] {
		if b, isBool := child.Value.(bool); isBool && i == 0 {
			child.Description = "Criticality"
			criticality = b
			continue
		}
		value = child
		value.Description = "Control Value"
	}

	if decoder, ok := controlRegistry[controlType]; ok {
		if decoded, err := decoder.Decode(criticality, value); err == nil {
			return decoded
		}
	}

	valueString, _ := value.Value.(string)
	return &ControlString{ControlType: controlType, Criticality: criticality, ControlValue: valueString}
}

// encodeControls wraps controls in the Controls [0] SEQUENCE OF Control
// element appended to an LDAPMessage envelope.
func encodeControls(controls []Control) *ber.Packet {
	packet := ber.NewPacket(ber.ClassContext, ber.TypeConstructed, 0, "Controls")
	for _, c := range controls {
		packet.AppendChild(c.Encode())
	}
	return packet
}

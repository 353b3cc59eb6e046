package ldap3

import (
	"fmt"

	"github.com/nmorey/ldap3/ber"
)

// ControlTypeBeheraPasswordPolicy is the Behera password policy control,
// draft-behera-ldap-password-policy-10.
const ControlTypeBeheraPasswordPolicy = "1.3.6.1.4.1.42.2.27.8.5.1"

// BeheraPasswordPolicyErrorMap maps a ControlBeheraPasswordPolicy.Error
// code to a human-readable description.
var BeheraPasswordPolicyErrorMap = map[int8]string{
	0:  "Password expired",
	1:  "Account locked",
	2:  "Change after reset",
	3:  "Password modification not allowed",
	4:  "Must supply old password",
	5:  "Insufficient password quality",
	6:  "Password too short",
	7:  "Password too young",
	8:  "Password in history",
	-1: "",
}

// ControlBeheraPasswordPolicy reports a server's password policy state,
// attached to bind or modify results. Expire and Grace are -1 when the
// server did not send that warning; Error is -1 when the server did not
// send an error.
type ControlBeheraPasswordPolicy struct {
	// Expire is the number of seconds before the password expires.
	Expire int64
	// Grace is the number of remaining grace authentications allowed
	// with an expired password.
	Grace int64
	// Error is the password policy error code, or -1 if none.
	Error int8
	// ErrorString is BeheraPasswordPolicyErrorMap[Error].
	ErrorString string
}

func init() {
	RegisterControl(ControlTypeBeheraPasswordPolicy, "Password Policy - Behera Draft", &ControlBeheraPasswordPolicy{})
}

func (c *ControlBeheraPasswordPolicy) GetControlType() string {
	return ControlTypeBeheraPasswordPolicy
}

// Encode returns the request form of the control: an empty controlValue,
// since the request carries no warning/error fields of its own.
func (c *ControlBeheraPasswordPolicy) Encode() *ber.Packet {
	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeBeheraPasswordPolicy, "Control Type ("+ControlDescription(ControlTypeBeheraPasswordPolicy)+")"))
	return packet
}

func (c *ControlBeheraPasswordPolicy) String() string {
	return fmt.Sprintf(
		"Control Type: %s (%q)  Expire: %d  Grace: %d  Error: %d, ErrorString: %s",
		ControlDescription(ControlTypeBeheraPasswordPolicy),
		ControlTypeBeheraPasswordPolicy,
		c.Expire,
		c.Grace,
		c.Error,
		c.ErrorString)
}

// Decode parses a PasswordPolicyResponseValue:
//
//	SEQUENCE {
//	    warning [0] CHOICE {
//	        timeBeforeExpiration [0] INTEGER,
//	        graceAuthNsRemaining [1] INTEGER } OPTIONAL,
//	    error   [1] ENUMERATED OPTIONAL }
func (c *ControlBeheraPasswordPolicy) Decode(criticality bool, value *ber.Packet) (Control, error) {
	seq, _, err := ber.ParsePacket(value.Data.Bytes())
	if err != nil {
		return nil, err
	}

	result := &ControlBeheraPasswordPolicy{Expire: -1, Grace: -1, Error: -1}
	for _, child := range seq.Children {
		switch child.Tag {
		case 0:
			if len(child.Children) != 1 {
				return nil, NewError(ErrorUnexpectedResponse, fmt.Errorf("ldap3: malformed password policy warning"))
			}
			warning := child.Children[0]
			val := ber.DecodeInteger(warning.Data.Bytes())
			switch warning.Tag {
			case 0:
				result.Expire = val
			case 1:
				result.Grace = val
			}
		case 1:
			result.Error = int8(ber.DecodeInteger(child.Data.Bytes()))
			result.ErrorString = BeheraPasswordPolicyErrorMap[result.Error]
		}
	}
	return result, nil
}

// NewControlBeheraPasswordPolicy builds a request-side password policy
// control.
func NewControlBeheraPasswordPolicy() *ControlBeheraPasswordPolicy {
	return &ControlBeheraPasswordPolicy{Expire: -1, Grace: -1, Error: -1}
}

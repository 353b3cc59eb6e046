// Package gssapi implements ldap3.SASLMechanism for the GSS-SPNEGO SASL
// mechanism using Kerberos service tickets via gokrb5.
package gssapi

import (
	"fmt"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/crypto"
	"github.com/jcmturner/gokrb5/v8/gssapi"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/jcmturner/gokrb5/v8/types"
)

// Mechanism drives the GSS-SPNEGO bind handshake: an AP-REQ carrying a
// service ticket, the server's AP-REP (or KRBError), and a final
// security-layer negotiation wrap/unwrap exchange per RFC 4752 section
// 3.1. A security layer is never actually installed — the negotiated
// layer is always "no security layer" (SASL qop NONE) — matching the
// behavior of a client that only wants GSSAPI for authentication.
type Mechanism struct {
	AuthzID string

	token  spnego.KRB5Token
	ekey   types.EncryptionKey
	subkey types.EncryptionKey
	step   int
}

// New builds a Mechanism by obtaining a service ticket for principal
// from krbClient.
func New(krbClient *client.Client, principal, authzID string) (*Mechanism, error) {
	tkt, ekey, err := krbClient.GetServiceTicket(principal)
	if err != nil {
		return nil, err
	}
	token, err := spnego.NewKRB5TokenAPREQ(krbClient, tkt, ekey,
		[]int{gssapi.ContextFlagInteg, gssapi.ContextFlagConf, gssapi.ContextFlagMutual}, []int{})
	if err != nil {
		return nil, err
	}
	return &Mechanism{AuthzID: authzID, ekey: ekey, token: token}, nil
}

func (m *Mechanism) Name() string { return "GSS-SPNEGO" }

func (m *Mechanism) Step(challenge []byte) (response []byte, done bool, err error) {
	switch m.step {
	case 0:
		m.step++
		resp, err := m.token.Marshal()
		return resp, false, err
	case 1:
		m.step++
		if err := m.token.Unmarshal(challenge); err != nil {
			return nil, false, err
		}
		if m.token.IsKRBError() {
			return nil, false, m.token.KRBError
		}
		if m.token.IsAPRep() {
			encpart, err := crypto.DecryptEncPart(m.token.APRep.EncPart, m.ekey, keyusage.AP_REP_ENCPART)
			if err != nil {
				return nil, false, err
			}
			part := &messages.EncAPRepPart{}
			if err := part.Unmarshal(encpart); err != nil {
				return nil, false, err
			}
			m.subkey = part.Subkey
		}
		return []byte{}, false, nil
	default:
		m.step++
		return m.wrapSecurityLayerToken(challenge)
	}
}

func (m *Mechanism) wrapSecurityLayerToken(challenge []byte) ([]byte, bool, error) {
	token := &gssapi.WrapToken{}
	if err := token.Unmarshal(challenge, true); err != nil {
		return nil, false, err
	}
	if token.Flags&0b1 == 0 {
		return nil, false, fmt.Errorf("ldap3/sasl/gssapi: wrap token not from acceptor")
	}

	key := m.ekey
	if token.Flags&0b100 != 0 {
		key = m.subkey
	}
	if _, err := token.Verify(key, keyusage.GSSAPI_ACCEPTOR_SEAL); err != nil {
		return nil, false, err
	}
	if len(token.Payload) != 4 {
		return nil, false, fmt.Errorf("ldap3/sasl/gssapi: malformed security layer negotiation token")
	}

	noSecurityLayer := [4]byte{0, 0, 0, 0}
	payload := append(noSecurityLayer[:], []byte(m.AuthzID)...)

	encType, err := crypto.GetEtype(key.KeyType)
	if err != nil {
		return nil, false, err
	}
	out := &gssapi.WrapToken{
		Flags:     0b100,
		EC:        uint16(encType.GetHMACBitLength() / 8),
		SndSeqNum: 1,
		Payload:   payload,
	}
	if err := out.SetCheckSum(key, keyusage.GSSAPI_INITIATOR_SEAL); err != nil {
		return nil, false, err
	}
	final, err := out.Marshal()
	return final, true, err
}

// Package ntlm implements ldap3.SASLMechanism for NTLM authentication
// against Active Directory-backed directories, using Azure/go-ntlmssp
// for the NEGOTIATE/CHALLENGE/AUTHENTICATE message encoding.
package ntlm

import (
	"fmt"

	"github.com/Azure/go-ntlmssp"
)

// Mechanism drives the two-message NTLM handshake: a NEGOTIATE message
// sent first, then an AUTHENTICATE message built from the server's
// CHALLENGE and the configured credentials.
type Mechanism struct {
	Domain   string
	Username string
	Password string

	step int
}

// New builds a Mechanism for domain\username authenticating with
// password.
func New(domain, username, password string) *Mechanism {
	return &Mechanism{Domain: domain, Username: username, Password: password}
}

func (m *Mechanism) Name() string { return "NTLM" }

func (m *Mechanism) Step(challenge []byte) (response []byte, done bool, err error) {
	switch m.step {
	case 0:
		m.step++
		negotiate, err := ntlmssp.NewNegotiateMessage(m.Domain, "")
		return negotiate, false, err
	case 1:
		m.step++
		authenticate, err := ntlmssp.ProcessChallenge(challenge, m.Username, m.Password)
		return authenticate, true, err
	default:
		return nil, true, fmt.Errorf("ldap3/sasl/ntlm: unexpected extra challenge after AUTHENTICATE")
	}
}

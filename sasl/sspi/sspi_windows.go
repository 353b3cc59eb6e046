// Package sspi implements ldap3.SASLMechanism for GSS-SPNEGO using the
// native Windows SSPI credential store instead of gokrb5, so a process
// running as a domain user can bind without handling Kerberos tickets
// itself.
package sspi

import (
	"github.com/alexbrainman/sspi"
	"github.com/alexbrainman/sspi/negotiate"
)

// Mechanism drives the SSPI negotiate handshake using the calling
// process's logon session credentials.
type Mechanism struct {
	AuthzID string
	target  string

	cred *sspi.Credentials
	ctx  *negotiate.ClientContext
	done bool
}

// New builds a Mechanism that authenticates to the given SPN (e.g.
// "ldap/dc01.example.com") using the current process's credentials.
func New(target, authzID string) (*Mechanism, error) {
	cred, err := negotiate.AcquireCurrentUserCredentials()
	if err != nil {
		return nil, err
	}
	return &Mechanism{AuthzID: authzID, target: target, cred: cred}, nil
}

func (m *Mechanism) Name() string { return "GSS-SPNEGO" }

func (m *Mechanism) Step(challenge []byte) (response []byte, done bool, err error) {
	if m.done {
		return nil, true, nil
	}

	if m.ctx == nil {
		ctx, token, err := negotiate.NewClientContext(m.cred, m.target)
		if err != nil {
			return nil, false, err
		}
		m.ctx = ctx
		return token, false, nil
	}

	authCompleted, token, err := m.ctx.Update(challenge)
	if err != nil {
		return nil, false, err
	}
	if authCompleted {
		m.done = true
	}
	return token, authCompleted, nil
}

// Close releases the underlying SSPI credential handle and security
// context. Callers must call Close once the bind completes.
func (m *Mechanism) Close() error {
	if m.ctx != nil {
		m.ctx.Release()
	}
	if m.cred != nil {
		return m.cred.Release()
	}
	return nil
}

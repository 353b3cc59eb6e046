package ldap3

import (
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// DialURL connects to the server named by a ldap://, ldaps:// or
// ldapi:// URL and returns a ready Conn.
//
//   - ldap://host[:port]   — plaintext TCP, default port 389. IPv6
//     literals are accepted in the usual bracketed host form.
//   - ldaps://host[:port]  — TLS over TCP, default port 636. A
//     hostname is required: the host is needed for SNI and peer
//     verification, so a bare IP literal is rejected.
//   - ldapi://path         — Unix domain socket at path.
func DialURL(addr string, opts ...DialOpt) (*Conn, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, NewError(ErrorNetwork, err)
	}

	o := dialOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	switch u.Scheme {
	case "ldap":
		return dialTCP(u, "389", &o, false)
	case "ldaps":
		host := u.Hostname()
		if host == "" || net.ParseIP(host) != nil {
			return nil, NewError(ErrorNetwork, errors.New("ldap3: ldaps:// URL requires a hostname"))
		}
		sni, err := normalizeIDNHost(host)
		if err != nil {
			return nil, NewError(ErrorNetwork, err)
		}
		tlsConfig := o.tlsConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		} else {
			tlsConfig = tlsConfig.Clone()
		}
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = sni
		}
		o.tlsConfig = tlsConfig
		return dialTCP(u, "636", &o, true)
	case "ldapi":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return dialUnix(path, &o)
	default:
		return nil, NewError(ErrorNetwork, errors.New("ldap3: unsupported URL scheme "+u.Scheme))
	}
}

func dialTCP(u *url.URL, defaultPort string, o *dialOptions, useTLS bool) (*Conn, error) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	addr := net.JoinHostPort(host, port)

	dialer := o.dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	if useTLS {
		transport, err := tls.DialWithDialer(dialer, "tcp", addr, o.tlsConfig)
		if err != nil {
			return nil, NewError(ErrorNetwork, err)
		}
		return NewConn(transport, true), nil
	}

	transport, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, NewError(ErrorNetwork, err)
	}
	return NewConn(transport, false), nil
}

func dialUnix(path string, o *dialOptions) (*Conn, error) {
	dialer := o.dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	transport, err := dialer.Dial("unix", path)
	if err != nil {
		return nil, NewError(ErrorNetwork, err)
	}
	return NewConn(transport, false), nil
}

// dialOptions collects the settings DialOpt functions populate.
type dialOptions struct {
	dialer    *net.Dialer
	tlsConfig *tls.Config
}

// DialOpt configures DialURL.
type DialOpt func(*dialOptions)

// DialWithDialer overrides the *net.Dialer used for TCP/Unix dials,
// e.g. to set a connect timeout.
func DialWithDialer(d *net.Dialer) DialOpt {
	return func(o *dialOptions) { o.dialer = d }
}

// DialWithTLSConfig sets the *tls.Config used for ldaps:// dials. It does
// not apply to StartTLS, which takes its own *tls.Config argument.
func DialWithTLSConfig(config *tls.Config) DialOpt {
	return func(o *dialOptions) { o.tlsConfig = config }
}

// normalizeIDNHost converts an IDN hostname to its ASCII (punycode)
// form, leaving already-ASCII hosts untouched.
func normalizeIDNHost(host string) (string, error) {
	if strings.HasPrefix(host, "xn--") || isASCII(host) {
		return host, nil
	}
	return idna.Lookup.ToASCII(host)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Package passwordmodify implements the RFC 3062 Password Modify
// extended operation on top of a ldap3.Conn.
package passwordmodify

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/ber"
)

// OID is the LDAPOID of the Password Modify extended operation.
const OID = "1.3.6.1.4.1.4203.1.11.1"

// Request is a Password Modify request, RFC 3062 section 1.
//
// UserID identifies the user whose password is changing; an empty
// string asks the server to use the identity of the bound connection.
// OldPassword, if present, must match the user's current password.
// NewPassword, if present, becomes the new password; if empty, the
// server generates one and returns it.
type Request struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// Response is the decoded Password Modify response.
type Response struct {
	// GeneratedPassword is set when the caller left NewPassword empty
	// and the server generated one.
	GeneratedPassword string
}

// Modify performs a Password Modify extended operation over conn.
func Modify(conn *ldap3.Conn, req *Request) (*Response, error) {
	seq := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Password Modify Request")
	if req.UserID != "" {
		seq.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 0, req.UserID, "User Identity"))
	}
	if req.OldPassword != "" {
		seq.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 1, req.OldPassword, "Old Password"))
	}
	if req.NewPassword != "" {
		seq.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 2, req.NewPassword, "New Password"))
	}

	var value []byte
	if len(seq.Children) > 0 {
		value = seq.Bytes()
	}

	resp, err := conn.Extended(ldap3.NewExtendedRequest(OID, value))
	if err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return &Response{}, nil
	}

	respSeq, _, err := ber.ParsePacket(resp.Value)
	if err != nil {
		return nil, err
	}
	if respSeq == nil || len(respSeq.Children) == 0 {
		return nil, errors.New("ldap3: malformed Password Modify response")
	}
	generated := respSeq.Children[0]
	if generated.ClassType != ber.ClassContext || generated.Tag != 0 || generated.Data == nil {
		return nil, errors.New("ldap3: Password Modify response missing generated password")
	}
	return &Response{GeneratedPassword: string(generated.Data.Bytes())}, nil
}

// GeneratePassword derives a random printable password client-side
// using PBKDF2 over a random salt, for callers that want to choose
// the new password locally (e.g. to enforce a site password policy)
// rather than send an empty NewPassword and trust the server's
// generator.
func GeneratePassword(passphrase string, length int) (string, error) {
	if length <= 0 {
		length = 16
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	derived := pbkdf2.Key([]byte(passphrase), salt, 4096, length, sha256.New)

	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, length)
	for i, b := range derived {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

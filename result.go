package ldap3

import "github.com/nmorey/ldap3/ber"

// LdapResult is the common LDAPResult SEQUENCE (RFC 4511 section 4.1.9)
// embedded at the front of every response protocolOp (BindResponse,
// SearchResultDone, ModifyResponse, ...).
type LdapResult struct {
	ResultCode uint16
	MatchedDN  string
	Diagnostic string
	Referrals  []string
	Controls   []Control
}

// parseLdapResult reads the LDAPResult COMPONENTS OF prefix off a
// protocolOp packet: resultCode, matchedDN, diagnosticMessage, and an
// optional [3] referral SEQUENCE. Callers that need fields beyond this
// prefix (e.g. ExtendedResponse's responseName/response) read the
// children after it themselves.
func parseLdapResult(op *ber.Packet) *LdapResult {
	res := &LdapResult{}
	if op == nil || len(op.Children) < 3 {
		return res
	}
	if code, ok := op.Children[0].Value.(int64); ok {
		res.ResultCode = uint16(code)
	}
	if dn, ok := op.Children[1].Value.(string); ok {
		res.MatchedDN = dn
	}
	if msg, ok := op.Children[2].Value.(string); ok {
		res.Diagnostic = msg
	}
	for _, child := range op.Children[3:] {
		if child.Tag != 3 {
			continue
		}
		for _, ref := range child.Children {
			if s, ok := ref.Value.(string); ok {
				res.Referrals = append(res.Referrals, s)
			}
		}
	}
	return res
}

// extractControls reads the optional Controls element (Context tag 0 at
// the top level of an LDAPMessage envelope, a sibling of protocolOp) and
// decodes each control via the control registry.
func extractControls(envelope *ber.Packet) []Control {
	if len(envelope.Children) < 3 {
		return nil
	}
	controlsPacket := envelope.Children[2]
	if controlsPacket.ClassType != ber.ClassContext || controlsPacket.Tag != 0 {
		return nil
	}
	var controls []Control
	for _, c := range controlsPacket.Children {
		controls = append(controls, DecodeControl(c))
	}
	return controls
}

package ldap3

import "github.com/nmorey/ldap3/ber"

// ModifyDNRequest renames or moves an entry.
//
//	ModifyDNRequest ::= [APPLICATION 12] SEQUENCE {
//	     entry           LDAPDN,
//	     newrdn          RelativeLDAPDN,
//	     deleteoldrdn    BOOLEAN,
//	     newSuperior     [0] LDAPDN OPTIONAL }
type ModifyDNRequest struct {
	DN           string
	NewRDN       string
	DeleteOldRDN bool
	NewSuperior  string
	Controls     []Control
}

// NewModifyDNRequest builds a ModifyDNRequest. Leave newSup empty to
// rename in place; to move without renaming, rdn must be the entry's
// existing first RDN.
func NewModifyDNRequest(dn, rdn string, delOld bool, newSup string) *ModifyDNRequest {
	return &ModifyDNRequest{DN: dn, NewRDN: rdn, DeleteOldRDN: delOld, NewSuperior: newSup}
}

// ModifyDN renames the entry and optionally moves it to a new superior.
func (c *Conn) ModifyDN(req *ModifyDNRequest) error {
	p := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationModifyDNRequest, "Modify DN Request")
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.DN, "DN"))
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.NewRDN, "New RDN"))
	p.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, req.DeleteOldRDN, "Delete Old RDN"))
	if req.NewSuperior != "" {
		p.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 0, req.NewSuperior, "New Superior"))
	}

	envelope, err := c.doRequest(p, req.Controls...)
	if err != nil {
		return err
	}
	return success(parseLdapResult(envelope.Children[1]))
}

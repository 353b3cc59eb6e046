// Package adapter provides Search stream middleware implementing
// ldap3's Adapter interface: EntriesOnly collapses referrals and
// intermediate responses into the plain entry stream the pre-adapter
// library presented, and PagedResults drives RFC 2696 paging
// transparently across multiple wire searches.
package adapter

import "github.com/nmorey/ldap3"

// EntriesOnly filters a Search stream down to directory entries only:
// referral URIs are collected and appended to the final LdapResult's
// Referrals, and intermediate responses are discarded.
type EntriesOnly struct {
	refs []string
}

// NewEntriesOnly builds an EntriesOnly adapter.
func NewEntriesOnly() *EntriesOnly { return &EntriesOnly{} }

func (a *EntriesOnly) Start(s *ldap3.SearchStream, next func() error) error {
	a.refs = nil
	return next()
}

func (a *EntriesOnly) Next(s *ldap3.SearchStream, next func() (*ldap3.RawEntry, error)) (*ldap3.RawEntry, error) {
	for {
		re, err := next()
		if err != nil || re == nil {
			return re, err
		}
		switch re.Kind {
		case ldap3.RawKindIntermediate:
			continue
		case ldap3.RawKindReference:
			a.refs = append(a.refs, re.Referrals...)
			continue
		default:
			return re, nil
		}
	}
}

func (a *EntriesOnly) Finish(s *ldap3.SearchStream, next func() *ldap3.LdapResult) *ldap3.LdapResult {
	res := next()
	if res != nil {
		res.Referrals = append(res.Referrals, a.refs...)
	}
	return res
}

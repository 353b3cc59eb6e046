package adapter

import (
	"errors"

	"github.com/nmorey/ldap3"
)

// PagedResults drives RFC 2696 simple paged results across multiple
// wire Search operations, presenting the whole result set as one
// stream. The wrapped SearchRequest must not already carry a paging
// control.
type PagedResults struct {
	pageSize uint32

	baseControls []ldap3.Control
	cookie       []byte
	done         bool
}

// NewPagedResults builds a PagedResults adapter requesting pageSize
// entries per page.
func NewPagedResults(pageSize uint32) *PagedResults {
	return &PagedResults{pageSize: pageSize}
}

func (a *PagedResults) Start(s *ldap3.SearchStream, next func() error) error {
	for _, c := range s.Request.Controls {
		if c.GetControlType() == ldap3.ControlTypePaging {
			return errors.New("ldap3/adapter: search request already carries a PagedResults control")
		}
	}
	a.baseControls = s.Request.Controls
	a.cookie = nil
	a.done = false
	s.Request.Controls = append(append([]ldap3.Control{}, a.baseControls...), ldap3.NewControlPaging(a.pageSize))
	return next()
}

func (a *PagedResults) Next(s *ldap3.SearchStream, next func() (*ldap3.RawEntry, error)) (*ldap3.RawEntry, error) {
	for {
		re, err := next()
		if err != nil {
			return nil, err
		}
		if re != nil {
			return re, nil
		}
		// End of this page: look for the server's response paging
		// control to decide whether another page follows.
		if a.done {
			return nil, nil
		}
		cookie := a.responseCookie(s)
		if len(cookie) == 0 {
			a.done = true
			return nil, nil
		}
		a.cookie = cookie
		s.Request.Controls = append(append([]ldap3.Control{}, a.baseControls...), &ldap3.ControlPaging{PagingSize: a.pageSize, Cookie: a.cookie})
		if err := s.Restart(); err != nil {
			return nil, err
		}
	}
}

func (a *PagedResults) responseCookie(s *ldap3.SearchStream) []byte {
	res := s.LastResult()
	if res == nil {
		return nil
	}
	for _, c := range res.Controls {
		if pc, ok := c.(*ldap3.ControlPaging); ok {
			return pc.Cookie
		}
	}
	return nil
}

func (a *PagedResults) Finish(s *ldap3.SearchStream, next func() *ldap3.LdapResult) *ldap3.LdapResult {
	res := next()
	if res == nil {
		return res
	}
	controls := make([]ldap3.Control, 0, len(res.Controls))
	for _, c := range res.Controls {
		if c.GetControlType() == ldap3.ControlTypePaging {
			continue
		}
		controls = append(controls, c)
	}
	res.Controls = controls
	return res
}

package ldap3

import (
	"fmt"
	"unicode/utf8"

	"github.com/nmorey/ldap3/ber"
)

// Search scope values, RFC 4511 section 4.5.1.
const (
	ScopeBaseObject   = 0
	ScopeSingleLevel  = 1
	ScopeWholeSubtree = 2
)

var ScopeMap = map[int]string{
	ScopeBaseObject:   "Base Object",
	ScopeSingleLevel:  "Single Level",
	ScopeWholeSubtree: "Whole Subtree",
}

// Alias dereferencing policy values, RFC 4511 section 4.5.1.
const (
	NeverDerefAliases   = 0
	DerefInSearching    = 1
	DerefFindingBaseObj = 2
	DerefAlways         = 3
)

var DerefMap = map[int]string{
	NeverDerefAliases:   "Never Deref Aliases",
	DerefInSearching:    "Deref In Searching",
	DerefFindingBaseObj: "Deref Finding Base Object",
	DerefAlways:         "Deref Always",
}

// SearchRequest holds the parameters of a Search operation. A stream may
// mutate Filter, Attributes, or Controls between pages (the PagedResults
// adapter does exactly this), so the struct is kept, not consumed, by the
// stream.
type SearchRequest struct {
	BaseDN       string
	Scope        int
	DerefAliases int
	SizeLimit    int
	TimeLimit    int
	TypesOnly    bool
	Filter       string
	Attributes   []string
	Controls     []Control
}

// NewSearchRequest builds a SearchRequest from positional parameters.
func NewSearchRequest(baseDN string, scope, derefAliases, sizeLimit, timeLimit int, typesOnly bool, filter string, attributes []string, controls []Control) *SearchRequest {
	return &SearchRequest{
		BaseDN:       baseDN,
		Scope:        scope,
		DerefAliases: derefAliases,
		SizeLimit:    sizeLimit,
		TimeLimit:    timeLimit,
		TypesOnly:    typesOnly,
		Filter:       filter,
		Attributes:   attributes,
		Controls:     controls,
	}
}

// SearchEntry is the consumer-facing conversion of a SearchResultEntry.
// Conversion to string happens lazily, once, when RawEntry.Entry() is
// called: each value is attempted as UTF-8; on the first failure for an
// attribute, that value and all subsequent values of the same attribute
// go to BinAttrs, and any values already converted to Attrs for that same
// attribute are moved to BinAttrs too, so an attribute never straddles
// both maps.
type SearchEntry struct {
	DN       string
	Attrs    map[string][]string
	BinAttrs map[string][][]byte
}

// GetAttributeValues returns the string values of attribute, or nil.
func (e *SearchEntry) GetAttributeValues(attribute string) []string {
	return e.Attrs[attribute]
}

// GetAttributeValue returns the first string value of attribute, or "".
func (e *SearchEntry) GetAttributeValue(attribute string) string {
	v := e.Attrs[attribute]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// RawEntryKind distinguishes the three PDU shapes a Search stream can
// deliver before SearchResultDone.
type RawEntryKind int

const (
	RawKindEntry RawEntryKind = iota
	RawKindReference
	RawKindIntermediate
)

// RawEntry is one undecoded item pulled off a Search stream: either an
// entry (lazy-converted to *SearchEntry via Entry()), a set of referral
// URIs, or an intermediate response (used by the syncrepl/content-sync
// adapter).
type RawEntry struct {
	Kind RawEntryKind

	dn        string
	rawAttrs  []*ber.Packet
	Referrals []string
	IntName   string
	IntValue  []byte

	// Controls holds the envelope-level response controls sent alongside
	// this message (e.g. a syncrepl Sync State control on a
	// SearchResultEntry). Most deployments never populate this.
	Controls []Control
}

// Entry lazily converts a RawKindEntry item into a *SearchEntry.
func (r *RawEntry) Entry() *SearchEntry {
	entry := &SearchEntry{DN: r.dn, Attrs: map[string][]string{}, BinAttrs: map[string][][]byte{}}
	for _, child := range r.rawAttrs {
		if len(child.Children) < 2 {
			continue
		}
		name, _ := child.Children[0].Value.(string)
		var strs []string
		var bins [][]byte
		binary := false
		for _, v := range child.Children[1].Children {
			raw := v.Data.Bytes()
			if !binary && utf8.Valid(raw) {
				strs = append(strs, string(raw))
				continue
			}
			if !binary {
				binary = true
				for _, s := range strs {
					bins = append(bins, []byte(s))
				}
				strs = nil
			}
			bins = append(bins, raw)
		}
		if binary {
			entry.BinAttrs[name] = bins
		} else {
			entry.Attrs[name] = strs
		}
	}
	return entry
}

type streamState int

const (
	streamCreated streamState = iota
	streamActive
	streamDrained
	streamFinished
)

// Adapter is search middleware composed around the raw Search stream.
// Each hook receives a continuation closure bound to the next adapter in
// the chain (or the raw stream operation, at the end of the chain);
// forwarding exactly once per call is the adapter's responsibility.
type Adapter interface {
	Start(s *SearchStream, next func() error) error
	Next(s *SearchStream, next func() (*RawEntry, error)) (*RawEntry, error)
	Finish(s *SearchStream, next func() *LdapResult) *LdapResult
}

// SearchStream is the handle returned by Conn.Search. It proceeds through
// Created -> Active -> Drained -> Finished; Restart returns a drained
// stream to Active for another round of Next() calls.
type SearchStream struct {
	conn    *Conn
	Request *SearchRequest

	ctx   *messageContext
	state streamState
	result *LdapResult

	startChain  func() error
	nextChain   func() (*RawEntry, error)
	finishChain func() *LdapResult
}

// Search dispatches a Search operation wrapped by the given adapters
// (outermost first) and returns its stream handle. The wire request is
// not sent until the stream's first Next() call.
func (c *Conn) Search(req *SearchRequest, adapters ...Adapter) *SearchStream {
	if opts := c.consumeSearchOptions(); opts != nil {
		req.SizeLimit = opts.SizeLimit
		req.TimeLimit = opts.TimeLimit
		req.TypesOnly = opts.TypesOnly
	}
	s := &SearchStream{conn: c, Request: req}

	s.startChain = s.rawStart
	s.nextChain = s.rawNext
	s.finishChain = s.rawFinish
	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		prevStart, prevNext, prevFinish := s.startChain, s.nextChain, s.finishChain
		s.startChain = func() error { return a.Start(s, prevStart) }
		s.nextChain = func() (*RawEntry, error) { return a.Next(s, prevNext) }
		s.finishChain = func() *LdapResult { return a.Finish(s, prevFinish) }
	}
	return s
}

// Next advances the stream, returning the next entry, (nil, nil) at
// end-of-stream, or an error. After (nil, nil) the caller should call
// Finish.
func (s *SearchStream) Next() (*RawEntry, error) {
	if s.state == streamCreated {
		if err := s.startChain(); err != nil {
			return nil, err
		}
		s.state = streamActive
	}
	if s.state != streamActive {
		return nil, nil
	}
	return s.nextChain()
}

// Finish completes the stream and returns the captured LdapResult. If
// called before the stream is drained, the pending operation is
// deregistered and a synthetic rc=88 (LDAPResultCanceled) result is
// returned; no AbandonRequest is sent to the server.
func (s *SearchStream) Finish() *LdapResult {
	return s.finishChain()
}

// LastResult returns the LdapResult captured from the most recently
// completed SearchResultDone without transitioning the stream to
// Finished, so an adapter can inspect response Controls (e.g. the
// PagedResults cookie) between pages and decide whether to Restart.
// It returns nil if the current page has not yet reached
// SearchResultDone.
func (s *SearchStream) LastResult() *LdapResult {
	return s.result
}

// LastID returns the message ID of the most recent wire SearchRequest
// issued by this stream, for Abandon coordination.
func (s *SearchStream) LastID() uint64 {
	if s.ctx == nil {
		return 0
	}
	return s.ctx.id
}

// Restart re-issues the underlying wire SearchRequest using the current
// Request/Controls (the PagedResults adapter calls this after mutating
// the paging cookie control) and reopens the stream for a fresh round
// of Next() calls.
func (s *SearchStream) Restart() error {
	s.result = nil
	if err := s.rawStart(); err != nil {
		return err
	}
	s.state = streamActive
	return nil
}

func (s *SearchStream) rawStart() error {
	packet, err := buildSearchRequestPacket(s.Request)
	if err != nil {
		return err
	}
	ctx, err := s.conn.sendMessage(packet, s.Request.Controls...)
	if err != nil {
		return err
	}
	s.ctx = ctx
	return nil
}

func (s *SearchStream) rawNext() (*RawEntry, error) {
	envelope, ok := <-s.ctx.responses
	if !ok {
		s.state = streamDrained
		return nil, s.conn.transportError()
	}
	op := envelope.Children[1]
	switch op.Tag {
	case ApplicationSearchResultDone:
		s.result = parseLdapResult(op)
		s.result.Controls = extractControls(envelope)
		s.state = streamDrained
		return nil, nil
	case ApplicationSearchResultEntry:
		return &RawEntry{Kind: RawKindEntry, dn: decodeAttr(op.Children[0]), rawAttrs: op.Children[1].Children, Controls: extractControls(envelope)}, nil
	case ApplicationSearchResultReference:
		var refs []string
		for _, uri := range op.Children {
			if s, ok := uri.Value.(string); ok {
				refs = append(refs, s)
			}
		}
		return &RawEntry{Kind: RawKindReference, Referrals: refs, Controls: extractControls(envelope)}, nil
	case ApplicationIntermediateResponse:
		re := &RawEntry{Kind: RawKindIntermediate, Controls: extractControls(envelope)}
		for _, child := range op.Children {
			switch child.Tag {
			case 0:
				re.IntName, _ = child.Value.(string)
			case 1:
				if child.Data != nil {
					re.IntValue = child.Data.Bytes()
				}
			}
		}
		return re, nil
	default:
		return nil, NewError(ErrorUnexpectedMessage, fmt.Errorf("ldap3: unexpected protocolOp tag %d in search stream", op.Tag))
	}
}

func (s *SearchStream) rawFinish() *LdapResult {
	if s.state != streamDrained {
		if s.ctx != nil {
			s.conn.finishMessage(s.ctx.id)
		}
		s.state = streamFinished
		return &LdapResult{ResultCode: LDAPResultCanceled, Diagnostic: "search stream abandoned before completion"}
	}
	s.state = streamFinished
	return s.result
}

func buildSearchRequestPacket(req *SearchRequest) (*ber.Packet, error) {
	p := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationSearchRequest, "Search Request")
	p.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, req.BaseDN, "Base DN"))
	p.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(req.Scope), "Scope"))
	p.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(req.DerefAliases), "Deref Aliases"))
	p.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(req.SizeLimit), "Size Limit"))
	p.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(req.TimeLimit), "Time Limit"))
	p.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, req.TypesOnly, "Types Only"))

	filterPacket, err := CompileFilter(req.Filter)
	if err != nil {
		return nil, err
	}
	p.AppendChild(filterPacket)

	attrs := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Attributes")
	for _, a := range req.Attributes {
		attrs.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, a, "Attribute"))
	}
	p.AppendChild(attrs)
	return p, nil
}

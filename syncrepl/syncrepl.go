// Package syncrepl implements the RFC 4533 LDAP Content Synchronization
// operation: the Sync Request control that starts a syncrepl search, the
// Sync State and Sync Done controls the server attaches to entries and
// to the final result, and the Sync Info intermediate response used
// during a refreshAndPersist session. Importing this package registers
// the two response controls with the ldap3 control registry; decoding
// Sync Info requires calling DecodeInfo directly, since it travels as
// an IntermediateResponse responseValue rather than a Control.
package syncrepl

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nmorey/ldap3"
	"github.com/nmorey/ldap3/ber"
)

const (
	// ControlTypeSyncRequest is sent on the initiating Search request.
	ControlTypeSyncRequest = "1.3.6.1.4.1.4203.1.9.1.1"
	// ControlTypeSyncState is attached to each SearchResultEntry.
	ControlTypeSyncState = "1.3.6.1.4.1.4203.1.9.1.2"
	// ControlTypeSyncDone is attached to the SearchResultDone.
	ControlTypeSyncDone = "1.3.6.1.4.1.4203.1.9.1.3"
	// OIDSyncInfo is the responseName of the syncInfoValue intermediate
	// response sent during a refreshAndPersist session.
	OIDSyncInfo = "1.3.6.1.4.1.4203.1.9.1.4"
)

func init() {
	ldap3.RegisterControl(ControlTypeSyncState, "Sync State", &ControlSyncState{})
	ldap3.RegisterControl(ControlTypeSyncDone, "Sync Done", &ControlSyncDone{})
}

// RequestMode selects whether the session ends after the initial
// refresh (RefreshOnly) or stays open streaming further changes
// (RefreshAndPersist).
type RequestMode int64

const (
	ModeRefreshOnly       RequestMode = 1
	ModeRefreshAndPersist RequestMode = 3
)

// ControlSyncRequest is the syncRequestValue control, sent on the
// initiating Search.
type ControlSyncRequest struct {
	Mode       RequestMode
	Cookie     []byte
	ReloadHint bool
}

// NewControlSyncRequest builds a (always-critical) Sync Request control.
func NewControlSyncRequest(mode RequestMode, cookie []byte, reloadHint bool) *ControlSyncRequest {
	return &ControlSyncRequest{Mode: mode, Cookie: cookie, ReloadHint: reloadHint}
}

func (c *ControlSyncRequest) GetControlType() string { return ControlTypeSyncRequest }

func (c *ControlSyncRequest) Encode() *ber.Packet {
	seq := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Sync Request Value")
	seq.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagEnumerated, int64(c.Mode), "Mode"))
	cookie := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Cookie")
	cookie.Data.Write(c.Cookie)
	cookie.Value = c.Cookie
	seq.AppendChild(cookie)
	seq.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, c.ReloadHint, "Reload Hint"))

	packet := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, ControlTypeSyncRequest, "Control Type ("+ldap3.ControlDescription(ControlTypeSyncRequest)+")"))
	packet.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, true, "Criticality"))
	value := ber.NewPacket(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, "Control Value (Sync Request)")
	value.Data.Write(seq.Bytes())
	packet.AppendChild(value)
	return packet
}

func (c *ControlSyncRequest) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Mode: %d  Cookie: %q  ReloadHint: %t",
		ldap3.ControlDescription(ControlTypeSyncRequest), ControlTypeSyncRequest, c.Mode, c.Cookie, c.ReloadHint)
}

// State is the syncStateValue's enumerated change kind.
type State int64

const (
	StatePresent State = 0
	StateAdd     State = 1
	StateModify  State = 2
	StateDelete  State = 3
)

// ControlSyncState is the response-only control a server attaches to
// every SearchResultEntry during syncrepl.
type ControlSyncState struct {
	State     State
	EntryUUID uuid.UUID
	Cookie    []byte
}

func (c *ControlSyncState) GetControlType() string { return ControlTypeSyncState }

// Encode is unused: this control is never sent by a client.
func (c *ControlSyncState) Encode() *ber.Packet { return nil }

func (c *ControlSyncState) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  State: %d  EntryUUID: %s  Cookie: %q",
		ldap3.ControlDescription(ControlTypeSyncState), ControlTypeSyncState, c.State, c.EntryUUID, c.Cookie)
}

// Decode parses a syncStateValue: SEQUENCE { state ENUMERATED, entryUUID
// OCTET STRING (16), cookie OCTET STRING OPTIONAL }.
func (c *ControlSyncState) Decode(criticality bool, value *ber.Packet) (ldap3.Control, error) {
	seq, _, err := ber.ParsePacket(value.Data.Bytes())
	if err != nil {
		return nil, err
	}
	if len(seq.Children) < 2 {
		return nil, fmt.Errorf("syncrepl: malformed sync state value, %d children", len(seq.Children))
	}
	state, _ := seq.Children[0].Value.(int64)
	entryUUID, err := uuid.FromBytes(seq.Children[1].Data.Bytes())
	if err != nil {
		return nil, fmt.Errorf("syncrepl: decode entryUUID: %w", err)
	}
	result := &ControlSyncState{State: State(state), EntryUUID: entryUUID}
	if len(seq.Children) >= 3 {
		result.Cookie = seq.Children[2].Data.Bytes()
	}
	return result, nil
}

// ControlSyncDone is the response-only control attached to the final
// SearchResultDone of a syncrepl search.
type ControlSyncDone struct {
	Cookie         []byte
	RefreshDeletes bool
}

func (c *ControlSyncDone) GetControlType() string { return ControlTypeSyncDone }

func (c *ControlSyncDone) Encode() *ber.Packet { return nil }

func (c *ControlSyncDone) String() string {
	return fmt.Sprintf("Control Type: %s (%q)  Cookie: %q  RefreshDeletes: %t",
		ldap3.ControlDescription(ControlTypeSyncDone), ControlTypeSyncDone, c.Cookie, c.RefreshDeletes)
}

// Decode parses a syncDoneValue: SEQUENCE { cookie OCTET STRING
// OPTIONAL, refreshDeletes BOOLEAN DEFAULT FALSE }.
func (c *ControlSyncDone) Decode(criticality bool, value *ber.Packet) (ldap3.Control, error) {
	seq, _, err := ber.ParsePacket(value.Data.Bytes())
	if err != nil {
		return nil, err
	}
	result := &ControlSyncDone{}
	switch len(seq.Children) {
	case 0:
	case 1:
		result.Cookie = seq.Children[0].Data.Bytes()
	default:
		result.Cookie = seq.Children[0].Data.Bytes()
		result.RefreshDeletes, _ = seq.Children[1].Value.(bool)
	}
	return result, nil
}

// InfoKind is the syncInfoValue CHOICE tag.
type InfoKind int64

const (
	InfoNewCookie      InfoKind = 0
	InfoRefreshDelete  InfoKind = 1
	InfoRefreshPresent InfoKind = 2
	InfoSyncIDSet      InfoKind = 3
)

// Info is a decoded syncInfoValue, delivered as an IntermediateResponse
// during a refreshAndPersist session.
type Info struct {
	Kind           InfoKind
	Cookie         []byte
	RefreshDone    bool
	RefreshDeletes bool
	SyncUUIDs      []uuid.UUID
}

func (i *Info) String() string {
	return fmt.Sprintf("SyncInfo[Kind: %d  Cookie: %q  RefreshDone: %t  RefreshDeletes: %t  SyncUUIDs: %v]",
		i.Kind, i.Cookie, i.RefreshDone, i.RefreshDeletes, i.SyncUUIDs)
}

// IsSyncInfo reports whether re is a syncInfoValue IntermediateResponse,
// i.e. whether DecodeInfo(re) would do anything useful.
func IsSyncInfo(re *ldap3.RawEntry) bool {
	return re != nil && re.Kind == ldap3.RawKindIntermediate && re.IntName == OIDSyncInfo
}

// DecodeInfo decodes a syncInfoValue CHOICE:
//
//	newcookie      [0] syncCookie
//	refreshDelete  [1] SEQUENCE { cookie OPTIONAL, refreshDone BOOLEAN DEFAULT TRUE }
//	refreshPresent [2] SEQUENCE { cookie OPTIONAL, refreshDone BOOLEAN DEFAULT TRUE }
//	syncIdSet      [3] SEQUENCE { cookie OPTIONAL, refreshDeletes BOOLEAN DEFAULT FALSE,
//	                              syncUUIDs SET OF OCTET STRING (16) }
func DecodeInfo(re *ldap3.RawEntry) (*Info, error) {
	pkt, _, err := ber.ParsePacket(re.IntValue)
	if err != nil {
		return nil, err
	}
	info := &Info{Kind: InfoKind(pkt.Tag), RefreshDone: true}
	switch info.Kind {
	case InfoNewCookie:
		info.Cookie = pkt.Data.Bytes()
	case InfoRefreshDelete, InfoRefreshPresent:
		switch len(pkt.Children) {
		case 0:
		case 1:
			info.Cookie = pkt.Children[0].Data.Bytes()
		default:
			info.Cookie = pkt.Children[0].Data.Bytes()
			info.RefreshDone, _ = pkt.Children[1].Value.(bool)
		}
	case InfoSyncIDSet:
		switch len(pkt.Children) {
		case 0:
		case 1:
			info.Cookie = pkt.Children[0].Data.Bytes()
		case 2:
			info.Cookie = pkt.Children[0].Data.Bytes()
			info.RefreshDeletes, _ = pkt.Children[1].Value.(bool)
		default:
			info.Cookie = pkt.Children[0].Data.Bytes()
			info.RefreshDeletes, _ = pkt.Children[1].Value.(bool)
			for _, child := range pkt.Children[2].Children {
				u, err := uuid.FromBytes(child.Data.Bytes())
				if err != nil {
					return nil, fmt.Errorf("syncrepl: decode syncUUID: %w", err)
				}
				info.SyncUUIDs = append(info.SyncUUIDs, u)
			}
		}
	default:
		return nil, fmt.Errorf("syncrepl: unknown sync info tag %d", pkt.Tag)
	}
	return info, nil
}

// Adapter injects a Sync Request control on Start; decoding of the
// per-entry Sync State control and the final Sync Done control happens
// automatically via the control registry once this package is
// imported, so Next and Finish are pure passthroughs. Sync Info
// intermediate responses surface as ordinary RawKindIntermediate items;
// use IsSyncInfo/DecodeInfo to interpret them.
type Adapter struct {
	Mode       RequestMode
	Cookie     []byte
	ReloadHint bool
}

// NewAdapter builds a syncrepl search Adapter.
func NewAdapter(mode RequestMode, cookie []byte, reloadHint bool) *Adapter {
	return &Adapter{Mode: mode, Cookie: cookie, ReloadHint: reloadHint}
}

func (a *Adapter) Start(s *ldap3.SearchStream, next func() error) error {
	s.Request.Controls = append(s.Request.Controls, NewControlSyncRequest(a.Mode, a.Cookie, a.ReloadHint))
	return next()
}

func (a *Adapter) Next(s *ldap3.SearchStream, next func() (*ldap3.RawEntry, error)) (*ldap3.RawEntry, error) {
	return next()
}

func (a *Adapter) Finish(s *ldap3.SearchStream, next func() *ldap3.LdapResult) *ldap3.LdapResult {
	return next()
}

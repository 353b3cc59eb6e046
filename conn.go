package ldap3

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nmorey/ldap3/ber"
)

// debugging is a package-local bool-with-methods logging shim: a
// third-party structured logger was never adopted for LDAP wire tracing,
// so the ambient logging story here stays on the standard library log
// package, enabled only when Conn.Debug is set.
type debugging bool

func (d debugging) Printf(format string, v ...interface{}) {
	if d {
		log.Printf(format, v...)
	}
}

func (d debugging) PrintPacket(p *ber.Packet) {
	if d {
		ber.PrintPacket(p)
	}
}

var errOuterTLS = errors.New("ldap3: connection is already using TLS")

// messageContext is the per-request response sink registered in the
// pending map. It intentionally holds no back-pointer to the Conn (design
// note: avoid cyclic references from pending entries to the connection).
type messageContext struct {
	id        uint64
	responses chan *ber.Packet
	isSearch  bool
}

type mailboxOp int

const (
	opSubmit mailboxOp = iota
	opFrame
	opFinish
	opAbandon
	opQuit
)

type mailboxMsg struct {
	op       mailboxOp
	id       uint64
	ctx      *messageContext
	envelope *ber.Packet
	frame    *ber.Packet
	reply    chan error
}

// Conn is a multiplexed LDAPv3 connection: one reader goroutine, one
// engine goroutine that owns the pending-request map and the write side
// of the transport, and any number of caller goroutines submitting
// operations and awaiting responses on per-request channels.
type Conn struct {
	id uuid.UUID

	Debug debugging

	mu         sync.Mutex
	transport  net.Conn
	isTLS      bool
	readerGate chan struct{} // non-nil and open while a StartTLS swap is pending
	closed     bool

	nextID uint64 // atomic

	mailbox chan mailboxMsg
	done    chan struct{}
	termErr error

	// One-shot builder state, cleared by the next operation that reads
	// it. Guarded by mu because builder methods may race with
	// in-flight operation submission.
	pendingControls      []Control
	pendingTimeout       time.Duration
	pendingSearchOptions *SearchOptions
}

// SearchOptions holds one-shot tuning applied to the next Search only.
type SearchOptions struct {
	SizeLimit int
	TimeLimit int
	TypesOnly bool
}

// NewConn wraps an already-established net.Conn (plaintext or TLS) in a
// Conn and starts its reader and engine goroutines.
func NewConn(transport net.Conn, isTLS bool) *Conn {
	c := &Conn{
		id:        uuid.New(),
		transport: transport,
		isTLS:     isTLS,
		nextID:    0,
		mailbox:   make(chan mailboxMsg, 16),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	go c.engineLoop()
	return c
}

// Dial connects over TCP (network is typically "tcp" or "unix" for
// ldapi://) and returns a ready Conn.
func Dial(network, addr string) (*Conn, error) {
	c, err := net.Dial(network, addr)
	if err != nil {
		return nil, NewError(ErrorNetwork, err)
	}
	return NewConn(c, false), nil
}

// DialTLS connects over TCP and immediately performs a TLS handshake.
func DialTLS(network, addr string, config *tls.Config) (*Conn, error) {
	c, err := tls.Dial(network, addr, config)
	if err != nil {
		return nil, NewError(ErrorNetwork, err)
	}
	return NewConn(c, true), nil
}

func (c *Conn) nextMessageID() uint64 {
	return atomic.AddUint64(&c.nextID, 1)
}

// Close terminates the connection: the engine goroutine fails all pending
// operations with a transport error and the underlying transport is
// closed. Close is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	transport := c.transport
	c.mu.Unlock()

	select {
	case c.mailbox <- mailboxMsg{op: opQuit}:
	case <-c.done:
	}
	<-c.done

	if transport != nil {
		return transport.Close()
	}
	return nil
}

func (c *Conn) currentTransport() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

func (c *Conn) readLoop() {
	for {
		c.mu.Lock()
		gate := c.readerGate
		transport := c.transport
		c.mu.Unlock()

		if gate != nil {
			<-gate
			continue
		}

		p, err := ber.ReadPacket(transport)
		if err != nil {
			c.mu.Lock()
			paused := c.readerGate != nil
			c.mu.Unlock()
			if paused {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
			}
			c.terminate(NewError(ErrorNetwork, err))
			return
		}
		select {
		case c.mailbox <- mailboxMsg{op: opFrame, frame: p}:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) terminate(err error) {
	select {
	case c.mailbox <- mailboxMsg{op: opQuit}:
	default:
	}
	c.mu.Lock()
	if c.termErr == nil {
		c.termErr = err
	}
	c.mu.Unlock()
}

// engineLoop is the single owner of the pending-request map and the write
// side of the transport, so request dispatch and response demuxing never
// race.
func (c *Conn) engineLoop() {
	pending := map[uint64]*messageContext{}
	defer func() {
		for _, ctx := range pending {
			close(ctx.responses)
		}
		close(c.done)
	}()

	for m := range c.mailbox {
		switch m.op {
		case opSubmit:
			transport := c.currentTransport()
			if transport == nil {
				close(m.ctx.responses)
				continue
			}
			if _, err := transport.Write(m.envelope.Bytes()); err != nil {
				close(m.ctx.responses)
				c.terminate(NewError(ErrorNetwork, err))
				return
			}
			pending[m.id] = m.ctx

		case opFrame:
			id, ok := decodeEnvelope(m.frame)
			if !ok {
				c.terminate(NewError(ErrorNetwork, errors.New("ldap3: malformed envelope")))
				return
			}
			ctx, found := pending[id]
			if !found {
				c.Debug.Printf("ldap3: conn %s: unexpected message id %d, dropping", c.id, id)
				continue
			}
			opTag := decodeOpTag(m.frame)
			ctx.responses <- m.frame
			if !ctx.isSearch || !isSearchStreamTag(opTag) || opTag == ApplicationSearchResultDone {
				delete(pending, id)
				close(ctx.responses)
			}

		case opFinish:
			if ctx, ok := pending[m.id]; ok {
				delete(pending, m.id)
				close(ctx.responses)
			}

		case opAbandon:
			ctx, found := pending[m.id]
			if !found {
				m.reply <- NewError(ErrorUnexpectedResponse, fmt.Errorf("ldap3: abandon of unknown message id %d", m.id))
				continue
			}
			transport := c.currentTransport()
			if transport == nil {
				m.reply <- NewError(ErrorNetwork, errors.New("ldap3: connection closed"))
				continue
			}
			if _, err := transport.Write(m.envelope.Bytes()); err != nil {
				m.reply <- NewError(ErrorNetwork, err)
				c.terminate(NewError(ErrorNetwork, err))
				return
			}
			delete(pending, m.id)
			close(ctx.responses)
			m.reply <- nil

		case opQuit:
			return
		}
	}
}

// decodeEnvelope validates the outer LDAPMessage SEQUENCE and returns its
// messageID. The envelope itself (not just the protocolOp) is handed back
// to the waiting caller, who reads Children[1] for the protocolOp and an
// optional Children[2] for controls.
func decodeEnvelope(envelope *ber.Packet) (id uint64, ok bool) {
	if envelope.TagType != ber.TypeConstructed || len(envelope.Children) < 2 {
		return 0, false
	}
	idPacket := envelope.Children[0]
	idVal, isInt := idPacket.Value.(int64)
	if !isInt || idVal < 0 {
		return 0, false
	}
	return uint64(idVal), true
}

func decodeOpTag(envelope *ber.Packet) uint64 {
	return envelope.Children[1].Tag
}

// mergeControls combines request-specific controls with any one-shot
// controls armed by WithControls, clearing the one-shot state.
func (c *Conn) mergeControls(explicit []Control) []Control {
	c.mu.Lock()
	pending := c.pendingControls
	c.pendingControls = nil
	c.mu.Unlock()

	switch {
	case len(pending) == 0:
		return explicit
	case len(explicit) == 0:
		return pending
	default:
		return append(append([]Control{}, explicit...), pending...)
	}
}

// sendMessage allocates a message ID, builds the envelope (messageID +
// protocolOp + optional controls), registers a response sink, and
// enqueues the write. The caller owns msgCtx.responses and must drain it
// to completion or call c.finishMessage to deregister early.
func (c *Conn) sendMessage(protocolOp *ber.Packet, explicitControls ...Control) (*messageContext, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, NewError(ErrorNetwork, errors.New("ldap3: connection closed"))
	}
	c.mu.Unlock()
	controls := c.mergeControls(explicitControls)

	id := c.nextMessageID()
	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(id), "MessageID"))
	envelope.AppendChild(protocolOp)
	if len(controls) > 0 {
		envelope.AppendChild(encodeControls(controls))
	}

	c.Debug.PrintPacket(envelope)

	ctx := &messageContext{id: id, responses: make(chan *ber.Packet, 8), isSearch: protocolOp.Tag == ApplicationSearchRequest}

	select {
	case c.mailbox <- mailboxMsg{op: opSubmit, id: id, ctx: ctx, envelope: envelope}:
	case <-c.done:
		return nil, c.transportError()
	}
	return ctx, nil
}

// sendSolo writes a fire-and-forget request (Unbind): no pending entry
// is created because no response is expected.
func (c *Conn) sendSolo(protocolOp *ber.Packet) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorNetwork, errors.New("ldap3: connection closed"))
	}
	transport := c.transport
	c.mu.Unlock()

	id := c.nextMessageID()
	envelope := ber.NewPacket(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, "LDAP Message")
	envelope.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(id), "MessageID"))
	envelope.AppendChild(protocolOp)
	c.Debug.PrintPacket(envelope)

	if transport == nil {
		return NewError(ErrorNetwork, errors.New("ldap3: connection closed"))
	}
	if _, err := transport.Write(envelope.Bytes()); err != nil {
		return NewError(ErrorNetwork, err)
	}
	return nil
}

// abandon routes an Abandon request through the engine so it can be
// checked against the pending map: an id with no registered operation
// returns an error immediately and nothing is written to the wire.
func (c *Conn) abandon(id uint64, envelope *ber.Packet) error {
	reply := make(chan error, 1)
	select {
	case c.mailbox <- mailboxMsg{op: opAbandon, id: id, envelope: envelope, reply: reply}:
	case <-c.done:
		return c.transportError()
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return c.transportError()
	}
}

func (c *Conn) finishMessage(id uint64) {
	select {
	case c.mailbox <- mailboxMsg{op: opFinish, id: id}:
	case <-c.done:
	}
}

func (c *Conn) transportError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.termErr != nil {
		return c.termErr
	}
	return NewError(ErrorNetwork, errors.New("ldap3: connection closed"))
}

// doRequest applies the one-shot per-op timeout (if any), sends the
// request, and returns a single decoded response envelope. It is used by
// every non-streaming operation.
func (c *Conn) doRequest(protocolOp *ber.Packet, controls ...Control) (*ber.Packet, error) {
	ctx, err := c.sendMessage(protocolOp, controls...)
	if err != nil {
		return nil, err
	}

	timeout := c.consumeTimeout()
	if timeout <= 0 {
		envelope, ok := <-ctx.responses
		if !ok {
			return nil, c.transportError()
		}
		return envelope, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case envelope, ok := <-ctx.responses:
		if !ok {
			return nil, c.transportError()
		}
		return envelope, nil
	case <-timer.C:
		c.finishMessage(ctx.id)
		return nil, NewError(ErrorTimeout, fmt.Errorf("ldap3: operation %d timed out after %s", ctx.id, timeout))
	}
}

func (c *Conn) consumeTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.pendingTimeout
	c.pendingTimeout = 0
	return t
}

func (c *Conn) consumeSearchOptions() *SearchOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	opts := c.pendingSearchOptions
	c.pendingSearchOptions = nil
	return opts
}

// oidStartTLS is the LDAP Extended Operation OID for StartTLS, RFC 4511
// section 4.14.1.
const oidStartTLS = "1.3.6.1.4.1.1466.20037"

// StartTLS issues the StartTLS extended operation and, on success,
// upgrades the connection's transport in place. No other operation may
// be in flight on c while StartTLS runs: the reader is quiesced (via a
// read-deadline so its in-flight Read call returns without stealing
// handshake bytes) for the duration of the handshake and the transport
// swap, then resumed against the new tls.Conn.
func (c *Conn) StartTLS(config *tls.Config) error {
	req := ber.NewPacket(ber.ClassApplication, ber.TypeConstructed, ApplicationExtendedRequest, "StartTLS Request")
	req.AppendChild(ber.NewString(ber.ClassContext, ber.TypePrimitive, 0, oidStartTLS, "Request Name"))

	envelope, err := c.doRequest(req)
	if err != nil {
		return err
	}
	op := envelope.Children[1]
	res := parseLdapResult(op)
	if err := success(res); err != nil {
		return err
	}

	c.mu.Lock()
	if c.isTLS {
		c.mu.Unlock()
		return NewError(ErrorNetwork, errOuterTLS)
	}
	transport := c.transport
	gate := make(chan struct{})
	c.readerGate = gate
	c.mu.Unlock()

	_ = transport.SetReadDeadline(time.Now())

	tlsConn := tls.Client(transport, config)
	if err := tlsConn.Handshake(); err != nil {
		c.mu.Lock()
		c.readerGate = nil
		c.mu.Unlock()
		close(gate)
		return NewError(ErrorNetwork, err)
	}
	_ = transport.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.transport = tlsConn
	c.isTLS = true
	c.readerGate = nil
	c.mu.Unlock()
	close(gate)
	return nil
}

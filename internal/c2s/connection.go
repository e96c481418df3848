// Package c2s implements the per-connection XMPP stream state machine:
// one Connection per accepted socket, owning the read buffer, the
// stream/session flags, the authenticated principal's identity, and
// the stanza dispatcher (§3, §4.2-4.6).
package c2s

import (
	"net"
	"sync"

	"github.com/pborman/uuid"

	"github.com/dcbishop/lazyxmpp/internal/config"
	"github.com/dcbishop/lazyxmpp/internal/jid"
	"github.com/dcbishop/lazyxmpp/internal/log"
	"github.com/dcbishop/lazyxmpp/internal/userstore"
	"github.com/dcbishop/lazyxmpp/internal/xmppelem"
)

// readBufSize is the fixed per-connection read buffer capacity (§3).
const readBufSize = 8 * 1024

// outboxSize bounds the per-connection outbound write queue, the way
// jackal's stream bounds its actor mailbox (streamMailboxSize).
const outboxSize = 64

// AuthState is the connection's authentication state (§3).
type AuthState int

const (
	NotAuthenticated AuthState = iota
	Anonymous
	Authenticated
)

// PeerInfo is the read-only snapshot of a registry member's identity,
// handed out by Hub.Snapshot for roster and broadcast-presence fanout.
type PeerInfo struct {
	BareJID  string
	FullJID  string
	Node     string
	Nickname string
	Conn     *Connection
}

// Hub is the subset of Server a Connection depends on: the registry
// and routing operations of §4.1, plus the shared hostname, config and
// credential store. Declaring it here (rather than importing the
// server package) keeps c2s free of an import cycle; *server.Server
// satisfies it.
type Hub interface {
	Register(c *Connection)
	Unregister(c *Connection)
	WriteToJID(jid string, b []byte)
	Snapshot() []PeerInfo
	Hostname() string
	UserStore() *userstore.Store
	Config() *config.Config
}

// Connection is one live client socket and its XMPP session state.
type Connection struct {
	hub        Hub
	conn       net.Conn
	remoteAddr string
	id         string

	mu                 sync.Mutex
	inStream           bool
	bound              bool
	sessionEstablished bool
	encrypted          bool
	closePending       bool
	authState          AuthState
	node               string
	resource           string
	nickname           string

	outbox chan []byte
	closed chan struct{}
	once   sync.Once
}

// New wraps an accepted socket in a fresh, unregistered Connection.
func New(conn net.Conn, hub Hub) *Connection {
	return &Connection{
		hub:        hub,
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		id:         uuid.New(),
		outbox:     make(chan []byte, outboxSize),
		closed:     make(chan struct{}),
	}
}

// ID returns the connection's stream id.
func (c *Connection) ID() string { return c.id }

// RemoteAddr returns the peer's address string.
func (c *Connection) RemoteAddr() string { return c.remoteAddr }

// Serve registers the connection and drives its read/write loops until
// the peer disconnects or a fatal protocol error closes the stream.
// It blocks; callers run it in its own goroutine per accepted socket.
func (c *Connection) Serve() {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	go c.writeLoop()
	c.readLoop()

	<-c.closed
}

func (c *Connection) writeLoop() {
	for b := range c.outbox {
		if _, err := c.conn.Write(b); err != nil {
			log.Errorf("c2s: write to %s failed: %v", c.remoteAddr, err)
			c.shutdown()
			return
		}
	}
}

func (c *Connection) readLoop() {
	buf := make([]byte, readBufSize)
	for {
		if c.isClosePending() {
			c.shutdown()
			return
		}
		n, err := c.conn.Read(buf)
		if err != nil {
			// Clean EOF or any other transport error: release (§4.2.1-2).
			c.shutdown()
			return
		}
		chunk := buf[:n]
		// Cosmetic null-termination: a trailing newline is logging
		// noise, not protocol content (§4.2.3).
		if len(chunk) > 0 && chunk[len(chunk)-1] == '\n' {
			chunk = chunk[:len(chunk)-1]
		}

		if looksLikeStreamClose(chunk) {
			c.setClosePending()
			c.shutdown()
			return
		}

		el, perr := xmppelem.ParseFragment(chunk)
		if perr != nil && perr != xmppelem.ErrUnterminatedRoot {
			log.Errorf("c2s: parse error from %s: %v", c.remoteAddr, perr)
		}
		if el != nil {
			c.dispatch(el)
		}
		if c.isClosePending() {
			c.shutdown()
			return
		}
	}
}

func looksLikeStreamClose(b []byte) bool {
	const closing = "</stream:stream>"
	return len(b) >= len(closing) && string(b[:len(closing)]) == closing
}

// send enqueues an outbound write. It never acquires the registry
// lock, so the hub may call it while iterating under its own mutex
// (§5's lock-ordering rule: registry mutex -> per-socket submission).
func (c *Connection) send(el *xmppelem.Element) {
	c.sendBytes([]byte(el.String()))
}

// SendBytes enqueues a raw outbound write; exported for the hub to use
// when fanning bytes out to a peer (e.g. Server.WriteToJID).
func (c *Connection) SendBytes(b []byte) {
	c.sendBytes(b)
}

func (c *Connection) sendBytes(b []byte) {
	select {
	case c.outbox <- b:
	case <-c.closed:
	}
}

func (c *Connection) sendRaw(s string) {
	c.sendBytes([]byte(s))
}

func (c *Connection) shutdown() {
	c.once.Do(func() {
		close(c.closed)
		close(c.outbox)
		c.conn.Close()
	})
}

// Disconnect marks the connection close-pending and closes it
// immediately.
func (c *Connection) Disconnect() {
	c.setClosePending()
	c.shutdown()
}

func (c *Connection) setClosePending() {
	c.mu.Lock()
	c.closePending = true
	c.mu.Unlock()
}

func (c *Connection) isClosePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closePending
}

// FullJID renders node@domain/resource through internal/jid, so the
// rendered address reflects nodeprep/resourceprep normalization.
// Stable once Bound() is true.
func (c *Connection) FullJID() string {
	c.mu.Lock()
	node, resource := c.node, c.resource
	c.mu.Unlock()
	j, err := jid.New(node, c.hub.Hostname(), resource)
	if err != nil {
		log.Errorf("c2s: FullJID: %v", err)
		return node + "@" + c.hub.Hostname() + "/" + resource
	}
	return j.String()
}

// BareJID renders node@domain through internal/jid.
func (c *Connection) BareJID() string {
	c.mu.Lock()
	node := c.node
	c.mu.Unlock()
	j, err := jid.New(node, c.hub.Hostname(), "")
	if err != nil {
		log.Errorf("c2s: BareJID: %v", err)
		return node + "@" + c.hub.Hostname()
	}
	return j.String()
}

// Nickname returns the display name used in roster fanout.
func (c *Connection) Nickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

// Node returns the authenticated node (local part), possibly empty.
func (c *Connection) Node() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node
}

// Bound reports whether a resource has been bound to this session.
func (c *Connection) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

// AuthState returns the connection's current auth state.
func (c *Connection) AuthState() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authState
}

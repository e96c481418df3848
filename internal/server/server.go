// Package server implements the listener/registry component described
// in §4.1: it owns the acceptors, the live set of
// Connections, and the write_to_jid routing operation Connections use
// to forward stanzas to one another.
package server

import (
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/dcbishop/lazyxmpp/internal/c2s"
	"github.com/dcbishop/lazyxmpp/internal/config"
	"github.com/dcbishop/lazyxmpp/internal/jid"
	"github.com/dcbishop/lazyxmpp/internal/log"
	"github.com/dcbishop/lazyxmpp/internal/userstore"
)

// Server owns the acceptors and the connection registry, and routes
// stanzas between live sessions by JID.
type Server struct {
	cfg   *config.Config
	store *userstore.Store

	mu    sync.Mutex
	conns map[*c2s.Connection]struct{}

	listeners []net.Listener
}

// New builds a Server bound to the given configuration and credential
// store. The store outlives every Connection it hands a back-reference
// to (§3's lifecycle invariant).
func New(cfg *config.Config, store *userstore.Store) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		conns: make(map[*c2s.Connection]struct{}),
	}
}

// Hostname returns the domain portion of every local JID.
func (s *Server) Hostname() string { return s.cfg.Hostname }

// Config returns the server-wide feature flags.
func (s *Server) Config() *config.Config { return s.cfg }

// UserStore returns the shared credential store handle.
func (s *Server) UserStore() *userstore.Store { return s.store }

// Start creates the acceptors per §4.1: if both families are enabled,
// prefer a single dual-stack IPv6 listener and only add a dedicated
// IPv4 listener when the OS reports the IPv6 socket as v6-only. If
// neither family is enabled, this is a configuration error.
func (s *Server) Start() error {
	if !s.cfg.EnableIPv4 && !s.cfg.EnableIPv6 {
		return errors.New("server: neither enable_ipv4 nor enable_ipv6 is set")
	}

	port := s.cfg.Port
	if port == 0 {
		port = 5222
	}

	var dualStack bool
	if s.cfg.EnableIPv6 {
		ln, v6Only, err := listenV6(port)
		if err != nil {
			return errors.Wrap(err, "server: listen ipv6")
		}
		s.listeners = append(s.listeners, ln)
		dualStack = !v6Only
	}
	if s.cfg.EnableIPv4 && !dualStack {
		ln, err := net.Listen("tcp4", ":"+strconv.Itoa(port))
		if err != nil {
			return errors.Wrap(err, "server: listen ipv4")
		}
		s.listeners = append(s.listeners, ln)
	}

	for _, ln := range s.listeners {
		go s.acceptLoop(ln)
	}
	return nil
}

// listenV6 opens an IPv6 listener and reports whether the platform
// restricted it to v6-only (no implicit IPv4-mapped acceptance).
func listenV6(port int) (net.Listener, bool, error) {
	ln, err := net.Listen("tcp6", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, false, err
	}
	lc, ok := ln.(*net.TCPListener)
	if !ok {
		return ln, true, nil
	}
	f, err := lc.File()
	if err != nil {
		return ln, true, nil
	}
	defer f.Close()
	v6only, err := isV6Only(f.Fd())
	if err != nil {
		return ln, true, nil
	}
	return ln, v6only, nil
}

// acceptLoop indefinitely accepts from ln; a per-connection accept
// error is logged and the loop continues, since a transient accept
// failure (e.g. ECONNABORTED) must not stop the server from accepting
// further connections on that socket. Only the listener itself being
// closed is fatal to the loop (§4.1's failure model).
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Infof("server: listener %s closed, accept loop exiting", ln.Addr())
				return
			}
			log.Errorf("server: accept on %s failed: %v", ln.Addr(), err)
			continue
		}
		c := c2s.New(conn, s)
		go c.Serve()
	}
}

// Register adds c to the registry under the registry mutex.
func (s *Server) Register(c *c2s.Connection) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	log.Infof("server: connection from %s registered (id=%s)", c.RemoteAddr(), c.ID())
}

// Unregister removes c from the registry under the registry mutex.
func (s *Server) Unregister(c *c2s.Connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	log.Infof("server: connection from %s unregistered (id=%s)", c.RemoteAddr(), c.ID())
}

// Snapshot copies the registry's bound sessions under the lock, so
// callers can fan out writes without holding the registry mutex during
// the (possibly slow) per-peer enqueue (§9's head-of-line note).
func (s *Server) Snapshot() []c2s.PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]c2s.PeerInfo, 0, len(s.conns))
	for c := range s.conns {
		if !c.Bound() {
			continue
		}
		out = append(out, c2s.PeerInfo{
			BareJID:  c.BareJID(),
			FullJID:  c.FullJID(),
			Node:     c.Node(),
			Nickname: c.Nickname(),
			Conn:     c,
		})
	}
	return out
}

// WriteToJID enqueues bytes on every registry member whose bare or
// full JID equals target, compared through internal/jid so
// nodeprep/resourceprep normalization applies on both sides. Zero
// matches are dropped silently: there is no offline queue (§4.1).
func (s *Server) WriteToJID(target string, b []byte) {
	want, err := jid.Parse(target)
	if err != nil {
		log.Errorf("server: write_to_jid: invalid jid %q: %v", target, err)
		return
	}
	for _, p := range s.Snapshot() {
		bare, err := jid.Parse(p.BareJID)
		if err != nil {
			continue
		}
		if want.Equal(bare) {
			p.Conn.SendBytes(b)
			continue
		}
		full, err := jid.Parse(p.FullJID)
		if err != nil {
			continue
		}
		if want.Equal(full) {
			p.Conn.SendBytes(b)
		}
	}
}

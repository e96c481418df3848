package c2s

import (
	"github.com/dcbishop/lazyxmpp/internal/log"
	"github.com/dcbishop/lazyxmpp/internal/stanza"
	"github.com/dcbishop/lazyxmpp/internal/streamerror"
	"github.com/dcbishop/lazyxmpp/internal/xmppelem"
)

// dispatch enforces the stream state machine of §4.3: it classifies
// the root element by tag name and the connection's current state,
// first match wins.
func (c *Connection) dispatch(el *xmppelem.Element) {
	name := el.Name()

	// encoding/xml resolves the "stream:" prefix against the
	// xmlns:stream declaration before we ever see the token, so the
	// wire tag <stream:stream xmlns:stream='...streams'> arrives here
	// as Name()=="stream" with Namespace() set to the streams URI, not
	// as the literal string "stream:stream".
	if name == "stream" && el.Namespace() == stanza.StreamNamespace {
		c.handleStreamOpen(el)
		return
	}

	if !c.inStreamState() {
		c.sendStreamError(streamerror.ErrInvalidNamespace)
		return
	}

	switch name {
	case "starttls":
		c.handleStartTLS()
		return
	case "auth":
		c.handleAuth(el)
		return
	case "iq":
		c.handleIQ(el)
		return
	}

	if c.AuthState() == NotAuthenticated {
		c.sendStreamError(streamerror.ErrNotAuthorized)
		return
	}

	switch name {
	case "message":
		c.handleMessage(el)
	case "presence":
		c.handlePresence(el)
	default:
		log.Debugf("c2s: dropping unhandled stanza <%s> from %s", name, c.remoteAddr)
	}
}

func (c *Connection) inStreamState() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inStream
}

// handleStreamOpen replies with the XML preamble, stream response and
// <stream:features> (§4.3's stream_handler row).
func (c *Connection) handleStreamOpen(el *xmppelem.Element) {
	c.mu.Lock()
	c.inStream = true
	authed := c.authState != NotAuthenticated
	bound := c.bound
	c.mu.Unlock()

	c.sendRaw(stanza.StreamPreamble(c.hub.Hostname(), c.id))

	features := stanza.Features(stanza.FeatureOpts{
		TLSEnabled:          false, // TLS is a non-goal in this version (§1)
		Authenticated:       authed,
		Bound:               bound,
		RegistrationOffered: !authed && c.hub.Config().EnableRegistration,
	})
	c.send(features)
}

// handleStartTLS always refuses: TLS and compression are non-goals in
// this version (§1, §4.3).
func (c *Connection) handleStartTLS() {
	failure := xmppelem.NewNamespace("failure", stanza.TLSNamespace)
	c.send(failure)
	c.setClosePending()
	c.sendRaw("</stream:stream>")
}

func (c *Connection) sendStreamError(err *streamerror.Error) {
	c.send(err.Element())
	c.sendRaw("</stream:stream>")
}

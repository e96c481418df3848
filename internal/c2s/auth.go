package c2s

import (
	"encoding/base64"
	"strings"

	"github.com/pborman/uuid"

	"github.com/dcbishop/lazyxmpp/internal/jid"
	"github.com/dcbishop/lazyxmpp/internal/log"
	"github.com/dcbishop/lazyxmpp/internal/stanza"
	"github.com/dcbishop/lazyxmpp/internal/stanzaerror"
	"github.com/dcbishop/lazyxmpp/internal/xmppelem"
)

// handleAuth implements §4.4: it reads the mechanism attribute and
// dispatches to PLAIN, ANONYMOUS or refuses with invalid-mechanism.
func (c *Connection) handleAuth(el *xmppelem.Element) {
	switch el.Attribute("mechanism") {
	case "PLAIN":
		c.authPlain(el.Text())
	case "ANONYMOUS":
		c.authAnonymous()
	default:
		c.send(stanzaerror.SASLFailure("invalid-mechanism"))
		c.setClosePending()
		c.sendRaw("</stream:stream>")
	}
}

// authPlain decodes the SASL PLAIN payload (\0 node \0 password) and,
// if well-formed, verifies the password against the UserStore before
// granting Authenticated state. The original LazyXMPP source granted
// success without checking the password at all (§4.4, §9); this is the
// corrected behavior.
func (c *Connection) authPlain(b64 string) {
	if b64 == "" {
		c.malformedPlain()
		return
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		c.malformedPlain()
		return
	}
	if len(raw) == 0 || raw[0] != 0 {
		c.malformedPlain()
		return
	}
	rest := raw[1:]
	sep := strings.IndexByte(string(rest), 0)
	if sep < 0 {
		c.malformedPlain()
		return
	}
	node := string(rest[:sep])
	password := string(rest[sep+1:])
	if node == "" {
		c.malformedPlain()
		return
	}
	normalized, err := jid.New(node, c.hub.Hostname(), "")
	if err != nil {
		c.send(stanzaerror.SASLFailure("not-authorized"))
		return
	}
	node = normalized.Node()

	ok, err := c.hub.UserStore().VerifyPassword(node, password)
	if err != nil {
		log.Errorf("c2s: password verification failed for %s: %v", node, err)
		c.send(stanzaerror.SASLFailure("not-authorized"))
		return
	}
	if !ok {
		c.send(stanzaerror.SASLFailure("not-authorized"))
		return
	}

	c.mu.Lock()
	c.node = node
	if c.nickname == "" {
		c.nickname = node
	}
	c.authState = Authenticated
	c.mu.Unlock()

	c.send(stanza.SASLSuccess())
}

func (c *Connection) malformedPlain() {
	c.send(stanzaerror.SASLFailure("malformed-request"))
}

// authAnonymous grants an ANONYMOUS session under a freshly minted
// node id (§4.4).
func (c *Connection) authAnonymous() {
	node := uuid.New()

	c.mu.Lock()
	c.node = node
	if c.nickname == "" {
		c.nickname = node
	}
	c.authState = Anonymous
	c.mu.Unlock()

	c.send(stanza.SASLSuccess())
}

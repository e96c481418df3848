package c2s

import (
	"github.com/pborman/uuid"

	"github.com/dcbishop/lazyxmpp/internal/jid"
	"github.com/dcbishop/lazyxmpp/internal/log"
	"github.com/dcbishop/lazyxmpp/internal/stanza"
	"github.com/dcbishop/lazyxmpp/internal/stanzaerror"
	"github.com/dcbishop/lazyxmpp/internal/xmppelem"
)

// handleIQ implements §4.5. An <iq> with a child count != 1 is logged
// and dropped; otherwise dispatch is by type, with per-sub-tag
// authorization gating.
func (c *Connection) handleIQ(el *xmppelem.Element) {
	id := el.Attribute("id")
	children := el.Children()
	if len(children) != 1 {
		log.Debugf("c2s: dropping iq %s with %d children", id, len(children))
		return
	}
	child := children[0]
	iqType := el.Attribute("type")

	switch iqType {
	case "get":
		c.handleIQGet(id, child)
	case "set":
		c.handleIQSet(id, child)
	case "result":
		// ignored (§4.5)
	default:
		log.Debugf("c2s: dropping iq %s of unknown type %q", id, iqType)
	}
}

func (c *Connection) handleIQGet(id string, child *xmppelem.Element) {
	if child.Name() == "query" && child.Namespace() == stanza.RegisterNamespace {
		if c.hub.Config().EnableRegistration && c.AuthState() == NotAuthenticated {
			c.send(stanza.RegisterPrompt(id))
		} else {
			c.send(stanzaerror.ServiceUnavailableIQ(id, "", nil))
		}
		return
	}

	if c.AuthState() == NotAuthenticated {
		c.send(stanzaerror.ServiceUnavailableIQ(id, "", nil))
		return
	}

	switch {
	case child.Name() == "query" && child.Namespace() == stanza.RosterNamespace:
		c.handleRosterGet(id)
	case child.Name() == "query" && (child.Namespace() == stanza.DiscoItemsNamespace || child.Namespace() == stanza.DiscoInfoNamespace):
		c.send(stanza.EmptyDiscoQuery(id, child.Namespace()))
	case child.Name() == "ping":
		c.send(stanza.PingResult(id))
	default:
		c.send(stanzaerror.ServiceUnavailableIQ(id, "", nil))
	}
}

func (c *Connection) handleRosterGet(id string) {
	peers := c.hub.Snapshot()
	items := make([]stanza.RosterItem, 0, len(peers))
	for _, p := range peers {
		items = append(items, stanza.RosterItem{JID: p.BareJID, Name: p.Nickname})
	}
	c.send(stanza.RosterResult(id, c.BareJID(), items))
}

func (c *Connection) handleIQSet(id string, child *xmppelem.Element) {
	if child.Name() == "query" && child.Namespace() == stanza.RegisterNamespace {
		// Registration write path is stubbed (§4.5).
		c.send(stanzaerror.ServiceUnavailableIQ(id, "", nil))
		return
	}

	if c.AuthState() == NotAuthenticated {
		c.send(stanzaerror.ServiceUnavailableIQ(id, "", nil))
		return
	}

	switch child.Name() {
	case "bind":
		c.bindResource(id, child)
	case "session":
		c.mu.Lock()
		c.sessionEstablished = true
		c.mu.Unlock()
		c.send(stanza.SessionResult(id))
	default:
		c.send(stanzaerror.ServiceUnavailableIQ(id, "", nil))
	}
}

// bindResource implements §4.5.1: bind the requested (or generated)
// resource, reply with the resulting full JID, then push the new
// session to the roster of every bound session, this one included.
func (c *Connection) bindResource(id string, bind *xmppelem.Element) {
	resource := ""
	if resEl := bind.Child("resource"); resEl != nil {
		resource = resEl.Text()
	}
	if resource == "" {
		resource = uuid.New()
	}

	c.mu.Lock()
	node := c.node
	c.mu.Unlock()
	normalized, err := jid.New(node, c.hub.Hostname(), resource)
	if err != nil {
		c.send(stanzaerror.ServiceUnavailableIQ(id, "", nil))
		return
	}
	resource = normalized.Resource()

	c.mu.Lock()
	c.resource = resource
	c.bound = true
	nickname := c.nickname
	c.mu.Unlock()

	fullJID := c.FullJID()
	c.send(stanza.BindResult(id, fullJID))

	log.Infof("c2s: bound resource (%s/%s)", node, resource)

	c.addToRosters(fullJID, nickname)
}

// addToRosters pushes a synthetic roster-set iq describing the newly
// bound session to every bound session in the registry, this one
// included; connections that have not bound a resource are not sent
// the push (§4.5.1, a documented placeholder for a real roster
// subsystem — §9).
func (c *Connection) addToRosters(fullJID, nickname string) {
	bareJID := c.BareJID()
	push := stanza.RosterPush(stanza.RosterItem{JID: bareJID, Name: nickname})
	payload := []byte(push.String())
	for _, p := range c.hub.Snapshot() {
		p.Conn.sendBytes(payload)
	}
}

package c2s

import "github.com/dcbishop/lazyxmpp/internal/xmppelem"

// handleMessage implements §4.6's message_handler: drop silently if
// there's no destination or body, otherwise stamp `from` with this
// connection's full JID and route by JID through the hub.
func (c *Connection) handleMessage(el *xmppelem.Element) {
	to := el.Attribute("to")
	if to == "" || el.Child("body") == nil {
		return
	}
	el.SetAttribute("from", c.FullJID())
	c.hub.WriteToJID(to, []byte(el.String()))
}

// handlePresence implements §4.6's presence_handler: an initial
// advertisement probes every bound session, a directed presence routes
// to one JID, and a broadcast presence (empty `to`) fans out to the
// bare JID of every bound session. Both fan-outs include this
// connection's own session once it is bound.
func (c *Connection) handlePresence(el *xmppelem.Element) {
	to := el.Attribute("to")
	typ := el.Attribute("type")

	if to == "" && typ == "" {
		c.probePeers()
		return
	}

	el.SetAttribute("from", c.FullJID())

	if to != "" {
		c.hub.WriteToJID(to, []byte(el.String()))
		return
	}

	c.broadcastPresence(el)
}

func (c *Connection) probePeers() {
	self := c.FullJID()
	for _, p := range c.hub.Snapshot() {
		probe := xmppelem.NewName("presence")
		probe.SetAttribute("from", self)
		probe.SetAttribute("to", p.BareJID)
		probe.SetAttribute("type", "probe")
		p.Conn.sendBytes([]byte(probe.String()))
	}
}

func (c *Connection) broadcastPresence(el *xmppelem.Element) {
	for _, p := range c.hub.Snapshot() {
		el.SetAttribute("to", p.BareJID)
		p.Conn.sendBytes([]byte(el.String()))
	}
}

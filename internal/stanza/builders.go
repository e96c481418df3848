// Package stanza holds the pure functions that build serialized XMPP
// fragments: the stream header, <stream:features>, and the iq and
// roster templates the dispatcher replies with (§4.1, §4.3, §4.5).
package stanza

import (
	"fmt"

	"github.com/dcbishop/lazyxmpp/internal/xmppelem"
)

const (
	StreamNamespace  = "http://etherx.jabber.org/streams"
	ClientNamespace  = "jabber:client"
	SASLNamespace    = "urn:ietf:params:xml:ns:xmpp-sasl"
	BindNamespace    = "urn:ietf:params:xml:ns:xmpp-bind"
	SessionNamespace = "urn:ietf:params:xml:ns:xmpp-session"
	TLSNamespace     = "urn:ietf:params:xml:ns:xmpp-tls"
	RosterNamespace  = "jabber:iq:roster"
	RegisterNamespace = "jabber:iq:register"
	DiscoItemsNamespace = "http://jabber.org/protocol/disco#items"
	DiscoInfoNamespace  = "http://jabber.org/protocol/disco#info"
)

// StreamPreamble renders the "<?xml version='1.0'?>" + open
// "<stream:stream ...>" header the server sends on every stream open.
func StreamPreamble(hostname, streamID string) string {
	return fmt.Sprintf(
		`<?xml version='1.0'?><stream:stream xmlns='%s' xmlns:stream='%s' id='%s' from='%s' version='1.0'>`,
		ClientNamespace, StreamNamespace, streamID, hostname,
	)
}

// FeatureOpts carries the state the <stream:features> generators of
// §4.3 inspect; Authenticated gates several of them.
type FeatureOpts struct {
	TLSEnabled         bool
	Authenticated      bool
	Bound              bool
	RegistrationOffered bool
}

// Features builds the full <stream:features> element.
func Features(opts FeatureOpts) *xmppelem.Element {
	features := xmppelem.NewName("stream:features")

	if opts.TLSEnabled && !opts.Authenticated {
		features.AppendChild(xmppelem.NewNamespace("starttls", TLSNamespace))
	}
	if !opts.Authenticated {
		mechanisms := xmppelem.NewNamespace("mechanisms", SASLNamespace)
		anon := xmppelem.NewName("mechanism")
		anon.SetText("ANONYMOUS")
		plain := xmppelem.NewName("mechanism")
		plain.SetText("PLAIN")
		mechanisms.AppendChild(anon)
		mechanisms.AppendChild(plain)
		mechanisms.AppendChild(xmppelem.NewName("required"))
		features.AppendChild(mechanisms)
	}
	if opts.Authenticated && !opts.Bound {
		features.AppendChild(xmppelem.NewNamespace("bind", BindNamespace))
		features.AppendChild(xmppelem.NewNamespace("session", SessionNamespace))
	}
	if !opts.Authenticated && opts.RegistrationOffered {
		features.AppendChild(xmppelem.NewNamespace("register", "http://jabber.org/features/iq-register"))
	}
	return features
}

// SASLSuccess builds <success xmlns='...sasl'/>.
func SASLSuccess() *xmppelem.Element {
	return xmppelem.NewNamespace("success", SASLNamespace)
}

// BindResult builds the <iq type='result'><bind><jid/></bind></iq>
// reply to a successful resource bind (§4.5.1).
func BindResult(id, fullJID string) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "result")
	iq.SetAttribute("id", id)
	bind := xmppelem.NewNamespace("bind", BindNamespace)
	jidEl := xmppelem.NewName("jid")
	jidEl.SetText(fullJID)
	bind.AppendChild(jidEl)
	iq.AppendChild(bind)
	return iq
}

// SessionResult builds the <iq type='result'><session/></iq> reply.
func SessionResult(id string) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "result")
	iq.SetAttribute("id", id)
	iq.AppendChild(xmppelem.NewNamespace("session", SessionNamespace))
	return iq
}

// RosterItem is one entry of a roster result or push (§4.5, §4.5.1).
type RosterItem struct {
	JID  string
	Name string
}

// RosterResult builds the <iq type='result'><query/></iq> roster-get
// reply (S5).
func RosterResult(id, to string, items []RosterItem) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "result")
	iq.SetAttribute("id", id)
	if to != "" {
		iq.SetAttribute("to", to)
	}
	query := xmppelem.NewNamespace("query", RosterNamespace)
	for _, it := range items {
		query.AppendChild(rosterItemElement(it))
	}
	iq.AppendChild(query)
	return iq
}

// RosterPush builds the synthetic <iq type='set'><query/></iq> sent to
// every bound session when a new session binds (§4.5.1, §9).
func RosterPush(item RosterItem) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "set")
	iq.SetAttribute("id", "roster-push")
	query := xmppelem.NewNamespace("query", RosterNamespace)
	query.AppendChild(rosterItemElement(item))
	iq.AppendChild(query)
	return iq
}

func rosterItemElement(it RosterItem) *xmppelem.Element {
	item := xmppelem.NewName("item")
	item.SetAttribute("subscription", "to")
	item.SetAttribute("name", it.Name)
	item.SetAttribute("jid", it.JID)
	return item
}

// EmptyDiscoQuery builds the placeholder disco items/info reply (§4.5).
func EmptyDiscoQuery(id, namespace string) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "result")
	iq.SetAttribute("id", id)
	iq.AppendChild(xmppelem.NewNamespace("query", namespace))
	return iq
}

// PingResult builds the empty <iq type='result'/> ping reply.
func PingResult(id string) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "result")
	iq.SetAttribute("id", id)
	return iq
}

// RegisterPrompt builds the in-band-registration form reply carrying
// <username/><password/> (§4.5, stub write path).
func RegisterPrompt(id string) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "result")
	iq.SetAttribute("id", id)
	query := xmppelem.NewNamespace("query", RegisterNamespace)
	query.AppendChild(xmppelem.NewName("username"))
	query.AppendChild(xmppelem.NewName("password"))
	iq.AppendChild(query)
	return iq
}

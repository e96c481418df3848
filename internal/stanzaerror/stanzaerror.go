// Package stanzaerror builds SASL <failure/> and <iq type='error'>
// fragments (§6).
package stanzaerror

import "github.com/dcbishop/lazyxmpp/internal/xmppelem"

const (
	saslNamespace    = "urn:ietf:params:xml:ns:xmpp-sasl"
	stanzasNamespace = "urn:ietf:params:xml:ns:xmpp-stanzas"
)

// SASLFailure builds <failure xmlns='...sasl'><condition/></failure>.
func SASLFailure(condition string) *xmppelem.Element {
	failure := xmppelem.NewNamespace("failure", saslNamespace)
	failure.AppendChild(xmppelem.NewName(condition))
	return failure
}

// ServiceUnavailableIQ builds the cancel/service-unavailable error iq
// reply for the given request id, echoing the original query child.
func ServiceUnavailableIQ(id, to string, query *xmppelem.Element) *xmppelem.Element {
	iq := xmppelem.NewName("iq")
	iq.SetAttribute("type", "error")
	iq.SetAttribute("id", id)
	if to != "" {
		iq.SetAttribute("to", to)
	}
	if query != nil {
		iq.AppendChild(query)
	}
	errEl := xmppelem.NewName("error")
	errEl.SetAttribute("type", "cancel")
	errEl.AppendChild(xmppelem.NewNamespace("service-unavailable", stanzasNamespace))
	iq.AppendChild(errEl)
	return iq
}

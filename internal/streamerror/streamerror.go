// Package streamerror builds the <stream:error> fragments that close
// an XMPP stream, mirroring jackal's streamerror package.
package streamerror

import "github.com/dcbishop/lazyxmpp/internal/xmppelem"

const streamsNamespace = "urn:ietf:params:xml:ns:xmpp-streams"

// Error is a named stream-level failure condition.
type Error struct {
	condition string
}

// Element renders the <stream:error> fragment for this condition.
func (e *Error) Element() *xmppelem.Element {
	streamErr := xmppelem.NewName("stream:error")
	cond := xmppelem.NewNamespace(e.condition, streamsNamespace)
	streamErr.AppendChild(cond)
	return streamErr
}

func (e *Error) Error() string { return "stream error: " + e.condition }

// Stream-level conditions (§4.3, §6). The dispatcher sends
// ErrInvalidNamespace and ErrNotAuthorized.
var (
	ErrInvalidNamespace    = &Error{"invalid-namespace"}
	ErrNotAuthorized       = &Error{"not-authorized"}
	ErrHostUnknown         = &Error{"host-unknown"}
	ErrUnsupportedVersion  = &Error{"unsupported-version"}
	ErrUnsupportedStanzaType = &Error{"unsupported-stanza-type"}
	ErrInvalidXML          = &Error{"bad-format"}
	ErrPolicyViolation     = &Error{"policy-violation"}
	ErrConnectionTimeout   = &Error{"connection-timeout"}
)

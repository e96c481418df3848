package xmppelem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFragmentCompleteElement(t *testing.T) {
	el, err := ParseFragment([]byte(`<iq id='b1' type='set'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><resource>laptop</resource></bind></iq>`))
	require.NoError(t, err)
	require.Equal(t, "iq", el.Name())
	require.Equal(t, "b1", el.Attribute("id"))

	bind := el.Child("bind")
	require.NotNil(t, bind)
	require.Equal(t, "urn:ietf:params:xml:ns:xmpp-bind", bind.Namespace())

	resource := bind.Child("resource")
	require.NotNil(t, resource)
	require.Equal(t, "laptop", resource.Text())
}

func TestParseFragmentUnterminatedStreamOpen(t *testing.T) {
	el, err := ParseFragment([]byte(`<stream:stream to='localhost' xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' version='1.0'>`))
	require.ErrorIs(t, err, ErrUnterminatedRoot)
	require.NotNil(t, el)
	// encoding/xml resolves the "stream:" prefix before we see the
	// token: Name() is the bare local name and Namespace() carries the
	// resolved streams URI.
	require.Equal(t, "stream", el.Name())
	require.Equal(t, "http://etherx.jabber.org/streams", el.Namespace())
	require.Equal(t, "localhost", el.Attribute("to"))
}

func TestSerializationRendersAttributesAndEscapesText(t *testing.T) {
	el := NewName("message")
	el.SetAttribute("to", "bob@localhost")
	body := NewName("body")
	body.SetText("hi & bye")
	el.AppendChild(body)

	out := el.String()
	require.Contains(t, out, "to='bob@localhost'")
	require.Contains(t, out, "hi &amp; bye")
}

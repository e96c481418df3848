package server

import (
	"encoding/base64"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcbishop/lazyxmpp/internal/c2s"
	"github.com/dcbishop/lazyxmpp/internal/config"
	"github.com/dcbishop/lazyxmpp/internal/userstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := userstore.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	return New(cfg, store)
}

// bindSession drives a full client handshake (stream open, PLAIN auth,
// resource bind) over an in-memory pipe and registers the resulting
// Connection with srv, the way the real acceptor would.
func bindSession(t *testing.T, srv *Server, node, password, resource string) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	client.SetDeadline(time.Now().Add(2 * time.Second))
	t.Cleanup(func() { client.Close() })

	conn := c2s.New(server, srv)
	go conn.Serve()

	client.Write([]byte(`<stream:stream to='` + srv.Hostname() + `' xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams' version='1.0'>`))
	drain(t, client)

	payload := base64.StdEncoding.EncodeToString([]byte("\x00" + node + "\x00" + password))
	client.Write([]byte(`<auth xmlns='urn:ietf:params:xml:ns:xmpp-sasl' mechanism='PLAIN'>` + payload + `</auth>`))
	drain(t, client)

	client.Write([]byte(`<iq id='b1' type='set'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><resource>` + resource + `</resource></bind></iq>`))
	drain(t, client)

	return client
}

// drain reads everything the server has written so far: it waits up to
// 500ms for the first write, then keeps reading until the connection
// stays idle for 100ms. A net.Pipe read returns at most one write, so a
// single read would leave queued stanzas behind.
func drain(t *testing.T, conn net.Conn) string {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, 4096)
	wait := 500 * time.Millisecond
	for {
		conn.SetReadDeadline(time.Now().Add(wait))
		n, err := conn.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			return sb.String()
		}
		wait = 100 * time.Millisecond
	}
}

func TestMessageRoutingBetweenTwoSessions(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.UserStore().RegisterUser("alice", "secret")
	require.NoError(t, err)
	_, err = srv.UserStore().RegisterUser("bob", "hunter2")
	require.NoError(t, err)

	alice := bindSession(t, srv, "alice", "secret", "laptop")
	bob := bindSession(t, srv, "bob", "hunter2", "phone")

	alice.Write([]byte(`<message to='bob@localhost' type='chat'><body>hi</body></message>`))
	out := drain(t, bob)

	require.Contains(t, out, "<body>hi</body>")
	require.Contains(t, out, "from='alice@localhost/laptop'")
}

func TestWriteToJIDMatchesBareAndFullJID(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.UserStore().RegisterUser("alice", "secret")
	require.NoError(t, err)

	laptop := bindSession(t, srv, "alice", "secret", "laptop")
	phone := bindSession(t, srv, "alice", "secret", "phone")
	drain(t, laptop) // flush the roster push triggered by phone's bind

	srv.WriteToJID("alice@localhost/laptop", []byte("only-laptop"))
	gotLaptop := drain(t, laptop)
	require.Contains(t, gotLaptop, "only-laptop")

	srv.WriteToJID("alice@localhost", []byte("both-resources"))
	gotLaptop = drain(t, laptop)
	gotPhone := drain(t, phone)
	require.Contains(t, gotLaptop, "both-resources")
	require.Contains(t, gotPhone, "both-resources")
}

func TestWriteToJIDNoMatchIsSilentlyDropped(t *testing.T) {
	srv := newTestServer(t)
	srv.WriteToJID("ghost@localhost", []byte("nobody-home"))
	// no registry members: nothing to assert beyond "it does not panic".
}

func TestRosterGetListsEveryConnectedPeer(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.UserStore().RegisterUser("alice", "secret")
	require.NoError(t, err)
	_, err = srv.UserStore().RegisterUser("bob", "hunter2")
	require.NoError(t, err)

	alice := bindSession(t, srv, "alice", "secret", "laptop")
	bindSession(t, srv, "bob", "hunter2", "phone")
	drain(t, alice) // flush the roster push triggered by bob's bind

	alice.Write([]byte(`<iq id='r1' type='get'><query xmlns='jabber:iq:roster'/></iq>`))
	out := drain(t, alice)

	require.True(t, strings.Contains(out, "bob@localhost") && strings.Contains(out, "alice@localhost"))
}

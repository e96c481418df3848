package jid

import "testing"

func TestParseFull(t *testing.T) {
	j, err := Parse("alice@localhost/laptop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Node() != "alice" || j.Domain() != "localhost" || j.Resource() != "laptop" {
		t.Fatalf("unexpected parts: %+v", j)
	}
	if j.String() != "alice@localhost/laptop" {
		t.Fatalf("unexpected string: %s", j.String())
	}
}

func TestParseBare(t *testing.T) {
	j, err := Parse("bob@localhost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !j.IsBare() {
		t.Fatal("expected bare JID")
	}
	if j.String() != "bob@localhost" {
		t.Fatalf("unexpected string: %s", j.String())
	}
}

func TestToBareJID(t *testing.T) {
	j, _ := Parse("alice@localhost/laptop")
	bare := j.ToBareJID()
	if !bare.IsBare() || bare.String() != "alice@localhost" {
		t.Fatalf("unexpected bare jid: %s", bare.String())
	}
}

func TestEqual(t *testing.T) {
	a, _ := Parse("alice@localhost/laptop")
	b, _ := Parse("alice@localhost/laptop")
	c, _ := Parse("alice@localhost/phone")
	if !a.Equal(b) {
		t.Fatal("expected equal JIDs")
	}
	if a.Equal(c) {
		t.Fatal("expected different JIDs")
	}
}

func TestInvalidDomain(t *testing.T) {
	if _, err := New("alice", "", "laptop"); err == nil {
		t.Fatal("expected error for empty domain")
	}
}

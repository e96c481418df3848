// Package jid implements XMPP addresses of the form node@domain/resource,
// as described in RFC 6122/7622.
package jid

import (
	"errors"
	"strings"

	"golang.org/x/text/secure/precis"
)

// ErrInvalidJID is returned when a string cannot be parsed into a JID.
var ErrInvalidJID = errors.New("jid: invalid JID")

// JID represents a full or bare Jabber ID.
type JID struct {
	node     string
	domain   string
	resource string
}

// New builds a JID from its parts, normalizing node and resource the way
// RFC 7622 nodeprep/resourceprep would (case-mapped, opaque string
// profiles from golang.org/x/text/secure/precis).
func New(node, domain, resource string) (*JID, error) {
	if domain == "" {
		return nil, ErrInvalidJID
	}
	var err error
	if node != "" {
		node, err = precis.UsernameCaseMapped.String(node)
		if err != nil {
			return nil, ErrInvalidJID
		}
	}
	if resource != "" {
		resource, err = precis.OpaqueString.String(resource)
		if err != nil {
			return nil, ErrInvalidJID
		}
	}
	return &JID{node: node, domain: strings.ToLower(domain), resource: resource}, nil
}

// Parse splits s into a JID. Accepts node@domain, node@domain/resource and
// bare domain[/resource] forms.
func Parse(s string) (*JID, error) {
	var node, domain, resource string

	if idx := strings.Index(s, "/"); idx >= 0 {
		resource = s[idx+1:]
		s = s[:idx]
	}
	if idx := strings.Index(s, "@"); idx >= 0 {
		node = s[:idx]
		domain = s[idx+1:]
	} else {
		domain = s
	}
	return New(node, domain, resource)
}

// Node returns the local part, possibly empty.
func (j *JID) Node() string { return j.node }

// Domain returns the domain part.
func (j *JID) Domain() string { return j.domain }

// Resource returns the resource part, possibly empty.
func (j *JID) Resource() string { return j.resource }

// IsBare reports whether the JID carries no resource.
func (j *JID) IsBare() bool { return j.resource == "" }

// IsFull reports whether the JID carries a resource.
func (j *JID) IsFull() bool { return j.resource != "" }

// ToBareJID returns a copy of j with the resource stripped.
func (j *JID) ToBareJID() *JID {
	return &JID{node: j.node, domain: j.domain}
}

// String renders the canonical node@domain/resource (or a prefix of it).
func (j *JID) String() string {
	var sb strings.Builder
	if j.node != "" {
		sb.WriteString(j.node)
		sb.WriteByte('@')
	}
	sb.WriteString(j.domain)
	if j.resource != "" {
		sb.WriteByte('/')
		sb.WriteString(j.resource)
	}
	return sb.String()
}

// Equal compares two JIDs by their normalized string form.
func (j *JID) Equal(other *JID) bool {
	if j == nil || other == nil {
		return j == other
	}
	return j.node == other.node && j.domain == other.domain && j.resource == other.resource
}

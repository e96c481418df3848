// Package xmppelem provides the DOM-like element tree the rest of the
// server consumes: a parsed stanza or stream fragment with attribute
// and child-element access plus serialization back to XML text. Lexing
// is done by ParseFragment on top of encoding/xml's Decoder; it
// tolerates XMPP's never-closed outer <stream:stream> root the way a
// SAX parser's "unterminated root" condition does (§9).
package xmppelem

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Attr is a single XML attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a single XML element with attributes, text and children.
type Element struct {
	name      string
	namespace string
	attrs     []Attr
	children  []*Element
	text      string
}

// NewName builds an empty element with the given tag name.
func NewName(name string) *Element {
	return &Element{name: name}
}

// NewNamespace builds an empty element with the given tag name and
// xmlns attribute.
func NewNamespace(name, namespace string) *Element {
	e := &Element{name: name, namespace: namespace}
	if namespace != "" {
		e.SetAttribute("xmlns", namespace)
	}
	return e
}

// Name returns the local tag name (namespace prefix stripped).
func (e *Element) Name() string { return e.name }

// Namespace returns the element's namespace: the one set at
// construction or resolved by ParseFragment (from the tag's prefix or
// the default namespace in scope), else its xmlns attribute value, if
// any.
func (e *Element) Namespace() string {
	if e.namespace != "" {
		return e.namespace
	}
	return e.Attribute("xmlns")
}

// SetAttribute sets (or replaces) an attribute.
func (e *Element) SetAttribute(name, value string) *Element {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = value
			return e
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: value})
	return e
}

// Attribute returns the named attribute value, or "" if absent.
func (e *Element) Attribute(name string) string {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Attributes returns every attribute on the element.
func (e *Element) Attributes() []Attr { return e.attrs }

// SetText sets the element's character data.
func (e *Element) SetText(text string) *Element {
	e.text = text
	return e
}

// Text returns the element's character data.
func (e *Element) Text() string { return e.text }

// AppendChild adds a child element and returns e for chaining.
func (e *Element) AppendChild(child *Element) *Element {
	e.children = append(e.children, child)
	return e
}

// AppendChildren adds every child in els.
func (e *Element) AppendChildren(els []*Element) *Element {
	e.children = append(e.children, els...)
	return e
}

// Children returns every direct child element.
func (e *Element) Children() []*Element { return e.children }

// Child returns the first direct child with the given name, or nil.
func (e *Element) Child(name string) *Element {
	for _, c := range e.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// ChildNamespace returns the first direct child matching both name and
// namespace, or nil.
func (e *Element) ChildNamespace(name, namespace string) *Element {
	for _, c := range e.children {
		if c.name == name && c.Namespace() == namespace {
			return c
		}
	}
	return nil
}

// String serializes the element (and its subtree) to XML text.
func (e *Element) String() string {
	var sb strings.Builder
	e.writeTo(&sb)
	return sb.String()
}

func (e *Element) writeTo(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(e.name)
	for _, a := range e.attrs {
		fmt.Fprintf(sb, ` %s='%s'`, a.Name, xmlEscape(a.Value))
	}
	if len(e.children) == 0 && e.text == "" {
		sb.WriteString("></")
		sb.WriteString(e.name)
		sb.WriteByte('>')
		return
	}
	sb.WriteByte('>')
	sb.WriteString(xmlEscape(e.text))
	for _, c := range e.children {
		c.writeTo(sb)
	}
	sb.WriteString("</")
	sb.WriteString(e.name)
	sb.WriteByte('>')
}

func xmlEscape(s string) string {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return s
	}
	return sb.String()
}

// ErrUnterminatedRoot marks input that ended (or stopped decoding)
// before its root element was closed. It is expected for the read
// carrying the <stream:stream> opener, since XMPP never closes that
// element during normal operation (§4.2).
var ErrUnterminatedRoot = fmt.Errorf("xmppelem: unterminated root element")

// ParseFragment parses one top-level stanza out of b. XMPP streams
// never close their outer <stream:stream> during normal operation, so
// once a root start tag has been read, any later decoder error
// (encoding/xml reports missing end tags as a syntax error) is returned
// as ErrUnterminatedRoot together with the root built so far, which the
// caller treats as valid; the root's subtree is not checked for
// completeness. Input with no element at all yields
// (nil, ErrUnterminatedRoot); a decoder error before any start tag is
// returned as is.
func ParseFragment(b []byte) (*Element, error) {
	dec := xml.NewDecoder(strings.NewReader(string(b)))

	var stack []*Element
	var root *Element
	for {
		tok, err := dec.Token()
		if err != nil {
			if root != nil {
				return root, ErrUnterminatedRoot
			}
			if err == io.EOF {
				return nil, ErrUnterminatedRoot
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := NewName(t.Name.Local)
			if t.Name.Space != "" {
				el.namespace = t.Name.Space
			}
			for _, a := range t.Attr {
				if a.Name.Local == "xmlns" && el.namespace == "" {
					el.namespace = a.Value
				}
				el.SetAttribute(a.Name.Local, a.Value)
			}
			if len(stack) == 0 {
				root = el
			} else {
				stack[len(stack)-1].AppendChild(el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return root, nil
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
}

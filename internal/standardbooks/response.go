package standardbooks

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// standaloneDecl is the tail of the XML declaration the API emits on bare,
// unwrapped payloads. Its presence is what licenses the leniency re-wrap.
const standaloneDecl = "standalone='yes'?>"

// Node is one element of a parsed response document.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Child returns the first direct child with the given element name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildAll returns every direct child with the given element name.
func (n *Node) ChildAll(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Field returns the named attribute if present, otherwise the text of the
// named child element. Standard Books emits some record fields
// attribute-style and some element-style; callers should not have to care
// which shape a given install produces.
func (n *Node) Field(name string) string {
	if v, ok := n.Attrs[name]; ok {
		return v
	}
	if c := n.Child(name); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}

// APIError is a protocol-level failure reported by the external system
// through an error node in the response envelope.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("standard books error %d: %s", e.Code, e.Description)
}

// Response is the parsed result of one API round trip. Payload is the
// business node container (the data envelope when present, the document
// root otherwise); Messages holds informational descriptions the envelope
// carried alongside the data.
type Response struct {
	Payload  *Node
	Messages []string
}

// ParseResponse parses raw response XML into a Response.
//
// The endpoint is observed to sometimes emit several top-level elements
// after the XML declaration, which is not a well-formed document. When the
// strict parse fails, or the payload lacks the data wrapper, and the raw
// bytes carry the standalone declaration, a synthetic <response> wrapper is
// injected and the parse retried. This is deliberately narrow: anything
// else malformed still fails.
//
// An error node in the envelope turns into an *APIError built from the
// first such node; message nodes are collected without affecting success.
func ParseResponse(raw []byte) (*Response, error) {
	root, err := parseTree(raw)
	if err != nil || !bytes.Contains(raw, []byte("<"+requestRootElement+">")) {
		if wrapped, ok := wrapBare(raw); ok {
			if wrappedRoot, wrapErr := parseTree(wrapped); wrapErr == nil {
				root, err = wrappedRoot, nil
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if errNode := root.Child("error"); errNode != nil {
		code, _ := strconv.Atoi(errNode.Field("code"))
		return nil, &APIError{
			Code:        code,
			Description: errNode.Field("description"),
		}
	}

	resp := &Response{Payload: root}

	for _, msg := range root.ChildAll("message") {
		resp.Messages = append(resp.Messages, msg.Field("description"))
	}

	if data := root.Child(requestRootElement); data != nil {
		resp.Payload = data
	}

	return resp, nil
}

// wrapBare injects a synthetic root element after the standalone XML
// declaration. Returns false when the declaration is absent, in which case
// the document is left alone.
func wrapBare(raw []byte) ([]byte, bool) {
	if !bytes.Contains(raw, []byte(standaloneDecl)) {
		return nil, false
	}
	wrapped := bytes.Replace(raw, []byte(standaloneDecl), []byte(standaloneDecl+"<response>"), 1)
	wrapped = append(wrapped, []byte("</response>")...)
	return wrapped, true
}

// parseTree parses a document into its root Node. CDATA sections come
// through the decoder as character data, so literal text survives without
// re-escaping. The decoder's token scanner does not enforce a single root,
// so tokens are read through to EOF: a second top-level element or stray
// text after the root makes the document malformed.
func parseTree(raw []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var root *Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if root == nil {
				return nil, io.ErrUnexpectedEOF
			}
			return root, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, fmt.Errorf("unexpected second document element <%s>", t.Name.Local)
			}
			if root, err = parseElement(dec, t); err != nil {
				return nil, err
			}
		case xml.CharData:
			if root != nil && len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("unexpected character data after document element")
			}
		}
	}
}

func parseElement(dec *xml.Decoder, start xml.StartElement) (*Node, error) {
	node := &Node{
		Name:  start.Name.Local,
		Attrs: make(map[string]string, len(start.Attr)),
	}
	for _, attr := range start.Attr {
		node.Attrs[attr.Name.Local] = attr.Value
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		case xml.CharData:
			node.Text += string(t)
		case xml.EndElement:
			return node, nil
		}
	}
}

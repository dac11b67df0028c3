// Package markup holds the editable document model: a typed node tree built
// from permissively parsed HTML, the identifier index kept alongside it, and
// the two passes that add and remove editor scaffolding.
package markup

import "strings"

// NodeKind identifies the variant of a Node.
type NodeKind int

const (
	DocumentNode NodeKind = iota
	DoctypeNode
	ElementNode
	TextNode
	CommentNode
)

// Attr is a single element attribute.
type Attr struct {
	Namespace string
	Key       string
	Val       string
}

// Node is one node of a document tree.
type Node struct {
	Kind      NodeKind
	Tag       string // element tag, lower-case
	Namespace string // "" for HTML elements, "svg" or "math" for foreign content
	Data      string // text, comment body or doctype name
	Attrs     []Attr
	Parent    *Node
	Children  []*Node
}

// voidElements cannot carry children.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// IsVoid reports whether the node is an element that cannot hold content.
func (n *Node) IsVoid() bool {
	return n.Kind == ElementNode && n.Namespace == "" && voidElements[n.Tag]
}

// Attr returns the value of the attribute with the given key.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attrs {
		if a.Namespace == "" && a.Key == key {
			n.Attrs[i].Val = val
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
}

// RemoveAttr deletes every attribute with the given key and reports whether
// anything was removed.
func (n *Node) RemoveAttr(key string) bool {
	kept := n.Attrs[:0]
	removed := false
	for _, a := range n.Attrs {
		if a.Namespace == "" && a.Key == key {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	n.Attrs = kept
	return removed
}

// AppendChild attaches c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// InsertChild attaches c at position i of n's children.
func (n *Node) InsertChild(i int, c *Node) {
	c.Parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = c
}

// RemoveChild detaches c from n.
func (n *Node) RemoveChild(c *Node) bool {
	for i, child := range n.Children {
		if child == c {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			c.Parent = nil
			return true
		}
	}
	return false
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// TextContent returns the concatenated text of n and its descendants.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		if c.Kind == TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

// hiddenText lists elements whose text is never shown to the reader.
var hiddenText = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true, "head": true,
}

// VisibleText approximates what a browser renders for n: script and style
// bodies are skipped and whitespace runs collapse to a single space.
func (n *Node) VisibleText() string {
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		switch c.Kind {
		case ElementNode:
			if hiddenText[c.Tag] {
				return false
			}
			if c.Tag == "br" {
				sb.WriteByte(' ')
			}
		case TextNode:
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		case CommentNode:
			return false
		}
		return true
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// clone returns a deep copy of n with parent links rebuilt.
func (n *Node) clone() *Node {
	c := &Node{
		Kind:      n.Kind,
		Tag:       n.Tag,
		Namespace: n.Namespace,
		Data:      n.Data,
		Attrs:     append([]Attr(nil), n.Attrs...),
	}
	for _, child := range n.Children {
		c.AppendChild(child.clone())
	}
	return c
}

// findElement returns the first element with the given tag at or below n.
func findElement(n *Node, tag string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Kind == ElementNode && c.Namespace == "" && c.Tag == tag {
			found = c
			return false
		}
		return true
	})
	return found
}

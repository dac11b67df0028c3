package markup

import (
	"bytes"
	"log"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page together with an index from stable identifier to
// element. The index is kept current by every mutating method.
type Document struct {
	root *Node
	byID map[string]*Node
}

// Parse reads raw markup permissively. Fragments are wrapped in a full
// html/head/body skeleton and malformed input is repaired the way browsers
// repair it. Parse never fails.
func Parse(raw string) *Document {
	parsed, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		log.Printf("markup: parse failed, keeping input as text: %v", err)
		parsed = textDocument(raw)
	}
	d := &Document{root: fromHTML(parsed)}
	d.reindex()
	return d
}

// textDocument builds a minimal document that holds raw as body text.
func textDocument(raw string) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	root := &html.Node{Type: html.ElementNode, Data: "html", DataAtom: atom.Html}
	head := &html.Node{Type: html.ElementNode, Data: "head", DataAtom: atom.Head}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	body.AppendChild(&html.Node{Type: html.TextNode, Data: raw})
	root.AppendChild(head)
	root.AppendChild(body)
	doc.AppendChild(root)
	return doc
}

func fromHTML(h *html.Node) *Node {
	n := &Node{}
	switch h.Type {
	case html.DocumentNode:
		n.Kind = DocumentNode
	case html.DoctypeNode:
		n.Kind = DoctypeNode
		n.Data = h.Data
	case html.ElementNode:
		n.Kind = ElementNode
		n.Tag = h.Data
		n.Namespace = h.Namespace
	case html.TextNode:
		n.Kind = TextNode
		n.Data = h.Data
	case html.CommentNode:
		n.Kind = CommentNode
		n.Data = h.Data
	default:
		return nil
	}
	for _, a := range h.Attr {
		n.Attrs = append(n.Attrs, Attr{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if child := fromHTML(c); child != nil {
			n.AppendChild(child)
		}
	}
	return n
}

func toHTML(n *Node) *html.Node {
	h := &html.Node{}
	switch n.Kind {
	case DocumentNode:
		h.Type = html.DocumentNode
	case DoctypeNode:
		h.Type = html.DoctypeNode
		h.Data = n.Data
	case ElementNode:
		h.Type = html.ElementNode
		h.Data = n.Tag
		h.Namespace = n.Namespace
		if n.Namespace == "" {
			h.DataAtom = atom.Lookup([]byte(n.Tag))
		}
	case TextNode:
		h.Type = html.TextNode
		h.Data = n.Data
	case CommentNode:
		h.Type = html.CommentNode
		h.Data = n.Data
	}
	for _, a := range n.Attrs {
		h.Attr = append(h.Attr, html.Attribute{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
	}
	for _, c := range n.Children {
		h.AppendChild(toHTML(c))
	}
	return h
}

// Render serializes the document. A doctype, when present, is followed by a
// newline so exported files stay readable.
func (d *Document) Render() string {
	var buf bytes.Buffer
	for _, c := range d.root.Children {
		if err := html.Render(&buf, toHTML(c)); err != nil {
			log.Printf("markup: render: %v", err)
		}
		if c.Kind == DoctypeNode {
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// Root returns the document node.
func (d *Document) Root() *Node { return d.root }

// Body returns the body element, or nil for frameset documents.
func (d *Document) Body() *Node { return findElement(d.root, "body") }

// Head returns the head element.
func (d *Document) Head() *Node { return findElement(d.root, "head") }

// Title returns the trimmed text of the <title> element.
func (d *Document) Title() string {
	head := d.Head()
	if head == nil {
		return ""
	}
	if t := findElement(head, "title"); t != nil {
		return strings.TrimSpace(t.TextContent())
	}
	return ""
}

// MetaDescription returns the content of <meta name="description">.
func (d *Document) MetaDescription() string {
	var desc string
	d.root.Walk(func(n *Node) bool {
		if desc != "" {
			return false
		}
		if n.Kind == ElementNode && n.Tag == "meta" {
			if name, _ := n.Attr("name"); strings.EqualFold(name, "description") {
				desc, _ = n.Attr("content")
				desc = strings.TrimSpace(desc)
			}
		}
		return true
	})
	return desc
}

// Lookup returns the element carrying the given stable identifier.
func (d *Document) Lookup(id string) (*Node, bool) {
	n, ok := d.byID[id]
	return n, ok
}

// IDs returns every indexed identifier in document order.
func (d *Document) IDs() []string {
	var ids []string
	d.root.Walk(func(n *Node) bool {
		if n.Kind == ElementNode {
			if id, ok := n.Attr(IDAttr); ok && d.byID[id] == n {
				ids = append(ids, id)
			}
		}
		return true
	})
	return ids
}

// SetText replaces the content of the identified element with a single text
// node, like assigning textContent in a browser. It reports false, leaving
// the document untouched, when the identifier is unknown or the element
// cannot hold text.
func (d *Document) SetText(id, text string) bool {
	n, ok := d.byID[id]
	if !ok || n.IsVoid() || n.Tag == "script" || n.Tag == "style" {
		return false
	}
	for _, c := range n.Children {
		d.unindex(c)
		c.Parent = nil
	}
	n.Children = nil
	if text != "" {
		n.AppendChild(&Node{Kind: TextNode, Data: text})
	}
	return true
}

// Clone returns an independent deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{root: d.root.clone()}
	c.reindex()
	return c
}

func (d *Document) reindex() {
	d.byID = make(map[string]*Node)
	d.root.Walk(func(n *Node) bool {
		if n.Kind != ElementNode {
			return true
		}
		if id, ok := n.Attr(IDAttr); ok && id != "" {
			if _, seen := d.byID[id]; !seen {
				d.byID[id] = n
			}
		}
		return true
	})
}

func (d *Document) unindex(n *Node) {
	n.Walk(func(c *Node) bool {
		if c.Kind == ElementNode {
			if id, ok := c.Attr(IDAttr); ok && d.byID[id] == c {
				delete(d.byID, id)
			}
		}
		return true
	})
}

// ensureDoctype inserts an HTML doctype when the document has none.
func (d *Document) ensureDoctype() {
	for _, c := range d.root.Children {
		if c.Kind == DoctypeNode {
			return
		}
	}
	d.root.InsertChild(0, &Node{Kind: DoctypeNode, Data: "html"})
}

package markup

import (
	_ "embed"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// IDAttr carries the stable identifier of an editable element.
	IDAttr = "data-edit-id"
	// RuntimeScriptID marks the injected in-document runtime script.
	RuntimeScriptID = "edit-runtime"
	// RuntimeStyleID marks the stylesheet the runtime creates when it boots.
	RuntimeStyleID = "edit-runtime-style"
	// HoverAttr is set by the runtime on the element under the pointer.
	HoverAttr = "data-edit-hover"
	// SelectingAttr is set by the runtime on <body> while selection is active.
	SelectingAttr = "data-edit-selecting"
)

//go:embed runtime.js
var runtimeJS string

// RuntimeScript returns the source of the in-document runtime.
func RuntimeScript() string { return runtimeJS }

// Normalizer prepares markup for the editor. Identifiers it hands out are
// built from its seed and a counter that only moves forward, so one
// Normalizer never issues the same identifier twice.
type Normalizer struct {
	mu   sync.Mutex
	seed string
	next uint64
}

// NewNormalizer returns a Normalizer whose identifiers use the given seed.
func NewNormalizer(seed string) *Normalizer {
	if seed == "" {
		seed = NewSeed()
	}
	return &Normalizer{seed: seed}
}

// NewSeed returns a short random seed suitable for one editing session.
func NewSeed() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Normalize prepares raw markup with a fresh seed.
func Normalize(raw string) string {
	return NewNormalizer("").Normalize(raw)
}

// Normalize parses raw markup, applies Apply and renders the result.
func (z *Normalizer) Normalize(raw string) string {
	return z.Prepare(raw).Render()
}

// Prepare parses raw markup and applies Apply to it.
func (z *Normalizer) Prepare(raw string) *Document {
	d := Parse(raw)
	z.Apply(d)
	return d
}

// Apply adds editor scaffolding to d in place: a doctype, exactly one runtime
// script and an identifier on every body element (or every frameset
// descendant when the document has no body). Existing identifiers are
// kept; only missing, empty or duplicated ones are (re)assigned, so applying
// it twice changes nothing the second time.
func (z *Normalizer) Apply(d *Document) {
	d.ensureDoctype()
	script := ensureRuntime(d)

	host := d.contentRoot()

	taken := make(map[string]bool)
	host.Walk(func(n *Node) bool {
		if n == script {
			return false
		}
		if n.Kind == ElementNode && n != host {
			if id, ok := n.Attr(IDAttr); ok && id != "" {
				taken[id] = true
			}
		}
		return true
	})

	seen := make(map[string]bool)
	host.Walk(func(n *Node) bool {
		if n == script {
			return false
		}
		if n.Kind != ElementNode || n == host {
			return true
		}
		id, _ := n.Attr(IDAttr)
		if id == "" || seen[id] {
			id = z.nextID(taken)
			n.SetAttr(IDAttr, id)
		}
		seen[id] = true
		return true
	})

	d.reindex()
}

func (z *Normalizer) nextID(taken map[string]bool) string {
	z.mu.Lock()
	defer z.mu.Unlock()
	for {
		id := "e" + z.seed + "-" + strconv.FormatUint(z.next, 10)
		z.next++
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}

// ensureRuntime leaves exactly one runtime script in d and returns it. The
// surviving script's body is refreshed to the current runtime source.
func ensureRuntime(d *Document) *Node {
	var scripts []*Node
	d.root.Walk(func(n *Node) bool {
		if n.Kind == ElementNode {
			if id, _ := n.Attr("id"); id == RuntimeScriptID {
				scripts = append(scripts, n)
				return false
			}
		}
		return true
	})

	for _, extra := range scripts[min(len(scripts), 1):] {
		d.unindex(extra)
		extra.Parent.RemoveChild(extra)
	}

	if len(scripts) > 0 {
		s := scripts[0]
		s.RemoveAttr(IDAttr)
		s.Children = nil
		s.AppendChild(&Node{Kind: TextNode, Data: runtimeJS})
		return s
	}

	s := &Node{Kind: ElementNode, Tag: "script", Attrs: []Attr{{Key: "id", Val: RuntimeScriptID}}}
	s.AppendChild(&Node{Kind: TextNode, Data: runtimeJS})
	// a script after </frameset> is dropped when the markup is parsed again
	parent := d.Body()
	if parent == nil {
		parent = d.Head()
	}
	if parent == nil {
		parent = findElement(d.root, "html")
	}
	if parent == nil {
		parent = d.root
	}
	parent.AppendChild(s)
	return s
}

// contentRoot returns the element whose descendants carry identifiers: the
// body, or the outermost frameset for frameset documents.
func (d *Document) contentRoot() *Node {
	if b := d.Body(); b != nil {
		return b
	}
	if f := findElement(d.root, "frameset"); f != nil {
		return f
	}
	return d.root
}

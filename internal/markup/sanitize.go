package markup

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// Sanitize strips editor scaffolding from editable markup and returns a clean
// document suitable for distribution.
func Sanitize(editable string) string {
	d := Parse(editable)
	d.StripScaffolding()
	return d.Render()
}

// StripScaffolding is the inverse of Normalizer.Apply. It removes the runtime
// script and stylesheet, every identifier and the runtime's transient
// highlight markers. Author content is left as it was.
func (d *Document) StripScaffolding() {
	var doomed []*Node
	d.root.Walk(func(n *Node) bool {
		if n.Kind != ElementNode {
			return true
		}
		if id, _ := n.Attr("id"); id == RuntimeScriptID || id == RuntimeStyleID {
			doomed = append(doomed, n)
			return false
		}
		selecting := n.RemoveAttr(SelectingAttr) && n.Tag == "body"
		hovered := n.RemoveAttr(HoverAttr)
		n.RemoveAttr(IDAttr)
		if style, ok := n.Attr("style"); ok && (hovered || selecting) {
			cleaned, changed := stripHighlight(style, hovered, selecting)
			switch {
			case !changed:
			case cleaned == "":
				n.RemoveAttr("style")
			default:
				n.SetAttr("style", cleaned)
			}
		}
		return true
	})
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	d.ensureDoctype()
	d.reindex()
}

// highlightDecls are the inline declarations a selection affordance leaves
// behind when markup is captured mid-hover. They are only removed from
// elements still marked with HoverAttr; the same declarations written by an
// author are content.
var highlightDecls = map[string]string{
	"outline": "2px solid #3b82f6",
	"cursor":  "crosshair",
}

// stripHighlight removes highlight declarations from the inline style of a
// hovered element, and user-select: none from a selecting body. The style is
// returned unchanged unless something was removed.
func stripHighlight(style string, hovered, selectingBody bool) (string, bool) {
	text := strings.TrimSpace(style)
	if !strings.HasSuffix(text, ";") {
		// the final declaration only gets a value once it is terminated
		text += ";"
	}
	decls, err := parser.ParseDeclarations(text)
	if err != nil {
		return style, false
	}

	var kept []*css.Declaration
	changed := false
	for _, decl := range decls {
		prop := strings.ToLower(strings.TrimSpace(decl.Property))
		val := normalizeValue(decl.Value)
		if want, ok := highlightDecls[prop]; hovered && ok && val == want {
			changed = true
			continue
		}
		if selectingBody && prop == "user-select" && val == "none" {
			changed = true
			continue
		}
		kept = append(kept, decl)
	}
	if !changed {
		return style, false
	}

	parts := make([]string, 0, len(kept))
	for _, decl := range kept {
		s := strings.TrimSpace(decl.Property) + ": " + strings.TrimSpace(decl.Value)
		if decl.Important {
			s += " !important"
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "", true
	}
	return strings.Join(parts, "; ") + ";", true
}

func normalizeValue(v string) string {
	return strings.ToLower(strings.Join(strings.Fields(v), " "))
}

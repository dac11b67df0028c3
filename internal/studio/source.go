package studio

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
)

var sourceView = goldmark.New(
	goldmark.WithExtensions(
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
)

// highlightSource renders markup as a syntax-highlighted HTML block.
func highlightSource(markup string) (string, error) {
	fence := "```"
	for strings.Contains(markup, fence) {
		fence += "`"
	}
	src := fence + "html\n" + markup + "\n" + fence + "\n"

	var buf bytes.Buffer
	if err := sourceView.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("highlighting source: %w", err)
	}
	return buf.String(), nil
}

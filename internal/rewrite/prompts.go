package rewrite

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert web developer and UI designer.
Your task is to modify the provided HTML code based on the user's request.

Rules:
1. Return ONLY the full, valid, updated HTML code.
2. Do not include markdown backticks (e.g. ` + "```html" + `).
3. Do not add explanations or conversational text.
4. Maintain the existing style structure (inline styles or classes) unless asked to change them.
5. Keep every existing data-edit-id attribute on the elements that carry it.
6. If the user provided a specific selected element context, focus changes there but return the full document.`

func buildPrompt(current, instruction, elementContext string) string {
	var sb strings.Builder
	sb.WriteString("Here is the current HTML:\n")
	sb.WriteString(current)
	sb.WriteString("\n\nUser Request: ")
	sb.WriteString(instruction)
	if elementContext != "" {
		sb.WriteString("\n\nContext: The user specifically selected this element to modify: ")
		sb.WriteString(elementContext)
	}
	return sb.String()
}

// ElementHint describes a selected element to the model.
func ElementHint(id, tagName, text string) string {
	return fmt.Sprintf("The user has specifically selected the HTML element with ID %q, which is a <%s> containing the text: %q. Focus your changes on or relative to this element if relevant.",
		id, tagName, text)
}

// stripFences removes a markdown code fence the model wrapped its answer in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

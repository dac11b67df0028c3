package markup

import "strings"

// ExportExtension is appended to every exported file name.
const ExportExtension = ".html"

// ExportFilename derives a download name from a theme title: lower-cased,
// with every whitespace run replaced by a hyphen.
func ExportFilename(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "theme"
	}
	return strings.ToLower(strings.Join(strings.Fields(title), "-")) + ExportExtension
}

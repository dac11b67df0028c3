package editor

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Speaker identifies who wrote a transcript entry.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Assistant messages.
const (
	msgGreeting   = "Hello! I am your AI web designer. Any changes you make here will be saved to your personal library."
	msgUpdated    = "I have updated the design and saved it to your themes."
	msgAIFailed   = "Error connecting to AI. Please try again."
	msgSaveFailed = "Could not save your changes: %s"
	msgManualEdit = "Updated the selected <%s> text."
)

// Entry is one line of the chat transcript. HTML is the text rendered from
// markdown and sanitized for display.
type Entry struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	HTML    string  `json:"html"`
	Failed  bool    `json:"failed,omitempty"` // reports an AI or save failure
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))
	ugc      = bluemonday.UGCPolicy()
)

func newEntry(speaker Speaker, text string) Entry {
	return Entry{Speaker: speaker, Text: text, HTML: renderText(text)}
}

func failureEntry(text string) Entry {
	e := newEntry(SpeakerAssistant, text)
	e.Failed = true
	return e
}

// renderText converts markdown to sanitized HTML. Angle brackets are escaped
// first so that tag names quoted in messages are shown, not dropped as raw HTML.
func renderText(text string) string {
	var buf bytes.Buffer
	src := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(text)
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		log.Printf("editor: rendering transcript entry: %v", err)
		return ugc.Sanitize(text)
	}
	return ugc.Sanitize(buf.String())
}

func saveFailedMessage(err error) string {
	return fmt.Sprintf(msgSaveFailed, err)
}

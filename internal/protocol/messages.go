// Package protocol defines the messages exchanged between the editor host and
// the sandboxed document, their JSON wire format and the transports that carry
// them.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Wire type names. Both ends are upgraded together so there is no version.
const (
	TypeSetSelectionMode = "TOGGLE_SELECTION_MODE"
	TypeScrollToElement  = "SCROLL_INTO_VIEW"
	TypeElementPicked    = "ELEMENT_SELECTED"
)

// Limits applied to inbound frames.
const (
	MaxFrameSize = 256 << 10
	MaxTextRunes = 4096
)

var (
	// ErrUnrecognized is returned for frames whose type is unknown or not
	// accepted in the decoding direction.
	ErrUnrecognized = errors.New("protocol: unrecognized message")
	// ErrMalformed is returned for frames that are not valid messages.
	ErrMalformed = errors.New("protocol: malformed message")
)

var (
	idPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)
	tagPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,63}$`)
	strict     = bluemonday.StrictPolicy()
)

// Message is implemented by every protocol message.
type Message interface {
	Type() string
}

// SetSelectionMode turns element selection on or off inside the sandbox.
type SetSelectionMode struct {
	Active bool
}

// ScrollToElement asks the sandbox to scroll an element smoothly into the
// centre of the viewport.
type ScrollToElement struct {
	ElementID string
}

// ElementPicked reports the element the user clicked while selection was
// active.
type ElementPicked struct {
	ElementID   string
	VisibleText string
	TagName     string
}

func (SetSelectionMode) Type() string { return TypeSetSelectionMode }
func (ScrollToElement) Type() string  { return TypeScrollToElement }
func (ElementPicked) Type() string    { return TypeElementPicked }

type envelope struct {
	Type    string          `json:"type"`
	Active  *bool           `json:"active,omitempty"`
	ID      *string         `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type pickedPayload struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	TagName string `json:"tagName"`
}

// Encode serializes a message to its wire form.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case SetSelectionMode:
		return json.Marshal(envelope{Type: TypeSetSelectionMode, Active: &msg.Active})
	case ScrollToElement:
		return json.Marshal(envelope{Type: TypeScrollToElement, ID: &msg.ElementID})
	case ElementPicked:
		payload, err := json.Marshal(pickedPayload{ID: msg.ElementID, Text: msg.VisibleText, TagName: msg.TagName})
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		return json.Marshal(envelope{Type: TypeElementPicked, Payload: payload})
	default:
		return nil, fmt.Errorf("encoding %T: %w", m, ErrUnrecognized)
	}
}

// DecodeFromSandbox decodes a frame received by the host. Only ElementPicked
// is accepted; the payload is validated and its text stripped of markup.
func DecodeFromSandbox(frame []byte) (ElementPicked, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return ElementPicked{}, err
	}
	if env.Type != TypeElementPicked {
		return ElementPicked{}, fmt.Errorf("%q from sandbox: %w", env.Type, ErrUnrecognized)
	}
	if len(env.Payload) == 0 {
		return ElementPicked{}, fmt.Errorf("missing payload: %w", ErrMalformed)
	}
	var p pickedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return ElementPicked{}, fmt.Errorf("payload: %w", ErrMalformed)
	}
	if !idPattern.MatchString(p.ID) {
		return ElementPicked{}, fmt.Errorf("element id %.32q: %w", p.ID, ErrMalformed)
	}
	if !tagPattern.MatchString(p.TagName) {
		return ElementPicked{}, fmt.Errorf("tag name %.32q: %w", p.TagName, ErrMalformed)
	}
	return ElementPicked{
		ElementID:   p.ID,
		VisibleText: CleanText(p.Text),
		TagName:     strings.ToLower(p.TagName),
	}, nil
}

// DecodeFromHost decodes a frame received by the sandbox. It returns either
// a SetSelectionMode or a ScrollToElement.
func DecodeFromHost(frame []byte) (Message, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case TypeSetSelectionMode:
		if env.Active == nil {
			return nil, fmt.Errorf("missing active flag: %w", ErrMalformed)
		}
		return SetSelectionMode{Active: *env.Active}, nil
	case TypeScrollToElement:
		if env.ID == nil || !idPattern.MatchString(*env.ID) {
			return nil, fmt.Errorf("scroll target: %w", ErrMalformed)
		}
		return ScrollToElement{ElementID: *env.ID}, nil
	default:
		return nil, fmt.Errorf("%q from host: %w", env.Type, ErrUnrecognized)
	}
}

func decodeEnvelope(frame []byte) (envelope, error) {
	var env envelope
	if len(frame) > MaxFrameSize {
		return env, fmt.Errorf("frame of %d bytes: %w", len(frame), ErrMalformed)
	}
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 || frame[0] != '{' {
		return env, fmt.Errorf("not an object: %w", ErrMalformed)
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	if env.Type == "" {
		return env, fmt.Errorf("missing type: %w", ErrMalformed)
	}
	return env, nil
}

// CleanText strips markup from untrusted text, collapses whitespace and caps
// the result at MaxTextRunes.
func CleanText(s string) string {
	s = html.UnescapeString(strict.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxTextRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxTextRunes])
}

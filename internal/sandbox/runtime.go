// Package sandbox is a headless rendition of the in-document editor runtime.
// It owns its own copy of the document and talks to the host only through a
// protocol.Conn, which makes it usable from agents and tests where no
// browser is available.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ziadkadry99/themestudio/internal/markup"
	"github.com/ziadkadry99/themestudio/internal/protocol"
)

// ErrUnknownElement is returned when a pointer action targets an identifier
// that is not in the sandbox document.
var ErrUnknownElement = errors.New("sandbox: unknown element")

// Cursor values reported for elements.
const (
	CursorDefault   = "auto"
	CursorCrosshair = "crosshair"
)

// ClickResult describes what the runtime did with a click.
type ClickResult struct {
	// Picked is set when the click selected an element and a pick was sent.
	Picked bool
	// DefaultPrevented is set when the page's own handling of the click
	// (following links, submitting forms) was suppressed.
	DefaultPrevented bool
}

// Runtime is one sandboxed document. Selection state is scoped to the
// runtime and reset whenever Run starts or returns.
type Runtime struct {
	conn protocol.Conn
	doc  *markup.Document

	mu         sync.Mutex
	active     bool
	hovered    *markup.Node
	scrollTo   string
	modeChange chan struct{}
}

// New loads markup into a fresh runtime connected to the host through conn.
func New(raw string, conn protocol.Conn) *Runtime {
	return &Runtime{
		conn:       conn,
		doc:        markup.Parse(raw),
		modeChange: make(chan struct{}),
	}
}

// Load replaces the sandbox document, as a reload of the frame would.
// Selection state is cleared.
func (r *Runtime) Load(raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = markup.Parse(raw)
	r.resetLocked()
}

// Run processes host messages until ctx is done or the connection closes.
// Unrecognized and malformed messages are dropped.
func (r *Runtime) Run(ctx context.Context) error {
	r.reset()
	defer r.reset()

	for {
		frame, err := r.conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving from host: %w", err)
		}
		msg, err := protocol.DecodeFromHost(frame)
		if err != nil {
			log.Printf("sandbox: dropping frame: %v", err)
			continue
		}
		switch m := msg.(type) {
		case protocol.SetSelectionMode:
			r.setActive(m.Active)
		case protocol.ScrollToElement:
			r.scroll(m.ElementID)
		}
	}
}

func (r *Runtime) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Runtime) resetLocked() {
	r.clearHoverLocked()
	r.scrollTo = ""
	r.setActiveLocked(false)
}

func (r *Runtime) setActive(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setActiveLocked(on)
}

func (r *Runtime) setActiveLocked(on bool) {
	if body := r.doc.Body(); body != nil {
		if on {
			body.SetAttr(markup.SelectingAttr, "")
		} else {
			body.RemoveAttr(markup.SelectingAttr)
		}
	}
	if !on {
		r.clearHoverLocked()
	}
	if r.active != on {
		r.active = on
		close(r.modeChange)
		r.modeChange = make(chan struct{})
	}
}

func (r *Runtime) scroll(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doc.Lookup(id); ok {
		r.scrollTo = id
	}
}

// WaitSelectionMode blocks until selection mode equals want.
func (r *Runtime) WaitSelectionMode(ctx context.Context, want bool) error {
	for {
		r.mu.Lock()
		active, changed := r.active, r.modeChange
		r.mu.Unlock()
		if active == want {
			return nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SelectionActive reports whether selection mode is on.
func (r *Runtime) SelectionActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Hover moves the pointer over the element. While selection is active the
// element is marked with the hover affordance.
func (r *Runtime) Hover(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.doc.Lookup(id)
	if !ok {
		return fmt.Errorf("hover %q: %w", id, ErrUnknownElement)
	}
	if !r.active || n == r.hovered {
		return nil
	}
	r.clearHoverLocked()
	n.SetAttr(markup.HoverAttr, "")
	r.hovered = n
	return nil
}

// Leave moves the pointer off the hovered element.
func (r *Runtime) Leave() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearHoverLocked()
}

func (r *Runtime) clearHoverLocked() {
	if r.hovered != nil {
		r.hovered.RemoveAttr(markup.HoverAttr)
		r.hovered = nil
	}
}

// Click clicks the element. With selection inactive the click is left to
// the page. Otherwise the hover mark is cleared, an ElementPicked is sent to
// the host and the default action is suppressed.
func (r *Runtime) Click(ctx context.Context, id string) (ClickResult, error) {
	r.mu.Lock()
	n, ok := r.doc.Lookup(id)
	if !ok {
		r.mu.Unlock()
		return ClickResult{}, fmt.Errorf("click %q: %w", id, ErrUnknownElement)
	}
	if !r.active {
		r.mu.Unlock()
		return ClickResult{}, nil
	}
	r.clearHoverLocked()
	pick := protocol.ElementPicked{
		ElementID:   id,
		VisibleText: protocol.CleanText(n.VisibleText()),
		TagName:     n.Tag,
	}
	r.mu.Unlock()

	if err := protocol.SendMessage(ctx, r.conn, pick); err != nil {
		return ClickResult{DefaultPrevented: true}, fmt.Errorf("sending pick: %w", err)
	}
	return ClickResult{Picked: true, DefaultPrevented: true}, nil
}

// ScrollTarget returns the identifier most recently scrolled into view.
func (r *Runtime) ScrollTarget() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scrollTo
}

// TextSelectable reports whether the reader can select text, which the
// runtime suppresses while selection mode is on.
func (r *Runtime) TextSelectable() bool {
	return !r.SelectionActive()
}

// Cursor returns the pointer cursor shown over the element.
func (r *Runtime) Cursor(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.doc.Lookup(id); ok && n == r.hovered {
		return CursorCrosshair
	}
	return CursorDefault
}

// Hovered returns the identifier carrying the hover affordance, if any.
func (r *Runtime) Hovered() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hovered == nil {
		return ""
	}
	id, _ := r.hovered.Attr(markup.IDAttr)
	return id
}

// Markup renders the sandbox document as it currently stands, transient
// attributes included.
func (r *Runtime) Markup() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Render()
}

// Package selection implements the host side of element selection: a small
// state machine that tracks whether the user is picking an element and which
// element was picked, and the commands it sends to the sandbox.
package selection

import (
	"github.com/ziadkadry99/themestudio/internal/protocol"
)

// State is the host selection state.
type State int

const (
	Idle State = iota
	Armed
	Selected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Selected:
		return "selected"
	default:
		return "unknown"
	}
}

// Context describes the picked element.
type Context struct {
	ElementID   string `json:"elementId"`
	VisibleText string `json:"visibleText"`
	TagName     string `json:"tagName"`
}

// Controller is the selection state machine. It is not safe for concurrent
// use; the owning session drives it from a single goroutine.
type Controller struct {
	state State
	ctx   *Context
	send  func(protocol.Message)
}

// NewController returns an idle controller that hands outbound sandbox
// commands to send.
func NewController(send func(protocol.Message)) *Controller {
	if send == nil {
		send = func(protocol.Message) {}
	}
	return &Controller{send: send}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Context returns the picked element, or nil when nothing is selected.
func (c *Controller) Context() *Context {
	if c.ctx == nil {
		return nil
	}
	cp := *c.ctx
	return &cp
}

// Enable arms selection. A previous pick stays in place until a new one
// arrives. It reports false when selection was already armed.
func (c *Controller) Enable() bool {
	if c.state == Armed {
		return false
	}
	c.state = Armed
	c.send(protocol.SetSelectionMode{Active: true})
	return true
}

// Cancel disarms selection without picking. The previous pick, if any,
// remains selected.
func (c *Controller) Cancel() bool {
	if c.state != Armed {
		return false
	}
	c.send(protocol.SetSelectionMode{Active: false})
	if c.ctx != nil {
		c.state = Selected
	} else {
		c.state = Idle
	}
	return true
}

// Pick records a pick from the sandbox, replacing any earlier one. Picks are
// accepted in every state so only the latest element is ever selected.
func (c *Controller) Pick(p protocol.ElementPicked) {
	if c.state == Armed {
		c.send(protocol.SetSelectionMode{Active: false})
	}
	c.state = Selected
	c.ctx = &Context{ElementID: p.ElementID, VisibleText: p.VisibleText, TagName: p.TagName}
}

// Clear drops the selection. It is used for dismissal, after an edit is
// applied and when the document is reloaded. It reports whether anything
// changed.
func (c *Controller) Clear() bool {
	if c.state == Idle && c.ctx == nil {
		return false
	}
	if c.state == Armed {
		c.send(protocol.SetSelectionMode{Active: false})
	}
	c.state = Idle
	c.ctx = nil
	return true
}

// ScrollTo asks the sandbox to bring an element into view.
func (c *Controller) ScrollTo(id string) {
	c.send(protocol.ScrollToElement{ElementID: id})
}

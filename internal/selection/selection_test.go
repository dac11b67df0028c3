package selection

import (
	"reflect"
	"testing"

	"github.com/ziadkadry99/themestudio/internal/protocol"
)

type recorder struct {
	sent []protocol.Message
}

func (r *recorder) send(m protocol.Message) { r.sent = append(r.sent, m) }

func newController() (*Controller, *recorder) {
	rec := &recorder{}
	return NewController(rec.send), rec
}

func pick(id string) protocol.ElementPicked {
	return protocol.ElementPicked{ElementID: id, VisibleText: "text " + id, TagName: "p"}
}

func TestEnablePickDismiss(t *testing.T) {
	c, rec := newController()

	if !c.Enable() {
		t.Fatal("Enable from idle should succeed")
	}
	if c.State() != Armed {
		t.Fatalf("state = %v, want armed", c.State())
	}
	c.Pick(pick("a"))
	if c.State() != Selected {
		t.Fatalf("state = %v, want selected", c.State())
	}
	if got := c.Context(); got == nil || got.ElementID != "a" {
		t.Fatalf("context = %+v", got)
	}
	c.Clear()
	if c.State() != Idle || c.Context() != nil {
		t.Fatalf("after clear: state %v, context %+v", c.State(), c.Context())
	}

	want := []protocol.Message{
		protocol.SetSelectionMode{Active: true},
		protocol.SetSelectionMode{Active: false},
	}
	if !reflect.DeepEqual(rec.sent, want) {
		t.Errorf("sent = %#v, want %#v", rec.sent, want)
	}
}

func TestCancel(t *testing.T) {
	c, rec := newController()
	if c.Cancel() {
		t.Error("Cancel from idle should report false")
	}
	c.Enable()
	if !c.Cancel() || c.State() != Idle {
		t.Errorf("cancel from armed: state = %v", c.State())
	}

	c.Enable()
	c.Pick(pick("a"))
	c.Enable()
	c.Cancel()
	if c.State() != Selected || c.Context().ElementID != "a" {
		t.Errorf("cancel should return to the previous pick, state = %v", c.State())
	}
	if len(rec.sent) != 6 {
		t.Errorf("sent %d commands, want 6", len(rec.sent))
	}
}

func TestEnableTwice(t *testing.T) {
	c, rec := newController()
	c.Enable()
	if c.Enable() {
		t.Error("second Enable should report false")
	}
	if len(rec.sent) != 1 {
		t.Errorf("sent %d commands, want 1", len(rec.sent))
	}
}

func TestLatestPickWins(t *testing.T) {
	c, rec := newController()
	c.Enable()
	for _, id := range []string{"a", "b", "c"} {
		c.Pick(pick(id))
	}
	if c.Context().ElementID != "c" {
		t.Errorf("selected %q, want c", c.Context().ElementID)
	}
	if len(rec.sent) != 2 {
		t.Errorf("only the first pick should disarm, sent %d", len(rec.sent))
	}
}

func TestContextIsACopy(t *testing.T) {
	c, _ := newController()
	c.Pick(pick("a"))
	c.Context().ElementID = "mutated"
	if c.Context().ElementID != "a" {
		t.Error("Context exposed internal state")
	}
}

func TestClearWhenIdle(t *testing.T) {
	c, rec := newController()
	if c.Clear() {
		t.Error("Clear from idle should report false")
	}
	if len(rec.sent) != 0 {
		t.Errorf("sent %d commands, want 0", len(rec.sent))
	}
}

func TestScrollTo(t *testing.T) {
	c, rec := newController()
	c.ScrollTo("x")
	if !reflect.DeepEqual(rec.sent, []protocol.Message{protocol.ScrollToElement{ElementID: "x"}}) {
		t.Errorf("sent = %#v", rec.sent)
	}
}

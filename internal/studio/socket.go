package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/themestudio/internal/editor"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/protocol"
)

// clientMessage is the incoming editor socket message format.
type clientMessage struct {
	Type        string `json:"type"`
	Instruction string `json:"instruction,omitempty"` // submit
	ElementID   string `json:"element_id,omitempty"`  // apply_text, scroll_to
	Text        string `json:"text,omitempty"`        // apply_text
	Source      string `json:"source,omitempty"`      // set_source
}

// serverMessage is sent in reply to client messages. Session updates are
// sent as editor.Update values on the same socket.
type serverMessage struct {
	Type        string           `json:"type"` // "session", "export", "source" or "error"
	Session     *editor.Snapshot `json:"session,omitempty"`
	Filename    string           `json:"filename,omitempty"`
	Content     string           `json:"content,omitempty"`
	Highlighted string           `json:"highlighted,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// socketWriter serializes writes to a websocket.
type socketWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (sw *socketWriter) send(v any) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if err := sw.conn.WriteJSON(v); err != nil {
		log.Printf("studio: websocket write: %v", err)
	}
}

func (sw *socketWriter) sendError(msg string) {
	sw.send(serverMessage{Type: "error", Error: msg})
}

func (s *Studio) handleEditorSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := identity.FromContext(ctx)
	themeID := chi.URLParam(r, "themeID")
	if _, err := s.cfg.Resolver.Open(ctx, u, themeID); err != nil {
		writeOpenError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("studio: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()
	out := &socketWriter{conn: conn}

	sess, err := editor.Open(ctx, editor.Config{
		UserID:   u.ID,
		ThemeID:  themeID,
		Resolver: s.cfg.Resolver,
		Forks:    s.cfg.Forks,
		Rewriter: s.cfg.Rewriter,
		Metrics:  s.cfg.Metrics,
		Audit:    s.cfg.Audit,
	})
	if err != nil {
		log.Printf("studio: %v", err)
		out.sendError("could not open theme")
		return
	}
	s.add(sess)
	defer func() {
		s.remove(sess)
		sess.Close()
	}()

	updates, unsubscribe, err := sess.Subscribe(ctx)
	if err != nil {
		out.sendError(err.Error())
		return
	}
	defer unsubscribe()

	snap, err := sess.Snapshot(ctx)
	if err != nil {
		out.sendError(err.Error())
		return
	}
	out.send(serverMessage{Type: "session", Session: &snap})

	go func() {
		for upd := range updates {
			out.send(upd)
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("studio: websocket read: %v", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			out.sendError("invalid message format")
			continue
		}
		if err := s.dispatch(ctx, sess, out, msg); err != nil {
			out.sendError(describe(err))
		}
	}
}

func (s *Studio) dispatch(ctx context.Context, sess *editor.Session, out *socketWriter, msg clientMessage) error {
	switch msg.Type {
	case "submit":
		return sess.Submit(ctx, msg.Instruction)
	case "apply_text":
		return sess.ApplyText(ctx, msg.ElementID, msg.Text)
	case "enable_selection":
		return sess.EnableSelection(ctx)
	case "cancel_selection":
		return sess.CancelSelection(ctx)
	case "dismiss_selection":
		return sess.DismissSelection(ctx)
	case "scroll_to":
		return sess.ScrollTo(ctx, msg.ElementID)
	case "reset":
		return sess.Reset(ctx)
	case "set_source":
		return sess.SetSource(ctx, msg.Source)
	case "save_source":
		return sess.SaveSource(ctx)
	case "export":
		name, content, err := sess.Export(ctx)
		if err != nil {
			return err
		}
		out.send(serverMessage{Type: "export", Filename: name, Content: content})
		return nil
	case "source":
		snap, err := sess.Snapshot(ctx)
		if err != nil {
			return err
		}
		hl, err := highlightSource(snap.Markup)
		if err != nil {
			return err
		}
		out.send(serverMessage{Type: "source", Content: snap.Markup, Highlighted: hl})
		return nil
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, editor.ErrBusy):
		return "an edit is already in progress"
	case errors.Is(err, editor.ErrEmptyInstruction):
		return "instruction is required"
	default:
		return err.Error()
	}
}

func (s *Studio) handleSandboxSocket(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.FromContext(r.Context())
	sess, ok := s.lookup(chi.URLParam(r, "sessionID"))
	if !ok || sess.UserID() != u.ID {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("studio: websocket upgrade: %v", err)
		return
	}
	conn := protocol.NewWebSocketConn(ws)
	defer conn.Close()

	if err := sess.AttachSandbox(r.Context(), conn); err != nil && !errors.Is(err, editor.ErrClosed) {
		log.Printf("studio: sandbox for session %s: %v", sess.ID(), err)
	}
}

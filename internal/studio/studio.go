// Package studio serves the browser editor: the host page, the editor
// websocket that drives an editing session, and the sandbox websocket the
// page relays its preview frame through.
package studio

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/editor"
	"github.com/ziadkadry99/themestudio/internal/forks"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/metrics"
	"github.com/ziadkadry99/themestudio/internal/rewrite"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Config holds the collaborators editing sessions are built from.
type Config struct {
	Resolver *forks.Resolver
	Forks    editor.ForkWriter
	Rewriter rewrite.Rewriter
	Metrics  metrics.Recorder
	Audit    *audit.Store
}

// Studio tracks the open editing sessions.
type Studio struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*editor.Session
}

// New creates a Studio. A nil Rewriter makes every AI edit fail.
func New(cfg Config) *Studio {
	if cfg.Rewriter == nil {
		cfg.Rewriter = rewrite.Unconfigured{}
	}
	return &Studio{cfg: cfg, sessions: make(map[string]*editor.Session)}
}

// RegisterRoutes mounts the studio routes. The identity middleware must
// already be installed on r.
func (s *Studio) RegisterRoutes(r chi.Router) {
	r.Get("/studio/{themeID}", s.ServeIndex)
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireUser)
		r.Get("/api/editor/{themeID}", s.handleInfo)
		r.Get("/ws/editor/{themeID}", s.handleEditorSocket)
		r.Get("/ws/sandbox/{sessionID}", s.handleSandboxSocket)
	})
}

// Sessions returns the number of open sessions.
func (s *Studio) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close closes every open session.
func (s *Studio) Close() {
	s.mu.Lock()
	open := make([]*editor.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		open = append(open, sess)
	}
	s.sessions = make(map[string]*editor.Session)
	s.mu.Unlock()

	for _, sess := range open {
		sess.Close()
	}
}

func (s *Studio) add(sess *editor.Session) {
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
}

func (s *Studio) remove(sess *editor.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
}

func (s *Studio) lookup(id string) (*editor.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// handleInfo reports what the editor would open, applying the same access
// check as the editor socket.
func (s *Studio) handleInfo(w http.ResponseWriter, r *http.Request) {
	u, _ := identity.FromContext(r.Context())
	res, err := s.cfg.Resolver.Open(r.Context(), u, chi.URLParam(r, "themeID"))
	if err != nil {
		writeOpenError(w, err)
		return
	}
	res.Markup = ""
	writeJSON(w, http.StatusOK, res)
}

func writeOpenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, forks.ErrNotFound):
		writeError(w, http.StatusNotFound, "theme not found")
	case errors.Is(err, forks.ErrForbidden):
		writeError(w, http.StatusForbidden, "theme is locked")
	default:
		log.Printf("studio: opening theme: %v", err)
		writeError(w, http.StatusInternalServerError, "could not open theme")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

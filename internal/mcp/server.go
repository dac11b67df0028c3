package mcp

import (
	"context"
	"errors"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/editor"
	"github.com/ziadkadry99/themestudio/internal/forks"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/rewrite"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Deps are the stores and services the tools work with.
type Deps struct {
	Themes   *themes.Store
	Users    *identity.Store
	Audit    *audit.Store
	Rewriter rewrite.Rewriter
}

// Server wraps an MCP server that exposes the theme editor to agents. All
// tools act on behalf of one user.
type Server struct {
	deps     Deps
	user     *identity.User
	resolver *forks.Resolver
	mcp      *server.MCPServer

	mu       sync.Mutex
	sessions map[string]*editor.Session // by theme id
}

// NewServer creates a new MCP server acting as user.
func NewServer(deps Deps, user *identity.User) *Server {
	if deps.Rewriter == nil {
		deps.Rewriter = rewrite.Unconfigured{}
	}
	s := &Server{
		deps:     deps,
		user:     user,
		resolver: forks.NewResolver(deps.Themes, deps.Users),
		sessions: make(map[string]*editor.Session),
	}

	s.mcp = server.NewMCPServer(
		"themestudio",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listThemesTool, s.handleListThemes)
	s.mcp.AddTool(openThemeTool, s.handleOpenTheme)
	s.mcp.AddTool(editThemeTool, s.handleEditTheme)
	s.mcp.AddTool(setElementTextTool, s.handleSetElementText)
	s.mcp.AddTool(exportThemeTool, s.handleExportTheme)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	defer s.Close()
	return server.ServeStdio(s.mcp)
}

// Close closes the editing sessions the tools opened.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, id)
	}
}

// session returns the open session for a theme, opening one when needed.
func (s *Server) session(ctx context.Context, themeID string) (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[themeID]; ok {
		return sess, nil
	}
	if _, err := s.resolver.Open(ctx, s.user, themeID); err != nil {
		return nil, err
	}
	sess, err := editor.Open(ctx, editor.Config{
		UserID:   s.user.ID,
		ThemeID:  themeID,
		Resolver: s.resolver,
		Forks:    s.deps.Themes,
		Rewriter: s.deps.Rewriter,
		Audit:    s.deps.Audit,
	})
	if err != nil {
		return nil, err
	}
	s.sessions[themeID] = sess
	return sess, nil
}

func describeOpenError(themeID string, err error) string {
	switch {
	case errors.Is(err, forks.ErrNotFound):
		return "No theme with id " + themeID + "."
	case errors.Is(err, forks.ErrForbidden):
		return "Theme " + themeID + " is locked for this user."
	default:
		return "failed to open theme: " + err.Error()
	}
}

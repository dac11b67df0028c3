package mcp

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/themestudio/internal/audit"
	"github.com/ziadkadry99/themestudio/internal/db"
	"github.com/ziadkadry99/themestudio/internal/identity"
	"github.com/ziadkadry99/themestudio/internal/markup"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

// recordingRewriter echoes the page and remembers the element hints it got.
type recordingRewriter struct {
	mu    sync.Mutex
	hints []string
}

func (r *recordingRewriter) Rewrite(_ context.Context, current, _, hint string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hints = append(r.hints, hint)
	return current, nil
}

type fixture struct {
	srv      *Server
	store    *themes.Store
	user     *identity.User
	theme    *themes.Theme
	locked   *themes.Theme
	rewriter *recordingRewriter
}

func setup(t *testing.T) *fixture {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	ctx := context.Background()

	f := &fixture{store: themes.NewStore(database), rewriter: &recordingRewriter{}}
	users := identity.NewStore(database)
	f.user, _, err = users.CreateUser(ctx, "Agent", "agent@example.com", false)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	f.theme, err = f.store.Create(ctx, themes.Theme{
		Title:       "Bakery",
		Description: "Warm and simple",
		Author:      "Jo",
		Markup:      "<header><h1>Daily Bread</h1></header><p>Baked at dawn</p>",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.locked, err = f.store.Create(ctx, themes.Theme{Title: "Locked", Markup: "<p>no</p>"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := users.Unlock(ctx, f.user.ID, f.theme.ID); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	f.srv = NewServer(Deps{
		Themes:   f.store,
		Users:    users,
		Audit:    audit.NewStore(database),
		Rewriter: f.rewriter,
	}, f.user)
	t.Cleanup(f.srv.Close)
	return f
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("empty result")
	}
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text, result.IsError
	case *mcp.TextContent:
		return c.Text, result.IsError
	default:
		t.Fatalf("unexpected content %T", c)
		return "", false
	}
}

// elementID returns the id open_theme lists for the element with the given tag.
func elementID(t *testing.T, listing, tag string) string {
	t.Helper()
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "<"+tag+">" {
			return fields[0]
		}
	}
	t.Fatalf("no <%s> in listing:\n%s", tag, listing)
	return ""
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{listThemesTool, "list_themes"},
		{openThemeTool, "open_theme"},
		{editThemeTool, "edit_theme"},
		{setElementTextTool, "set_element_text"},
		{exportThemeTool, "export_theme"},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestListThemes(t *testing.T) {
	f := setup(t)
	text, isErr := call(t, f.srv.handleListThemes, nil)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if !strings.Contains(text, "Found 2 theme(s)") || !strings.Contains(text, f.theme.ID+": Bakery by Jo") {
		t.Errorf("listing:\n%s", text)
	}
	if strings.Contains(text, "[edited]") {
		t.Error("nothing edited yet")
	}
}

func TestOpenTheme(t *testing.T) {
	f := setup(t)

	t.Run("lists elements", func(t *testing.T) {
		text, isErr := call(t, f.srv.handleOpenTheme, map[string]any{"theme_id": f.theme.ID})
		if isErr {
			t.Fatalf("tool error: %s", text)
		}
		if !strings.Contains(text, "Theme: Bakery (original)") || !strings.Contains(text, "Elements (3)") {
			t.Errorf("open_theme:\n%s", text)
		}
		if !strings.Contains(text, `<h1> "Daily Bread"`) {
			t.Errorf("heading missing:\n%s", text)
		}
	})

	t.Run("missing", func(t *testing.T) {
		text, isErr := call(t, f.srv.handleOpenTheme, map[string]any{"theme_id": "nope"})
		if !isErr || !strings.Contains(text, "No theme") {
			t.Errorf("got %q (error %t)", text, isErr)
		}
	})

	t.Run("locked", func(t *testing.T) {
		text, isErr := call(t, f.srv.handleOpenTheme, map[string]any{"theme_id": f.locked.ID})
		if !isErr || !strings.Contains(text, "locked") {
			t.Errorf("got %q (error %t)", text, isErr)
		}
	})

	t.Run("missing parameter", func(t *testing.T) {
		if _, isErr := call(t, f.srv.handleOpenTheme, map[string]any{}); !isErr {
			t.Error("expected error")
		}
	})
}

func TestSetElementText(t *testing.T) {
	f := setup(t)
	listing, _ := call(t, f.srv.handleOpenTheme, map[string]any{"theme_id": f.theme.ID})
	id := elementID(t, listing, "p")

	text, isErr := call(t, f.srv.handleSetElementText, map[string]any{
		"theme_id": f.theme.ID, "element_id": id, "text": "Baked at noon",
	})
	if isErr || text != "Updated the selected <p> text." {
		t.Fatalf("got %q (error %t)", text, isErr)
	}

	fork, err := f.store.GetFork(context.Background(), f.user.ID, f.theme.ID)
	if err != nil {
		t.Fatalf("GetFork: %v", err)
	}
	if n, ok := markup.Parse(fork.Markup).Lookup(id); !ok || n.TextContent() != "Baked at noon" {
		t.Errorf("fork markup = %s", fork.Markup)
	}
	if listing, _ := call(t, f.srv.handleListThemes, nil); !strings.Contains(listing, "[edited]") {
		t.Errorf("listing should mark the edited theme:\n%s", listing)
	}

	text, isErr = call(t, f.srv.handleSetElementText, map[string]any{
		"theme_id": f.theme.ID, "element_id": "gone", "text": "x",
	})
	if !isErr || !strings.Contains(text, "No text element") {
		t.Errorf("got %q (error %t)", text, isErr)
	}
}

func TestEditThemeWithElement(t *testing.T) {
	f := setup(t)
	listing, _ := call(t, f.srv.handleOpenTheme, map[string]any{"theme_id": f.theme.ID})
	id := elementID(t, listing, "h1")

	text, isErr := call(t, f.srv.handleEditTheme, map[string]any{
		"theme_id": f.theme.ID, "instruction": "make the title larger", "element_id": id,
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if !strings.HasPrefix(text, "I have updated the design") {
		t.Errorf("reply:\n%s", text)
	}

	f.rewriter.mu.Lock()
	defer f.rewriter.mu.Unlock()
	if len(f.rewriter.hints) != 1 {
		t.Fatalf("hints = %v", f.rewriter.hints)
	}
	if hint := f.rewriter.hints[0]; !strings.Contains(hint, `"`+id+`"`) || !strings.Contains(hint, "<h1>") || !strings.Contains(hint, "Daily Bread") {
		t.Errorf("hint = %q", hint)
	}
}

func TestEditThemeUnknownElement(t *testing.T) {
	f := setup(t)
	text, isErr := call(t, f.srv.handleEditTheme, map[string]any{
		"theme_id": f.theme.ID, "instruction": "x", "element_id": "e-missing",
	})
	if !isErr || !strings.Contains(text, "could not select") {
		t.Errorf("got %q (error %t)", text, isErr)
	}
}

func TestExportTheme(t *testing.T) {
	f := setup(t)
	text, isErr := call(t, f.srv.handleExportTheme, map[string]any{"theme_id": f.theme.ID})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	if !strings.HasPrefix(text, "File: bakery.html\n") {
		t.Errorf("export:\n%s", text)
	}
	if strings.Contains(text, markup.IDAttr) || !strings.Contains(text, "Daily Bread") {
		t.Errorf("export content:\n%s", text)
	}
}

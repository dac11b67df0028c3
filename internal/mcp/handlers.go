package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/themestudio/internal/editor"
	"github.com/ziadkadry99/themestudio/internal/markup"
	"github.com/ziadkadry99/themestudio/internal/themes"
)

// handleListThemes lists the catalog, marking themes the user has edited.
func (s *Server) handleListThemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	catalog, err := s.deps.Themes.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list themes: %v", err)), nil
	}
	if len(catalog) == 0 {
		return mcp.NewToolResultText("The catalog is empty. Run `themestudio import` to add themes."), nil
	}
	forked, err := s.deps.Themes.ListForks(ctx, s.user.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list edited themes: %v", err)), nil
	}
	return mcp.NewToolResultText(formatThemes(catalog, forked)), nil
}

// handleOpenTheme opens a theme and lists its elements.
func (s *Server) handleOpenTheme(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	themeID, err := request.RequireString("theme_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: theme_id"), nil
	}
	sess, err := s.session(ctx, themeID)
	if err != nil {
		return mcp.NewToolResultError(describeOpenError(themeID, err)), nil
	}
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read theme: %v", err)), nil
	}

	var sb strings.Builder
	version := "original"
	if snap.IsFork {
		version = "your edited copy"
	}
	fmt.Fprintf(&sb, "Theme: %s (%s)\n", snap.Title, version)
	if snap.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", snap.Description)
	}
	sb.WriteString("\n")
	sb.WriteString(formatElements(snap.Markup))
	return mcp.NewToolResultText(sb.String()), nil
}

// handleEditTheme runs an AI edit, optionally focused on one element.
func (s *Server) handleEditTheme(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	themeID, err := request.RequireString("theme_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: theme_id"), nil
	}
	instruction, err := request.RequireString("instruction")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: instruction"), nil
	}
	elementID := request.GetString("element_id", "")

	sess, err := s.session(ctx, themeID)
	if err != nil {
		return mcp.NewToolResultError(describeOpenError(themeID, err)), nil
	}
	if elementID != "" {
		if err := selectElement(ctx, sess, elementID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("could not select element %s: %v", elementID, err)), nil
		}
	}
	if err := sess.Submit(ctx, instruction); err != nil {
		if errors.Is(err, editor.ErrBusy) {
			return mcp.NewToolResultError("Another edit of this theme is still running."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("edit failed: %v", err)), nil
	}
	if err := sess.Flush(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("edit did not finish: %v", err)), nil
	}
	return s.reply(ctx, sess, true)
}

// handleSetElementText replaces one element's text.
func (s *Server) handleSetElementText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	themeID, err := request.RequireString("theme_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: theme_id"), nil
	}
	elementID, err := request.RequireString("element_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: element_id"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	sess, err := s.session(ctx, themeID)
	if err != nil {
		return mcp.NewToolResultError(describeOpenError(themeID, err)), nil
	}
	before, err := sess.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read theme: %v", err)), nil
	}
	if err := sess.ApplyText(ctx, elementID, text); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("edit failed: %v", err)), nil
	}
	if err := sess.Flush(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("edit did not finish: %v", err)), nil
	}
	after, err := sess.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read theme: %v", err)), nil
	}
	if after.Version == before.Version {
		return mcp.NewToolResultError(fmt.Sprintf("No text element with id %s. Call open_theme to list elements.", elementID)), nil
	}
	return s.reply(ctx, sess, false)
}

// handleExportTheme returns the sanitized theme.
func (s *Server) handleExportTheme(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	themeID, err := request.RequireString("theme_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: theme_id"), nil
	}
	sess, err := s.session(ctx, themeID)
	if err != nil {
		return mcp.NewToolResultError(describeOpenError(themeID, err)), nil
	}
	name, content, err := sess.Export(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("File: %s\n\n%s", name, content)), nil
}

// reply reports the assistant's last message, marking save failures as tool
// errors.
func (s *Server) reply(ctx context.Context, sess *editor.Session, withElements bool) (*mcp.CallToolResult, error) {
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read theme: %v", err)), nil
	}
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Failed {
		return mcp.NewToolResultError(last.Text), nil
	}
	if !withElements {
		return mcp.NewToolResultText(last.Text), nil
	}
	return mcp.NewToolResultText(last.Text + "\n\n" + formatElements(snap.Markup)), nil
}

// formatThemes renders the catalog as a list.
func formatThemes(catalog []themes.Theme, forked []themes.Fork) string {
	edited := make(map[string]bool, len(forked))
	for _, f := range forked {
		edited[f.OriginalThemeID] = true
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d theme(s):\n", len(catalog))
	for _, t := range catalog {
		fmt.Fprintf(&sb, "\n- %s: %s", t.ID, t.Title)
		if t.Author != "" {
			fmt.Fprintf(&sb, " by %s", t.Author)
		}
		if edited[t.ID] {
			sb.WriteString(" [edited]")
		}
		if t.Description != "" {
			fmt.Fprintf(&sb, "\n  %s", t.Description)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

const maxPreviewRunes = 60

// formatElements lists every identified element with its tag and the start
// of its visible text.
func formatElements(raw string) string {
	doc := markup.Parse(raw)
	ids := doc.IDs()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Elements (%d):\n", len(ids))
	for _, id := range ids {
		n, _ := doc.Lookup(id)
		text := n.VisibleText()
		if utf8.RuneCountInString(text) > maxPreviewRunes {
			text = string([]rune(text)[:maxPreviewRunes]) + "…"
		}
		fmt.Fprintf(&sb, "%s <%s>", id, n.Tag)
		if text != "" {
			fmt.Fprintf(&sb, " %q", text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

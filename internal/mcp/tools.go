package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listThemesTool defines the list_themes MCP tool.
var listThemesTool = mcp.NewTool("list_themes",
	mcp.WithDescription("List catalog themes and whether the user has an edited copy of each."),
)

// openThemeTool defines the open_theme MCP tool.
var openThemeTool = mcp.NewTool("open_theme",
	mcp.WithDescription("Open a theme in the editor and list its editable elements with their ids."),
	mcp.WithString("theme_id",
		mcp.Required(),
		mcp.Description("Id of the catalog theme"),
	),
)

// editThemeTool defines the edit_theme MCP tool.
var editThemeTool = mcp.NewTool("edit_theme",
	mcp.WithDescription("Apply a natural-language design change to an open theme. The result is saved to the user's copy."),
	mcp.WithString("theme_id",
		mcp.Required(),
		mcp.Description("Id of the catalog theme"),
	),
	mcp.WithString("instruction",
		mcp.Required(),
		mcp.Description("What to change, e.g. \"make the header dark blue\""),
	),
	mcp.WithString("element_id",
		mcp.Description("Optional id of the element to focus the change on, as listed by open_theme"),
	),
)

// setElementTextTool defines the set_element_text MCP tool.
var setElementTextTool = mcp.NewTool("set_element_text",
	mcp.WithDescription("Replace the text of one element of an open theme."),
	mcp.WithString("theme_id",
		mcp.Required(),
		mcp.Description("Id of the catalog theme"),
	),
	mcp.WithString("element_id",
		mcp.Required(),
		mcp.Description("Id of the element, as listed by open_theme"),
	),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("New text content"),
	),
)

// exportThemeTool defines the export_theme MCP tool.
var exportThemeTool = mcp.NewTool("export_theme",
	mcp.WithDescription("Return the theme as a clean standalone HTML file without editor markup."),
	mcp.WithString("theme_id",
		mcp.Required(),
		mcp.Description("Id of the catalog theme"),
	),
)

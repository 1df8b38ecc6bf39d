package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerListWindowsTool(srv, svc)
	registerListTabsTool(srv, svc)
	registerGetTabTool(srv, svc)
	registerOpenTabTool(srv, svc)
	registerCloseTabTool(srv, svc)
	registerAttachTabTool(srv, svc)
	registerDetachTabTool(srv, svc)
	registerCollapseTool(srv, svc, "collapse_tree", true)
	registerCollapseTool(srv, svc, "expand_tree", false)
	registerActivateTabTool(srv, svc)
	registerMoveTabsTool(srv, svc)
}

func registerListWindowsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_windows",
		mcp.WithDescription("List saved windows with tab and tree counts."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		windows, err := svc.ListWindows(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"windows": windows,
			"count":   len(windows),
		})
	})
}

func registerListTabsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_tabs",
		mcp.WithDescription("List the tabs of a window in order, with their place in the tree."),
		mcp.WithString("window",
			mcp.Required(),
			mcp.Description("Window to list."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		window, err := request.RequireString("window")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tabs, err := svc.ListTabs(ctx, window)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"window": window,
			"tabs":   tabs,
			"count":  len(tabs),
		})
	})
}

func registerGetTabTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_tab",
		mcp.WithDescription("Fetch a single tab by id or unique id prefix."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Tab id or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.TabByID(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerOpenTabTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"open_tab",
		mcp.WithDescription("Open a tab at the end of a window, optionally placed relative to the tab it was opened from."),
		mcp.WithString("window",
			mcp.Required(),
			mcp.Description("Window to open the tab in; created when missing."),
		),
		mcp.WithString("title",
			mcp.Description("Tab title."),
		),
		mcp.WithString("url",
			mcp.Description("Tab URL."),
		),
		mcp.WithString("opener",
			mcp.Description("Tab the new tab was opened from."),
		),
		mcp.WithString("behavior",
			mcp.Description("Where the new tab goes relative to the opener."),
			mcp.Enum("orphan", "child", "sibling", "nextSibling"),
		),
		mcp.WithBoolean("pinned",
			mcp.Description("Pin the tab."),
		),
		mcp.WithBoolean("active",
			mcp.Description("Select the tab."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Window   string `json:"window"`
			Title    string `json:"title"`
			URL      string `json:"url"`
			Opener   string `json:"opener"`
			Behavior string `json:"behavior"`
			Pinned   bool   `json:"pinned"`
			Active   bool   `json:"active"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		dto, err := svc.OpenTab(ctx, OpenTabOptions{
			Window:   args.Window,
			Title:    args.Title,
			URL:      args.URL,
			Pinned:   args.Pinned,
			Active:   args.Active,
			Opener:   args.Opener,
			Behavior: args.Behavior,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerCloseTabTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"close_tab",
		mcp.WithDescription("Close a tab. Its children are kept or closed according to the close-parent behavior."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Tab id or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		closed, err := svc.CloseTab(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"closed": closed,
			"count":  len(closed),
		})
	})
}

func registerAttachTabTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"attach_tab",
		mcp.WithDescription("Make a tab the child of another tab, moving its subtree next to the new parent."),
		mcp.WithString("child",
			mcp.Required(),
			mcp.Description("Tab to attach."),
		),
		mcp.WithString("parent",
			mcp.Required(),
			mcp.Description("New parent."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		child, err := request.RequireString("child")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		parent, err := request.RequireString("parent")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.AttachTab(ctx, child, parent)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerDetachTabTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"detach_tab",
		mcp.WithDescription("Make a tab a root, taking its subtree with it."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Tab id or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.DetachTab(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerCollapseTool(srv *server.MCPServer, svc *Service, name string, collapsed bool) {
	desc := "Expand the subtree below a tab."
	if collapsed {
		desc = "Collapse the subtree below a tab."
	}
	tool := mcp.NewTool(
		name,
		mcp.WithDescription(desc),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Tab id or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.SetCollapsed(ctx, id, collapsed)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerActivateTabTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"activate_tab",
		mcp.WithDescription("Select a tab. Collapsed ancestors are expanded."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Tab id or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.ActivateTab(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerMoveTabsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"move_tabs",
		mcp.WithDescription("Move or copy tabs, keeping the tree among them, into a window."),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Tabs to move, as ids or unique prefixes."),
			mcp.WithStringItems(),
		),
		mcp.WithString("window",
			mcp.Required(),
			mcp.Description("Destination window; created when missing."),
		),
		mcp.WithString("insert_before",
			mcp.Description("Tab to place the moved tabs before."),
		),
		mcp.WithString("insert_after",
			mcp.Description("Tab to place the moved tabs after."),
		),
		mcp.WithBoolean("duplicate",
			mcp.Description("Copy the tabs instead of moving them."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			IDs          []string `json:"ids"`
			Window       string   `json:"window"`
			InsertBefore string   `json:"insert_before"`
			InsertAfter  string   `json:"insert_after"`
			Duplicate    bool     `json:"duplicate"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		tabs, err := svc.MoveTabs(ctx, MoveTabsOptions{
			IDs:          args.IDs,
			Window:       args.Window,
			InsertBefore: args.InsertBefore,
			InsertAfter:  args.InsertAfter,
			Duplicate:    args.Duplicate,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"window": args.Window,
			"tabs":   tabs,
			"count":  len(tabs),
		})
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return result, nil
}

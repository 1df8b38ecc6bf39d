package mcp

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerWindowsResource(srv, svc)
	registerWindowTemplate(srv, svc)
	registerTabTemplate(srv, svc)
}

func registerWindowsResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"tabtree://windows",
		"Windows",
		mcp.WithResourceDescription("All saved windows with tab and tree counts."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		windows, err := svc.ListWindows(ctx)
		if err != nil {
			return nil, err
		}

		payload := map[string]any{
			"windows": windows,
			"count":   len(windows),
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerWindowTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"tabtree://windows/{name}",
		"Window Tabs",
		mcp.WithTemplateDescription("Tabs of a window in order, with their place in the tree."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		name := argument(request, "name")
		if name == "" {
			return nil, fmt.Errorf("window name is required")
		}

		tabs, err := svc.ListTabs(ctx, name)
		if err != nil {
			return nil, err
		}

		payload := map[string]any{
			"window": name,
			"count":  len(tabs),
			"tabs":   tabs,
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

func registerTabTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"tabtree://tabs/{id}",
		"Tab Details",
		mcp.WithTemplateDescription("A single tab and its place in the tree."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := argument(request, "id")
		if id == "" {
			return nil, fmt.Errorf("tab id is required")
		}

		dto, err := svc.TabByID(ctx, id)
		if err != nil {
			return nil, err
		}

		payload := map[string]any{
			"tab": dto,
		}
		return encodeResourceJSON(request.Params.URI, payload)
	})
}

// argument reads a URI template variable, a string or a one element list.
func argument(request mcp.ReadResourceRequest, name string) string {
	switch v := request.Params.Arguments[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

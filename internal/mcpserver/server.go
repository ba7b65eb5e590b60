// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the toolkit for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bomberos/internal/catalog"
	"github.com/starford/bomberos/internal/convert"
	"github.com/starford/bomberos/internal/toolkit"
)

// Resource URIs.
const (
	CatalogURI = "bomberos://catalog"
	GuideURI   = "bomberos://guide"
)

// Server wraps the MCP server with toolkit tools.
type Server struct {
	mcp *server.MCPServer
	svc *toolkit.Service
}

// New creates a new MCP server with all toolkit tools registered.
func New(svc *toolkit.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Bomberos",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_catalog",
		mcp.WithDescription("Search the firefighter catalogue by title and description. "+
			"Matching ignores case and accents. Queries shorter than 2 characters return hidden=true."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text, e.g. rcp or atencion")),
	), s.searchCatalog)

	s.mcp.AddTool(mcp.NewTool("list_catalog",
		mcp.WithDescription("List catalogue records in display order."),
		mcp.WithString("kind",
			mcp.Description("Optional filter: tool or module"),
			mcp.Enum(string(catalog.KindTool), string(catalog.KindModule)),
		),
	), s.listCatalog)

	s.mcp.AddTool(mcp.NewTool("convert_units",
		mcp.WithDescription("Convert a value between two units of the same category. "+
			"Call list_units for the supported units."),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("Value to convert")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Source unit, e.g. psi")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Target unit, e.g. bar")),
	), s.convertUnits)

	s.mcp.AddTool(mcp.NewTool("list_units",
		mcp.WithDescription("List the supported measurement units grouped by category."),
		mcp.WithString("category", mcp.Description("Optional category: pressure, flow, length, weight or temperature")),
	), s.listUnits)

	s.mcp.AddResource(
		mcp.NewResource(CatalogURI, "Catalogue",
			mcp.WithResourceDescription("The full firefighter catalogue as JSON."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCatalogResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(GuideURI, "Usage Guide",
			mcp.WithResourceDescription("How search and unit conversion behave."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Search(ctx, query, toolkit.SourceMCP))
}

func (s *Server) listCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := catalog.Kind(req.GetString("kind", ""))
	if kind != "" && kind != catalog.KindTool && kind != catalog.KindModule {
		return mcp.NewToolResultError(fmt.Sprintf("unknown kind %q", kind)), nil
	}

	records := []catalog.Record{}
	for _, r := range s.svc.Catalog(ctx) {
		if kind == "" || r.Kind == kind {
			records = append(records, r)
		}
	}
	return jsonResult(records)
}

func (s *Server) convertUnits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := req.RequireFloat("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := s.svc.Convert(ctx, value, from, to)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%g %s = %.2f %s", c.Value, c.From, c.Result, c.To)), nil
}

func (s *Server) listUnits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	grouped := s.svc.Units(ctx)
	if cat := convert.Category(req.GetString("category", "")); cat != "" {
		units, ok := grouped[cat]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", cat)), nil
		}
		return jsonResult(map[convert.Category][]convert.Unit{cat: units})
	}
	return jsonResult(grouped)
}

func (s *Server) readCatalogResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.svc.Catalog(ctx))
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readGuideResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideURI,
			MIMEType: "text/markdown",
			Text:     UsageGuide,
		},
	}, nil
}

// Package mcp exposes catalog operations as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/catalyzer/cabinet/domain/catalog"
)

// CatalogAccess provides the catalog operations MCP tools need.
type CatalogAccess interface {
	Search(ctx context.Context, tenant catalog.Tenant, tags []string, text string) ([]catalog.Catalog, error)
	Get(ctx context.Context, tenant catalog.Tenant, id uuid.UUID) (catalog.Catalog, error)
	CreateFromMarkdown(ctx context.Context, tenant catalog.Tenant, filename, raw string) (catalog.Catalog, error)
}

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcpServer *server.MCPServer
	catalogs  CatalogAccess
	logger    *slog.Logger
}

// NewServer creates an MCP server exposing search_catalogs, get_catalog,
// and add_markdown.
func NewServer(catalogs CatalogAccess, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		catalogs: catalogs,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"cabinet",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool("search_catalogs",
		mcp.WithDescription("Search a tenant's catalog records by tags and text"),
		mcp.WithString("org", mcp.Required(), mcp.Description("Organization identifier")),
		mcp.WithString("group", mcp.Required(), mcp.Description("Group identifier")),
		mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; records matching any tag are returned")),
		mcp.WithString("query", mcp.Description("Case-insensitive substring matched against title and markdown")),
	)
	mcpServer.AddTool(searchTool, s.handleSearch)

	getTool := mcp.NewTool("get_catalog",
		mcp.WithDescription("Get one catalog record by id, including its markdown body"),
		mcp.WithString("org", mcp.Required(), mcp.Description("Organization identifier")),
		mcp.WithString("group", mcp.Required(), mcp.Description("Group identifier")),
		mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Catalog record UUID")),
	)
	mcpServer.AddTool(getTool, s.handleGet)

	addTool := mcp.NewTool("add_markdown",
		mcp.WithDescription("Store a markdown document with YAML frontmatter as a catalog record"),
		mcp.WithString("org", mcp.Required(), mcp.Description("Organization identifier")),
		mcp.WithString("group", mcp.Required(), mcp.Description("Group identifier")),
		mcp.WithString("user", mcp.Required(), mcp.Description("User identifier")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown document, frontmatter included")),
	)
	mcpServer.AddTool(addTool, s.handleAddMarkdown)
}

func (s *Server) tenantFromRequest(request mcp.CallToolRequest) (catalog.Tenant, error) {
	org, err := request.RequireString("org")
	if err != nil {
		return catalog.Tenant{}, err
	}
	group, err := request.RequireString("group")
	if err != nil {
		return catalog.Tenant{}, err
	}
	user, err := request.RequireString("user")
	if err != nil {
		return catalog.Tenant{}, err
	}
	return catalog.NewTenant(org, group, user)
}

type recordSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author,omitempty"`
	URL       string   `json:"url,omitempty"`
	Tags      []string `json:"tags"`
	UpdatedAt string   `json:"updated_at"`
}

func summarize(c catalog.Catalog) recordSummary {
	tags := c.Tags()
	if tags == nil {
		tags = []string{}
	}
	return recordSummary{
		ID:        c.ID().String(),
		Title:     c.Title(),
		Author:    c.Author(),
		URL:       c.URL(),
		Tags:      tags,
		UpdatedAt: c.UpdatedAt().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, err := s.tenantFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var tags []string
	if raw := request.GetString("tags", ""); raw != "" {
		tags = splitTags(raw)
	}

	records, err := s.catalogs.Search(ctx, tenant, tags, request.GetString("query", ""))
	if err != nil {
		s.logger.Error("catalog search failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	results := make([]recordSummary, len(records))
	for i, c := range records {
		results[i] = summarize(c)
	}

	jsonBytes, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, err := s.tenantFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	idStr, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid id: %s", idStr)), nil
	}

	record, err := s.catalogs.Get(ctx, tenant, id)
	if err != nil {
		s.logger.Error("catalog lookup failed", slog.String("id", idStr), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to get catalog: %v", err)), nil
	}

	type fullRecord struct {
		recordSummary
		Locations  []string       `json:"locations"`
		Markdown   string         `json:"markdown"`
		Properties map[string]any `json:"properties,omitempty"`
	}

	result := fullRecord{
		recordSummary: summarize(record),
		Locations:     record.Locations(),
		Markdown:      record.Markdown(),
		Properties:    record.Properties(),
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleAddMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, err := s.tenantFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content is required"), nil
	}

	record, err := s.catalogs.CreateFromMarkdown(ctx, tenant, "", content)
	if err != nil {
		s.logger.Error("markdown ingestion failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to add markdown: %v", err)), nil
	}

	jsonBytes, err := json.Marshal(summarize(record))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

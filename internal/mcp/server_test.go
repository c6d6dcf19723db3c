package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/catalyzer/cabinet/domain/catalog"
)

// fakeCatalogs implements CatalogAccess with canned records, recording
// the arguments of the last call.
type fakeCatalogs struct {
	records []catalog.Catalog

	lastTenant catalog.Tenant
	lastTags   []string
	lastText   string
	lastRaw    string
}

func (f *fakeCatalogs) Search(_ context.Context, tenant catalog.Tenant, tags []string, text string) ([]catalog.Catalog, error) {
	f.lastTenant = tenant
	f.lastTags = tags
	f.lastText = text
	return f.records, nil
}

func (f *fakeCatalogs) Get(_ context.Context, tenant catalog.Tenant, id uuid.UUID) (catalog.Catalog, error) {
	f.lastTenant = tenant
	for _, c := range f.records {
		if c.ID() == id {
			return c, nil
		}
	}
	return catalog.Catalog{}, catalog.ErrNotFound
}

func (f *fakeCatalogs) CreateFromMarkdown(_ context.Context, tenant catalog.Tenant, _ string, raw string) (catalog.Catalog, error) {
	f.lastTenant = tenant
	f.lastRaw = raw
	return f.records[0], nil
}

var _ CatalogAccess = (*fakeCatalogs)(nil)

func testRecord() catalog.Catalog {
	return catalog.ReconstructCatalog(
		uuid.MustParse("0b49a098-4398-46a6-ae36-e52b65401e2c"),
		"Postgres Guide",
		"Ada Lovelace",
		"https://example.com/postgres",
		[]string{"db"},
		[]string{"/library/postgres.md"},
		"# Postgres Guide\n\nNotes.",
		map[string]any{"rating": "5"},
		nil,
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 11, 0, 0, 0, time.UTC),
	)
}

func testServer() (*Server, *fakeCatalogs) {
	catalogs := &fakeCatalogs{records: []catalog.Catalog{testRecord()}}
	return NewServer(catalogs, nil), catalogs
}

// sendMessage marshals a JSON-RPC request, sends it through HandleMessage,
// and returns the JSONRPCResponse.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result := srv.MCPServer().HandleMessage(context.Background(), raw)

	resp, ok := result.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T: %+v", result, result)
	}
	return resp
}

// resultJSON re-marshals the Result field through JSON into dst.
func resultJSON(t *testing.T, resp mcp.JSONRPCResponse, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		t.Fatalf("unmarshal result into %T: %v", dst, err)
	}
}

// textFromContent extracts the text string from the first content item
// of a CallToolResult. It round-trips through JSON because in-process
// responses may hold the content as a map rather than a typed struct.
func textFromContent(t *testing.T, result mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	b, err := json.Marshal(result.Content[0])
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	var tc struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &tc); err != nil {
		t.Fatalf("unmarshal text content: %v", err)
	}
	return tc.Text
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "0.0.1",
		},
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) mcp.CallToolResult {
	t.Helper()
	sendMessage(t, srv, "initialize", 1, initializeParams())
	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      name,
		"arguments": args,
	})
	var result mcp.CallToolResult
	resultJSON(t, resp, &result)
	return result
}

func tenantArgs() map[string]any {
	return map[string]any{"org": "acme", "group": "eng", "user": "alice"}
}

func TestServer_Initialize(t *testing.T) {
	srv, _ := testServer()
	resp := sendMessage(t, srv, "initialize", 1, initializeParams())

	var result mcp.InitializeResult
	resultJSON(t, resp, &result)

	if result.ServerInfo.Name != "cabinet" {
		t.Errorf("expected server name cabinet, got %s", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability to be present")
	}
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := testServer()
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/list", 2, nil)

	var result mcp.ListToolsResult
	resultJSON(t, resp, &result)

	if len(result.Tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(result.Tools))
	}

	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}
	for _, name := range []string{"search_catalogs", "get_catalog", "add_markdown"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing tool: %s", name)
		}
	}

	for _, param := range []string{"org", "group", "user"} {
		found := false
		for _, req := range tools["search_catalogs"].InputSchema.Required {
			if req == param {
				found = true
			}
		}
		if !found {
			t.Errorf("search_catalogs should require %s", param)
		}
	}
}

func TestServer_SearchCatalogs(t *testing.T) {
	srv, catalogs := testServer()

	args := tenantArgs()
	args["tags"] = "db, postgres"
	args["query"] = "guide"
	result := callTool(t, srv, "search_catalogs", args)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	var items []struct {
		ID    string   `json:"id"`
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(textFromContent(t, result)), &items); err != nil {
		t.Fatalf("unmarshal search results: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 result, got %d", len(items))
	}
	if items[0].Title != "Postgres Guide" {
		t.Errorf("expected title Postgres Guide, got %s", items[0].Title)
	}

	if catalogs.lastTenant.String() != "acme/eng/alice" {
		t.Errorf("unexpected tenant: %s", catalogs.lastTenant)
	}
	if len(catalogs.lastTags) != 2 || catalogs.lastTags[0] != "db" || catalogs.lastTags[1] != "postgres" {
		t.Errorf("comma tags not split: %v", catalogs.lastTags)
	}
	if catalogs.lastText != "guide" {
		t.Errorf("query not forwarded: %s", catalogs.lastText)
	}
}

func TestServer_SearchCatalogsMissingTenant(t *testing.T) {
	srv, _ := testServer()

	result := callTool(t, srv, "search_catalogs", map[string]any{"org": "acme"})
	if !result.IsError {
		t.Fatal("expected error for missing group/user")
	}
}

func TestServer_SearchCatalogsInvalidTenantSegment(t *testing.T) {
	srv, _ := testServer()

	args := tenantArgs()
	args["org"] = "ac-me"
	result := callTool(t, srv, "search_catalogs", args)
	if !result.IsError {
		t.Fatal("expected error for invalid identifier")
	}
	if !strings.Contains(textFromContent(t, result), "invalid tenant identifier") {
		t.Errorf("unexpected error text: %s", textFromContent(t, result))
	}
}

func TestServer_GetCatalog(t *testing.T) {
	srv, _ := testServer()

	args := tenantArgs()
	args["id"] = "0b49a098-4398-46a6-ae36-e52b65401e2c"
	result := callTool(t, srv, "get_catalog", args)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	var record struct {
		ID       string `json:"id"`
		Markdown string `json:"markdown"`
	}
	if err := json.Unmarshal([]byte(textFromContent(t, result)), &record); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if record.ID != args["id"] {
		t.Errorf("expected id %s, got %s", args["id"], record.ID)
	}
	if !strings.Contains(record.Markdown, "Postgres Guide") {
		t.Errorf("markdown body missing: %s", record.Markdown)
	}
}

func TestServer_GetCatalogMalformedID(t *testing.T) {
	srv, _ := testServer()

	args := tenantArgs()
	args["id"] = "not-a-uuid"
	result := callTool(t, srv, "get_catalog", args)
	if !result.IsError {
		t.Fatal("expected error for malformed id")
	}
}

func TestServer_GetCatalogUnknownID(t *testing.T) {
	srv, _ := testServer()

	args := tenantArgs()
	args["id"] = uuid.New().String()
	result := callTool(t, srv, "get_catalog", args)
	if !result.IsError {
		t.Fatal("expected error for unknown id")
	}
	if !strings.Contains(textFromContent(t, result), "catalog not found") {
		t.Errorf("unexpected error text: %s", textFromContent(t, result))
	}
}

func TestServer_AddMarkdown(t *testing.T) {
	srv, catalogs := testServer()

	args := tenantArgs()
	args["content"] = "---\ntitle: New\n---\nBody."
	result := callTool(t, srv, "add_markdown", args)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}
	if catalogs.lastRaw != args["content"] {
		t.Errorf("content not forwarded: %q", catalogs.lastRaw)
	}

	var summary struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(textFromContent(t, result)), &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Title != "Postgres Guide" {
		t.Errorf("expected stored record in response, got %+v", summary)
	}
}

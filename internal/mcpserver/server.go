// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lectern's documentation index to LLM clients via stdio
// transport. Every tool is read-only.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/lectern/internal/gitstatus"
	"github.com/halvard/lectern/internal/session"
	"github.com/halvard/lectern/internal/store"
)

// Server wraps the MCP server with Lectern tools.
type Server struct {
	mcp     *server.MCPServer
	store   *store.Store
	session *session.Session
	git     *gitstatus.Provider
}

// New creates a new MCP server with all Lectern tools registered.
func New(st *store.Store, sess *session.Session, git *gitstatus.Provider) *Server {
	s := &Server{store: st, session: sess, git: git}

	s.mcp = server.NewMCPServer(
		"Lectern",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_docs",
		mcp.WithDescription("Full-text search through documentation titles, headings and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("project", mcp.Description("Optional project UUID to scope the search")),
	), s.searchDocs)

	s.mcp.AddTool(mcp.NewTool("quick_open",
		mcp.WithDescription("Find documents by name, ranked with a strong title bias."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Document name fragment")),
		mcp.WithString("project", mcp.Description("Optional project UUID to scope the lookup")),
	), s.quickOpen)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the rendered body of an indexed document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the document")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all registered documentation projects."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents of a project in display order."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project UUID")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("git_status",
		mcp.WithDescription("Report version-control status for the currently open project."),
	), s.gitStatus)

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

func (s *Server) searchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.Search(query, req.GetString("project", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) quickOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.QuickOpen(query, req.GetString("project", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.store.DocumentByPath(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.Projects()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(projects, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectUUID, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.store.DocumentsByProject(projectUUID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type item struct {
		Title        string `json:"title"`
		Path         string `json:"path"`
		RelativePath string `json:"relative_path"`
	}
	items := make([]item, 0, len(docs))
	for _, d := range docs {
		items = append(items, item{Title: d.DisplayTitle(), Path: d.Path, RelativePath: d.RelativePath})
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) gitStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.session == nil {
		return mcp.NewToolResultError("no session"), nil
	}
	p, ok := s.session.Project()
	if !ok {
		return mcp.NewToolResultError("no project open"), nil
	}
	out, _ := json.MarshalIndent(s.git.Summary(ctx, p.Path), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

package mcpserver

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/google/uuid"

	"github.com/halvard/lectern/internal/models"
	"github.com/halvard/lectern/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store, models.Project) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "lectern.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	now := time.Now()
	project, err := st.UpsertProject(models.Project{
		UUID:         uuid.NewString(),
		Name:         "docs",
		Path:         "/tmp/docs",
		Tags:         []string{},
		CreatedAt:    now,
		LastOpenedAt: &now,
	})
	if err != nil {
		t.Fatal(err)
	}

	docs := []models.Document{
		{
			UUID: uuid.NewString(), Title: "Guide", Path: "/tmp/docs/guide.md",
			RelativePath: "guide.md", Content: "# Guide\ninstallation steps",
			Body: "# Guide\ninstallation steps", LastModified: now,
		},
		{
			UUID: uuid.NewString(), Title: "Reference", Path: "/tmp/docs/ref.md",
			RelativePath: "ref.md", Content: "# Reference\napi details",
			Body: "# Reference\napi details", LastModified: now,
		},
	}
	if err := st.ReplaceDocuments(project.UUID, docs); err != nil {
		t.Fatal(err)
	}

	return New(st, nil, nil), st, project
}

func callReq(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content in result")
	return ""
}

func TestSearchDocs(t *testing.T) {
	srv, _, _ := testServer(t)

	res, err := srv.searchDocs(context.Background(), callReq("search_docs", map[string]interface{}{
		"query": "installation",
	}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "guide.md") {
		t.Errorf("search output = %q", text)
	}
}

func TestSearchDocs_MissingQuery(t *testing.T) {
	srv, _, _ := testServer(t)

	res, err := srv.searchDocs(context.Background(), callReq("search_docs", map[string]interface{}{}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error result for missing query")
	}
}

func TestQuickOpen(t *testing.T) {
	srv, _, _ := testServer(t)

	res, err := srv.quickOpen(context.Background(), callReq("quick_open", map[string]interface{}{
		"query": "refer",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, res); !strings.Contains(text, "ref.md") {
		t.Errorf("quick open output = %q", text)
	}
}

func TestReadDocument(t *testing.T) {
	srv, _, _ := testServer(t)

	res, err := srv.readDocument(context.Background(), callReq("read_document", map[string]interface{}{
		"path": "/tmp/docs/guide.md",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, res); !strings.Contains(text, "installation steps") {
		t.Errorf("document body = %q", text)
	}

	res, err = srv.readDocument(context.Background(), callReq("read_document", map[string]interface{}{
		"path": "/tmp/docs/missing.md",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error result for unknown path")
	}
}

func TestListProjects(t *testing.T) {
	srv, _, project := testServer(t)

	res, err := srv.listProjects(context.Background(), callReq("list_projects", nil))
	if err != nil {
		t.Fatal(err)
	}
	if text := resultText(t, res); !strings.Contains(text, project.UUID) {
		t.Errorf("projects output = %q", text)
	}
}

func TestListDocuments(t *testing.T) {
	srv, _, project := testServer(t)

	res, err := srv.listDocuments(context.Background(), callReq("list_documents", map[string]interface{}{
		"project": project.UUID,
	}))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "guide.md") || !strings.Contains(text, "ref.md") {
		t.Errorf("documents output = %q", text)
	}
}

func TestGitStatus_NoSession(t *testing.T) {
	srv, _, _ := testServer(t)

	res, err := srv.gitStatus(context.Background(), callReq("git_status", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("expected error result without a session")
	}
}

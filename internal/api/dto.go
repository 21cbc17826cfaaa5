package api

import (
	"encoding/json"
	"time"

	"github.com/halvard/lectern/internal/gitstatus"
	"github.com/halvard/lectern/internal/models"
)

// OpenProjectRequest is the request body for opening a project by path.
type OpenProjectRequest struct {
	Path string `json:"path"`
}

// NavigateRequest selects a document by absolute path or link reference.
type NavigateRequest struct {
	Path string `json:"path,omitempty"`
	Ref  string `json:"ref,omitempty"`
}

// ViewStateRequest carries opaque viewer state blobs for persistence.
type ViewStateRequest struct {
	SidebarExpansion json.RawMessage `json:"sidebar_expansion,omitempty"`
	ScrollPosition   json.RawMessage `json:"scroll_position,omitempty"`
}

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects"`
	Total    int              `json:"total"`
}

// TreeResponse wraps the current project's folder tree.
type TreeResponse struct {
	Tree []models.FolderNode `json:"tree"`
}

// DocumentResponse is the full document payload for the viewer.
type DocumentResponse struct {
	UUID         string            `json:"uuid"`
	Title        string            `json:"title"`
	DisplayTitle string            `json:"display_title"`
	Path         string            `json:"path"`
	RelativePath string            `json:"relative_path"`
	Content      string            `json:"content"`
	Frontmatter  map[string]string `json:"frontmatter,omitempty"`
	FileSize     int64             `json:"file_size"`
	LastModified time.Time         `json:"last_modified"`
	HasMermaid   bool              `json:"has_mermaid"`
	HasMath      bool              `json:"has_math"`
}

func documentResponse(d models.Document) DocumentResponse {
	return DocumentResponse{
		UUID:         d.UUID,
		Title:        d.Title,
		DisplayTitle: d.DisplayTitle(),
		Path:         d.Path,
		RelativePath: d.RelativePath,
		Content:      d.Body,
		Frontmatter:  d.Frontmatter,
		FileSize:     d.FileSize,
		LastModified: d.LastModified,
		HasMermaid:   d.HasMermaid,
		HasMath:      d.HasMath,
	}
}

// SearchHit is a single search result in the API response.
type SearchHit struct {
	UUID    string  `json:"uuid"`
	Title   string  `json:"title"`
	Path    string  `json:"path"`
	Snippet string  `json:"snippet"`
	Rank    float64 `json:"rank"`
}

// SearchResponse wraps search or quick-open results.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
}

// GitStatusResponse is the repository status payload.
type GitStatusResponse = gitstatus.Summary

// DiffResponse carries unified diff text for one file.
type DiffResponse struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// ConfigCheckResponse lists project configuration violations.
type ConfigCheckResponse struct {
	Problems []string `json:"problems"`
}

// Package models defines the domain types for Lectern.
package models

import (
	"path/filepath"
	"time"
)

// Document represents a parsed Markdown file inside a project.
//
// Identity is regenerated on every scan; RelativePath is the stable join key
// between filesystem state and store rows.
type Document struct {
	UUID         string            `json:"uuid"`
	Title        string            `json:"title"`
	Path         string            `json:"path"`
	RelativePath string            `json:"relative_path"`
	Content      string            `json:"-"`
	Body         string            `json:"-"`
	Headings     string            `json:"-"`
	Frontmatter  map[string]string `json:"frontmatter,omitempty"`
	FileSize     int64             `json:"file_size"`
	LastModified time.Time         `json:"last_modified"`
	HasMermaid   bool              `json:"has_mermaid"`
	HasMath      bool              `json:"has_math"`
}

// DisplayTitle returns the frontmatter title when present, else the
// filename-derived title.
func (d Document) DisplayTitle() string {
	if t, ok := d.Frontmatter["title"]; ok && t != "" {
		return t
	}
	return d.Title
}

// Dir returns the directory containing the document.
func (d Document) Dir() string {
	return filepath.Dir(d.Path)
}

// FolderNode is one entry in the sidebar tree: either a directory with
// children or a file carrying its Document.
type FolderNode struct {
	Name     string       `json:"name"`
	Path     string       `json:"path"`
	IsFile   bool         `json:"is_file"`
	Children []FolderNode `json:"children,omitempty"`
	// Document is set for file nodes, and for directory nodes whose first
	// file child is a README (borrowed pointer, so clicking a folder can
	// open its README).
	Document *Document `json:"document,omitempty"`
}

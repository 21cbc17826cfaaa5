// Package scanner walks a project root and builds the sidebar tree plus the
// flat document list from the Markdown files on disk.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/halvard/lectern/internal/models"
	"github.com/halvard/lectern/internal/parser"
)

// skippedDirs are well-known non-documentation directories that are never
// descended into.
var skippedDirs = map[string]struct{}{
	".git": {}, ".svn": {}, ".hg": {},
	"node_modules": {}, ".build": {}, "__pycache__": {},
	".venv": {}, "venv": {}, ".idea": {}, ".vscode": {},
	"Pods": {}, "DerivedData": {}, ".next": {}, "dist": {}, "build": {},
	".lectern": {}, ".claude": {}, ".cursor": {}, ".github": {},
}

// skippedFiles are reserved filenames that are configuration, not content.
var skippedFiles = map[string]struct{}{
	".docsconfig.yaml": {},
	".docsconfig.yml":  {},
}

// Result is the outcome of one scan: the ordered tree and the flat list of
// every document discovered, in tree display order.
type Result struct {
	Tree      []models.FolderNode
	Documents []models.Document
}

// Scan walks root and returns the tree and flat list as a pure function of
// current disk state. Two scans of an unchanged tree produce identical
// ordering and content. Unreadable directories yield empty subtrees and
// unreadable files are skipped; Scan itself never fails.
func Scan(root string) *Result {
	res := &Result{}
	res.Tree = buildTree(root, root)
	res.Documents = flatten(res.Tree, nil)
	return res
}

// flatten walks nodes in display order and collects the file documents, so
// the flat list and the sidebar agree on position.
func flatten(nodes []models.FolderNode, out []models.Document) []models.Document {
	for _, n := range nodes {
		if n.IsFile {
			out = append(out, *n.Document)
			continue
		}
		out = flatten(n.Children, out)
	}
	return out
}

func buildTree(dir, root string) []models.FolderNode {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		return caseInsensitiveLess(entries[i].Name(), entries[j].Name())
	})

	var folders, files []models.FolderNode

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue
			}
			if _, skip := skippedDirs[name]; skip {
				continue
			}
			children := buildTree(path, root)
			if len(children) == 0 {
				continue
			}
			folders = append(folders, models.FolderNode{
				Name:     name,
				Path:     path,
				Children: children,
				Document: readmeDocument(children),
			})
			continue
		}

		if strings.HasPrefix(name, ".") {
			continue
		}
		if _, skip := skippedFiles[strings.ToLower(name)]; skip {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			continue
		}

		doc, ok := loadDocument(path, root)
		if !ok {
			continue
		}
		node := doc
		files = append(files, models.FolderNode{
			Name:     baseName(name),
			Path:     path,
			IsFile:   true,
			Document: &node,
		})
	}

	return sortSiblings(folders, files)
}

// sortSiblings orders folders before files and moves a README file to the
// front of the files. Both groups are already alphabetical from the
// directory listing.
func sortSiblings(folders, files []models.FolderNode) []models.FolderNode {
	for i, f := range files {
		if strings.EqualFold(f.Name, "readme") {
			readme := files[i]
			files = append(files[:i], files[i+1:]...)
			files = append([]models.FolderNode{readme}, files...)
			break
		}
	}
	return append(folders, files...)
}

// readmeDocument borrows the document of the first-sorted README child, if
// any, so the directory node can stand in for it.
func readmeDocument(children []models.FolderNode) *models.Document {
	for _, c := range children {
		if c.IsFile && strings.EqualFold(c.Name, "readme") {
			return c.Document
		}
	}
	return nil
}

// loadDocument reads and parses one Markdown file. A read failure skips the
// file rather than aborting the scan.
func loadDocument(path, root string) (models.Document, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Document{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, false
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return models.Document{}, false
	}

	res := parser.Parse(data)
	return models.Document{
		UUID:         uuid.NewString(),
		Title:        baseName(filepath.Base(path)),
		Path:         path,
		RelativePath: filepath.ToSlash(rel),
		Content:      string(data),
		Body:         res.Body,
		Headings:     res.Headings,
		Frontmatter:  res.Frontmatter,
		FileSize:     info.Size(),
		LastModified: info.ModTime(),
		HasMermaid:   res.HasMermaid,
		HasMath:      res.HasMath,
	}, true
}

// LoadDocument parses a single file relative to the project root. The
// reconciler uses it for targeted reloads after a modify event.
func LoadDocument(path, root string) (models.Document, bool) {
	return loadDocument(path, root)
}

func baseName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func caseInsensitiveLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

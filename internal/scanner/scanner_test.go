package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeFile creates path (and parents) under root with the given content.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func flatRelPaths(res *Result) []string {
	out := make([]string, len(res.Documents))
	for i, d := range res.Documents {
		out[i] = d.RelativePath
	}
	return out
}

func TestScan_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# Root")
	writeFile(t, root, "zeta.md", "# Zeta")
	writeFile(t, root, "alpha.md", "# Alpha")
	writeFile(t, root, "guides/setup.md", "# Setup")
	writeFile(t, root, "guides/README.md", "# Guides")

	first := Scan(root)
	second := Scan(root)

	if !reflect.DeepEqual(flatRelPaths(first), flatRelPaths(second)) {
		t.Errorf("scans differ: %v vs %v", flatRelPaths(first), flatRelPaths(second))
	}
}

func TestScan_SiblingOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "zeta.md", "z")
	writeFile(t, root, "Alpha.md", "a")
	writeFile(t, root, "readme.md", "r")
	writeFile(t, root, "sub/doc.md", "d")

	res := Scan(root)

	var names []string
	for _, n := range res.Tree {
		names = append(names, n.Name)
	}
	// Folders first, then README, then files case-insensitively.
	want := []string{"sub", "readme", "Alpha", "zeta"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("sibling order = %v, want %v", names, want)
	}

	// The flat list follows the same display order.
	wantFlat := []string{"sub/doc.md", "readme.md", "Alpha.md", "zeta.md"}
	if got := flatRelPaths(res); !reflect.DeepEqual(got, wantFlat) {
		t.Errorf("flat order = %v, want %v", got, wantFlat)
	}
}

func TestScan_ReadmeAdoption(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/README.md", "# Docs Home")
	writeFile(t, root, "docs/other.md", "# Other")

	res := Scan(root)

	if len(res.Tree) != 1 || res.Tree[0].Name != "docs" {
		t.Fatalf("tree = %+v", res.Tree)
	}
	dir := res.Tree[0]
	if dir.Document == nil {
		t.Fatal("directory did not adopt its README document")
	}
	if dir.Document.RelativePath != "docs/README.md" {
		t.Errorf("adopted document = %q", dir.Document.RelativePath)
	}
	if !dir.Children[0].IsFile || dir.Children[0].Document.RelativePath != "docs/README.md" {
		t.Errorf("README is not the first file child: %+v", dir.Children[0])
	}
}

func TestScan_OmitsEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep/doc.md", "x")
	writeFile(t, root, "empty/notes.txt", "not markdown")
	writeFile(t, root, "hidden/.secret.md", "dotfile")
	if err := os.MkdirAll(filepath.Join(root, "bare"), 0o755); err != nil {
		t.Fatal(err)
	}

	res := Scan(root)

	if len(res.Tree) != 1 || res.Tree[0].Name != "keep" {
		t.Errorf("tree = %+v, want only 'keep'", res.Tree)
	}
}

func TestScan_SkipsDeniedAndHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "doc.md", "x")
	writeFile(t, root, "node_modules/pkg/README.md", "dep docs")
	writeFile(t, root, ".git/objects/x.md", "git internals")
	writeFile(t, root, ".hidden/doc.md", "hidden")
	writeFile(t, root, ".docsconfig.yaml", "version: 1")

	res := Scan(root)

	if got := flatRelPaths(res); !reflect.DeepEqual(got, []string{"doc.md"}) {
		t.Errorf("documents = %v, want only doc.md", got)
	}
}

func TestScan_FrontmatterTitle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/guide.md", "---\ntitle: \"My Guide\"\n---\n# My Guide\ncontent")

	res := Scan(root)

	if len(res.Documents) != 1 {
		t.Fatalf("documents = %d, want 1", len(res.Documents))
	}
	doc := res.Documents[0]
	if doc.DisplayTitle() != "My Guide" {
		t.Errorf("display title = %q, want %q", doc.DisplayTitle(), "My Guide")
	}
	if doc.Title != "guide" {
		t.Errorf("filename title = %q, want %q", doc.Title, "guide")
	}
	if doc.Body != "# My Guide\ncontent" {
		t.Errorf("body = %q, frontmatter not stripped", doc.Body)
	}
}

func TestScan_DerivedFlags(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "diagram.md", "```mermaid\ngraph TD\n```")
	writeFile(t, root, "math.md", "$$x$$")
	writeFile(t, root, "plain.md", "text")

	res := Scan(root)

	byRel := map[string][2]bool{}
	for _, d := range res.Documents {
		byRel[d.RelativePath] = [2]bool{d.HasMermaid, d.HasMath}
	}
	if byRel["diagram.md"] != [2]bool{true, false} {
		t.Errorf("diagram.md flags = %v", byRel["diagram.md"])
	}
	if byRel["math.md"] != [2]bool{false, true} {
		t.Errorf("math.md flags = %v", byRel["math.md"])
	}
	if byRel["plain.md"] != [2]bool{false, false} {
		t.Errorf("plain.md flags = %v", byRel["plain.md"])
	}
}

func TestLoadDocument_Metadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "# A")

	doc, ok := LoadDocument(filepath.Join(root, "a.md"), root)
	if !ok {
		t.Fatal("LoadDocument failed")
	}
	if doc.RelativePath != "a.md" {
		t.Errorf("relative path = %q", doc.RelativePath)
	}
	if doc.FileSize != int64(len("# A")) {
		t.Errorf("file size = %d", doc.FileSize)
	}
	if doc.UUID == "" {
		t.Error("missing uuid")
	}
}

package gitstatus

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestParsePorcelain(t *testing.T) {
	out := strings.Join([]string{
		" M docs/guide.md",
		"M  README.md",
		"A  docs/new.md",
		" D docs/old.md",
		"R  docs/a.md -> docs/b.md",
		"?? notes.md",
		"",
	}, "\n")

	changes := ParsePorcelain(out)
	if len(changes) != 6 {
		t.Fatalf("changes = %d, want 6: %+v", len(changes), changes)
	}

	want := []Change{
		{Status: StatusModified, Path: "docs/guide.md"},
		{Status: StatusModified, Path: "README.md"},
		{Status: StatusAdded, Path: "docs/new.md"},
		{Status: StatusDeleted, Path: "docs/old.md"},
		{Status: StatusRenamed, Path: "docs/b.md", OldPath: "docs/a.md"},
		{Status: StatusUntracked, Path: "notes.md"},
	}
	for i, w := range want {
		if changes[i] != w {
			t.Errorf("change[%d] = %+v, want %+v", i, changes[i], w)
		}
	}
}

func TestParsePorcelain_Empty(t *testing.T) {
	if got := ParsePorcelain(""); len(got) != 0 {
		t.Errorf("empty output parsed as %+v", got)
	}
	if got := ParsePorcelain("\n\n"); len(got) != 0 {
		t.Errorf("blank lines parsed as %+v", got)
	}
}

func TestParsePorcelain_QuotedPath(t *testing.T) {
	changes := ParsePorcelain(`?? "weird name.md"` + "\n")
	if len(changes) != 1 || changes[0].Path != "weird name.md" {
		t.Errorf("quoted path = %+v", changes)
	}
}

func TestSyntheticAddDiff(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "new.md"), []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	diff, err := syntheticAddDiff(dir, "new.md")
	if err != nil {
		t.Fatal(err)
	}
	want := "--- /dev/null\n+++ b/new.md\n@@ -0,0 +1,2 @@\n+one\n+two\n"
	if diff != want {
		t.Errorf("diff = %q, want %q", diff, want)
	}
}

func TestSyntheticAddDiff_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.md"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	diff, err := syntheticAddDiff(dir, "empty.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(diff, "@@ -0,0 +1,0 @@") {
		t.Errorf("diff = %q", diff)
	}
}

func testProvider(t *testing.T) *Provider {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(logger)
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestSummary_NotARepository(t *testing.T) {
	requireGit(t)
	s := testProvider(t).Summary(context.Background(), t.TempDir())
	if s.IsRepository || s.HasChanges || len(s.Changes) != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestSummary_Repository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@t",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@t")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	git("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("v1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	git("add", ".")
	git("commit", "-m", "init")
	if err := os.WriteFile(filepath.Join(dir, "doc.md"), []byte("v2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loose.md"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := testProvider(t)
	s := p.Summary(context.Background(), dir)
	if !s.IsRepository || s.Branch != "main" || !s.HasChanges {
		t.Fatalf("summary = %+v", s)
	}
	byPath := map[string]FileStatus{}
	for _, c := range s.Changes {
		byPath[c.Path] = c.Status
	}
	if byPath["doc.md"] != StatusModified || byPath["loose.md"] != StatusUntracked {
		t.Errorf("changes = %+v", s.Changes)
	}

	diff, err := p.Diff(context.Background(), dir, "doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(diff, "+v2") {
		t.Errorf("tracked diff = %q", diff)
	}

	diff, err = p.Diff(context.Background(), dir, "loose.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(diff, "--- /dev/null") || !strings.Contains(diff, "+x") {
		t.Errorf("untracked diff = %q", diff)
	}
}

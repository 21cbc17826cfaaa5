package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/halvard/lectern/internal/store"
	"github.com/halvard/lectern/internal/watcher"
)

// fakeSource hands the reconciler a channel the test feeds directly, so
// reconciliation can be driven without real filesystem notification timing.
type fakeSource struct {
	events chan watcher.Event
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan watcher.Event, 16)}
}

func (f *fakeSource) Watch(ctx context.Context, root string) (<-chan watcher.Event, error) {
	return f.events, nil
}

func (f *fakeSource) send(kind watcher.Kind, path string) {
	f.events <- watcher.Event{Path: path, Kind: kind, At: time.Now()}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSession(t *testing.T) (*Session, *fakeSource, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lectern.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	source := newFakeSource()
	s := New(st, source, testLogger(), WithSaveDelay(20*time.Millisecond))
	t.Cleanup(s.Close)
	return s, source, st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// projectFixture builds a small tree: README.md, guide.md, sub/deep.md.
func projectFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# Home\nwelcome")
	writeFile(t, filepath.Join(root, "guide.md"), "# Guide\nhow to")
	writeFile(t, filepath.Join(root, "sub", "deep.md"), "# Deep\nnested")
	return root
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestOpenProject_SelectsFirstDocumentInDisplayOrder(t *testing.T) {
	s, _, _ := testSession(t)
	root := projectFixture(t)

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}

	sel, ok := s.Selected()
	if !ok {
		t.Fatal("no selection after open")
	}
	// Folders sort before files, so the first document in display order is
	// the one inside sub/.
	if want := filepath.Join(root, "sub", "deep.md"); sel.Path != want {
		t.Errorf("selected %q, want %q", sel.Path, want)
	}
	if got := len(s.Documents()); got != 3 {
		t.Errorf("documents = %d, want 3", got)
	}
}

func TestOpenProject_IndexesStore(t *testing.T) {
	s, _, st := testSession(t)
	root := projectFixture(t)

	project, err := s.OpenProject(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	count, err := st.DocumentCount(project.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("indexed documents = %d, want 3", count)
	}

	stored, err := st.ProjectByUUID(project.UUID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.DocumentCount != 3 {
		t.Errorf("cached document count = %d, want 3", stored.DocumentCount)
	}
}

func TestOpenProject_RestoresLastDocument(t *testing.T) {
	s, _, st := testSession(t)
	root := projectFixture(t)
	guide := filepath.Join(root, "guide.md")

	project, err := s.OpenProject(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SaveProjectState(project.UUID, store.ProjectState{LastDocumentPath: guide}); err != nil {
		t.Fatal(err)
	}

	// Reopen; the saved path must win over the display-order default.
	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	sel, ok := s.Selected()
	if !ok || sel.Path != guide {
		t.Errorf("selected %q, want %q", sel.Path, guide)
	}
}

func TestReconcile_ModifiedSelectedReloadsContent(t *testing.T) {
	s, source, _ := testSession(t)
	root := projectFixture(t)
	guide := filepath.Join(root, "guide.md")

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if !s.Select(guide) {
		t.Fatal("select failed")
	}

	before := s.Documents()
	writeFile(t, guide, "# Guide\nrewritten body")
	source.send(watcher.Modified, guide)

	eventually(t, func() bool {
		sel, ok := s.Selected()
		return ok && sel.Body == "# Guide\nrewritten body"
	}, "selected document not reloaded")

	// Unrelated entries stay untouched.
	after := s.Documents()
	for i := range after {
		if after[i].Path == guide {
			continue
		}
		if after[i].Body != before[i].Body {
			t.Errorf("unrelated entry %q changed", after[i].Path)
		}
	}
}

func TestReconcile_ModifiedReindexesStore(t *testing.T) {
	s, source, st := testSession(t)
	root := projectFixture(t)
	guide := filepath.Join(root, "guide.md")

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}

	writeFile(t, guide, "# Guide\nfresh words")
	source.send(watcher.Modified, guide)

	eventually(t, func() bool {
		doc, err := st.DocumentByPath(guide)
		return err == nil && doc.Content == "# Guide\nfresh words"
	}, "store not reindexed after modify")
}

func TestReconcile_DeletedSelectedFallsBack(t *testing.T) {
	s, source, st := testSession(t)
	root := projectFixture(t)
	guide := filepath.Join(root, "guide.md")

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if !s.Select(guide) {
		t.Fatal("select failed")
	}

	if err := os.Remove(guide); err != nil {
		t.Fatal(err)
	}
	source.send(watcher.Deleted, guide)

	eventually(t, func() bool {
		sel, ok := s.Selected()
		return ok && sel.Path != guide
	}, "selection still on deleted document")

	if got := len(s.Documents()); got != 2 {
		t.Errorf("documents = %d, want 2", got)
	}
	eventually(t, func() bool {
		_, err := st.DocumentByPath(guide)
		return err != nil
	}, "store row survived delete")
}

func TestReconcile_DeleteLastDocumentClearsSelection(t *testing.T) {
	s, source, _ := testSession(t)
	root := t.TempDir()
	only := filepath.Join(root, "only.md")
	writeFile(t, only, "# Only")

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(only); err != nil {
		t.Fatal(err)
	}
	source.send(watcher.Deleted, only)

	eventually(t, func() bool {
		_, ok := s.Selected()
		return !ok
	}, "selection not cleared")
	if got := len(s.Documents()); got != 0 {
		t.Errorf("documents = %d, want 0", got)
	}
}

func TestReconcile_CreatedTriggersRescanPreservingSelection(t *testing.T) {
	s, source, _ := testSession(t)
	root := projectFixture(t)
	guide := filepath.Join(root, "guide.md")

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if !s.Select(guide) {
		t.Fatal("select failed")
	}

	writeFile(t, filepath.Join(root, "new.md"), "# New")
	source.send(watcher.Created, filepath.Join(root, "new.md"))

	eventually(t, func() bool {
		return len(s.Documents()) == 4
	}, "rescan did not pick up created file")

	sel, ok := s.Selected()
	if !ok || sel.Path != guide {
		t.Errorf("selection not preserved across rescan: %q", sel.Path)
	}
}

func TestReconcile_RescanNeededRebuildsTree(t *testing.T) {
	s, source, _ := testSession(t)
	root := projectFixture(t)

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "sub", "more.md"), "# More")
	source.send(watcher.RescanNeeded, "")

	eventually(t, func() bool {
		return len(s.Documents()) == 4
	}, "rescan signal not honored")
}

func TestNavigation_NextAndPrevious(t *testing.T) {
	s, _, _ := testSession(t)
	root := projectFixture(t)

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	docs := s.Documents()
	if len(docs) != 3 {
		t.Fatalf("documents = %d", len(docs))
	}
	if !s.Select(docs[0].Path) {
		t.Fatal("select failed")
	}

	next, ok := s.SelectNext()
	if !ok || next.Path != docs[1].Path {
		t.Errorf("next = %q, want %q", next.Path, docs[1].Path)
	}
	prev, ok := s.SelectPrevious()
	if !ok || prev.Path != docs[0].Path {
		t.Errorf("previous = %q, want %q", prev.Path, docs[0].Path)
	}
	if _, ok := s.SelectPrevious(); ok {
		t.Error("previous past start should fail")
	}

	s.Select(docs[2].Path)
	if _, ok := s.SelectNext(); ok {
		t.Error("next past end should fail")
	}
}

func TestResolveLink_RelativeToCurrentDocument(t *testing.T) {
	s, _, _ := testSession(t)
	root := projectFixture(t)
	writeFile(t, filepath.Join(root, "sub", "other.md"), "# Other")

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if !s.Select(filepath.Join(root, "sub", "deep.md")) {
		t.Fatal("select failed")
	}

	// Sibling reference with the default extension appended.
	doc, ok := s.ResolveLink("other")
	if !ok || doc.Path != filepath.Join(root, "sub", "other.md") {
		t.Errorf("resolve sibling = %q, ok=%v", doc.Path, ok)
	}

	// Parent traversal normalizes.
	doc, ok = s.ResolveLink("../guide.md")
	if !ok || doc.Path != filepath.Join(root, "guide.md") {
		t.Errorf("resolve parent = %q, ok=%v", doc.Path, ok)
	}
}

func TestResolveLink_RootRelativeAndEscape(t *testing.T) {
	s, _, _ := testSession(t)
	root := projectFixture(t)

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	s.Select(filepath.Join(root, "sub", "deep.md"))

	doc, ok := s.ResolveLink("/guide.md")
	if !ok || doc.Path != filepath.Join(root, "guide.md") {
		t.Errorf("root-relative = %q, ok=%v", doc.Path, ok)
	}

	if _, ok := s.ResolveLink("../../outside.md"); ok {
		t.Error("reference escaping the project root must not resolve")
	}

	// The successful resolutions above moved the selection; parent-relative
	// references need it back on the nested document.
	s.Select(filepath.Join(root, "sub", "deep.md"))
	doc, ok = s.ResolveLink("../guide.md#section")
	if !ok || doc.Path != filepath.Join(root, "guide.md") {
		t.Errorf("fragment strip = %q, ok=%v", doc.Path, ok)
	}
}

func TestViewState_DebouncedSave(t *testing.T) {
	s, _, st := testSession(t)
	root := projectFixture(t)
	guide := filepath.Join(root, "guide.md")

	project, err := s.OpenProject(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	s.Select(guide)

	eventually(t, func() bool {
		state, err := st.LoadProjectState(project.UUID)
		return err == nil && state.LastDocumentPath == guide
	}, "debounced state save did not land")
}

func TestListeners_ReceiveChanges(t *testing.T) {
	s, source, _ := testSession(t)
	root := projectFixture(t)

	got := make(chan Change, 32)
	s.Subscribe(func(c Change) { got <- c })

	if _, err := s.OpenProject(context.Background(), root); err != nil {
		t.Fatal(err)
	}

	seen := map[ChangeKind]bool{}
	collect := func(until ChangeKind) {
		deadline := time.After(5 * time.Second)
		for {
			select {
			case c := <-got:
				seen[c.Kind] = true
				if c.Kind == until {
					return
				}
			case <-deadline:
				t.Fatalf("missing change %v, saw %v", until, seen)
			}
		}
	}
	collect(ProjectOpened)

	writeFile(t, filepath.Join(root, "new.md"), "# New")
	source.send(watcher.Created, filepath.Join(root, "new.md"))
	collect(TreeReplaced)
}

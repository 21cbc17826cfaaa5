package session

import (
	"path/filepath"
	"strings"

	"github.com/halvard/lectern/internal/models"
)

// SelectNext moves the selection one step forward in the flat list.
// Without a selection it picks the first document. Returns false when the
// list is empty or the selection is already at the end.
func (s *Session) SelectNext() (models.Document, bool) {
	var (
		doc models.Document
		ok  bool
	)
	s.do(func() { doc, ok = s.step(1) })
	return doc, ok
}

// SelectPrevious moves the selection one step back in the flat list.
func (s *Session) SelectPrevious() (models.Document, bool) {
	var (
		doc models.Document
		ok  bool
	)
	s.do(func() { doc, ok = s.step(-1) })
	return doc, ok
}

func (s *Session) step(delta int) (models.Document, bool) {
	if len(s.documents) == 0 {
		return models.Document{}, false
	}
	if s.selected == nil {
		s.setSelected(&s.documents[0])
		return *s.selected, true
	}

	idx := -1
	for i := range s.documents {
		if s.documents[i].Path == s.selected.Path {
			idx = i
			break
		}
	}
	next := idx + delta
	if idx < 0 || next < 0 || next >= len(s.documents) {
		return models.Document{}, false
	}
	s.setSelected(&s.documents[next])
	return *s.selected, true
}

// ResolveLink maps a document link reference to a flat-list entry and
// selects it. References resolve against the current document's directory;
// references starting with "/" resolve against the project root. A missing
// extension defaults to ".md" and "."/".." segments are normalized before
// matching.
func (s *Session) ResolveLink(ref string) (models.Document, bool) {
	var (
		doc models.Document
		ok  bool
	)
	s.do(func() { doc, ok = s.resolveLink(ref) })
	return doc, ok
}

func (s *Session) resolveLink(ref string) (models.Document, bool) {
	if s.project == nil || ref == "" {
		return models.Document{}, false
	}

	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return models.Document{}, false
	}
	if filepath.Ext(ref) == "" {
		ref += ".md"
	}

	var abs string
	switch {
	case strings.HasPrefix(ref, "/"):
		abs = filepath.Join(s.project.Path, ref)
	case s.selected != nil:
		abs = filepath.Join(s.selected.Dir(), ref)
	default:
		abs = filepath.Join(s.project.Path, ref)
	}
	abs = filepath.Clean(abs)

	// Join already cleaned the path; reject anything that escaped the root.
	if !strings.HasPrefix(abs, filepath.Clean(s.project.Path)+string(filepath.Separator)) {
		return models.Document{}, false
	}

	doc := s.documentAt(abs)
	if doc == nil {
		return models.Document{}, false
	}
	s.setSelected(doc)
	return *doc, true
}

// Package watcher delivers filesystem change notifications for a project
// root as an ordered event stream, backed by fsnotify.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind classifies a change event.
type Kind int

const (
	Created Kind = iota
	Modified
	Deleted
	Renamed
	// RescanNeeded signals that the watcher cannot describe the change as a
	// single file event (directory-level change, dropped events, watch
	// errors) and the consumer must re-enumerate.
	RescanNeeded
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	case RescanNeeded:
		return "rescan"
	}
	return "unknown"
}

// Event is one filesystem change. Path is absolute and empty for
// RescanNeeded events.
type Event struct {
	Path string
	Kind Kind
	At   time.Time
}

// Source is the change-notification contract the reconciler consumes.
type Source interface {
	// Watch starts delivery of events for root until ctx is cancelled.
	// Events are delivered in arrival order; the channel closes on stop.
	Watch(ctx context.Context, root string) (<-chan Event, error)
}

// FSNotify implements Source with a recursive fsnotify watcher. Only .md
// file events pass the filter; structural directory changes surface as
// RescanNeeded regardless of extension.
type FSNotify struct {
	logger *slog.Logger
}

// NewFSNotify creates a filesystem event source.
func NewFSNotify(logger *slog.Logger) *FSNotify {
	return &FSNotify{logger: logger}
}

// Watch starts an fsnotify watcher on root and every subdirectory. New
// directories created at runtime are added to the watch list and reported
// as a rescan, since their contents may have landed before the watch did.
func (f *FSNotify) Watch(ctx context.Context, root string) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watched := make(map[string]struct{})
	if err := addDirsRecursive(w, root, watched); err != nil {
		w.Close()
		return nil, err
	}

	out := make(chan Event, 64)
	go f.pump(ctx, w, root, watched, out)
	return out, nil
}

func (f *FSNotify) pump(ctx context.Context, w *fsnotify.Watcher, root string, watched map[string]struct{}, out chan<- Event) {
	defer close(out)
	defer w.Close()

	f.logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("watcher: stopped", slog.String("root", root))
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if e, deliver := f.translate(w, watched, ev); deliver {
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("watcher: error, requesting rescan", slog.String("error", watchErr.Error()))
			select {
			case out <- Event{Kind: RescanNeeded, At: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// translate maps one fsnotify event onto the external contract. watched is
// the set of directories under watch, owned by the pump goroutine.
func (f *FSNotify) translate(w *fsnotify.Watcher, watched map[string]struct{}, ev fsnotify.Event) (Event, bool) {
	now := time.Now()

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if addErr := addDirsRecursive(w, ev.Name, watched); addErr != nil {
				f.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", addErr.Error()))
			}
			return Event{Kind: RescanNeeded, At: now}, true
		}
	}

	// A removed or renamed directory cannot be stat'ed anymore; recognize it
	// by membership in the watch set. Its contents went with it.
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, ok := watched[ev.Name]; ok {
			delete(watched, ev.Name)
			prefix := ev.Name + string(filepath.Separator)
			for p := range watched {
				if strings.HasPrefix(p, prefix) {
					delete(watched, p)
				}
			}
			return Event{Kind: RescanNeeded, At: now}, true
		}
	}

	if !isMarkdown(ev.Name) {
		return Event{}, false
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		return Event{Path: ev.Name, Kind: Created, At: now}, true
	case ev.Op&fsnotify.Write != 0:
		return Event{Path: ev.Name, Kind: Modified, At: now}, true
	case ev.Op&fsnotify.Remove != 0:
		return Event{Path: ev.Name, Kind: Deleted, At: now}, true
	case ev.Op&fsnotify.Rename != 0:
		// fsnotify reports the old path only; the new path arrives as a
		// separate Create if it stays inside the watched tree.
		return Event{Path: ev.Name, Kind: Renamed, At: now}, true
	}
	return Event{}, false
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}

// addDirsRecursive adds root and all its subdirectories to the watcher and
// records them in watched. Unreadable subtrees are skipped rather than
// failing the whole watch.
func addDirsRecursive(w *fsnotify.Watcher, root string, watched map[string]struct{}) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && strings.HasPrefix(name, ".") {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return err
		}
		watched[path] = struct{}{}
		return nil
	})
}

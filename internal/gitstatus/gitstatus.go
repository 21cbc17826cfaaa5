// Package gitstatus reports version-control state for a project directory
// by shelling out to git. A directory that is not a repository, or a
// missing git binary, degrades to an empty summary rather than an error.
package gitstatus

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// FileStatus classifies one changed path.
type FileStatus string

const (
	StatusModified  FileStatus = "modified"
	StatusAdded     FileStatus = "added"
	StatusDeleted   FileStatus = "deleted"
	StatusRenamed   FileStatus = "renamed"
	StatusUntracked FileStatus = "untracked"
)

// Change is one entry from the working-tree status. OldPath is set only
// for renames.
type Change struct {
	Status  FileStatus `json:"status"`
	Path    string     `json:"path"`
	OldPath string     `json:"old_path,omitempty"`
}

// Summary is the full status of a repository at a point in time.
type Summary struct {
	IsRepository bool     `json:"is_repository"`
	Branch       string   `json:"branch,omitempty"`
	HasChanges   bool     `json:"has_changes"`
	Changes      []Change `json:"changes"`
}

// Provider runs git with a bounded timeout per invocation.
type Provider struct {
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithTimeout overrides the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// New creates a git status provider.
func New(logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{timeout: 5 * time.Second, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Summary gathers branch, dirtiness and changed files for repoPath. Any
// git failure yields the zero "not a repository" summary.
func (p *Provider) Summary(ctx context.Context, repoPath string) Summary {
	if !p.isRepository(ctx, repoPath) {
		return Summary{Changes: []Change{}}
	}

	s := Summary{IsRepository: true, Changes: []Change{}}
	if branch, err := p.run(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		s.Branch = strings.TrimSpace(branch)
	}

	out, err := p.run(ctx, repoPath, "status", "--porcelain")
	if err != nil {
		p.logger.Warn("gitstatus: status failed",
			slog.String("repo", repoPath),
			slog.String("error", err.Error()))
		return s
	}
	s.Changes = ParsePorcelain(out)
	s.HasChanges = len(s.Changes) > 0
	return s
}

// Diff returns the unified diff for one path relative to the repository
// root. Untracked files get a synthesized all-added diff.
func (p *Provider) Diff(ctx context.Context, repoPath, relPath string) (string, error) {
	out, err := p.run(ctx, repoPath, "diff", "HEAD", "--", relPath)
	if err != nil {
		return "", fmt.Errorf("gitstatus: diff: %w", err)
	}
	if strings.TrimSpace(out) != "" {
		return out, nil
	}

	// No tracked diff; an untracked file still deserves one.
	status, err := p.run(ctx, repoPath, "status", "--porcelain", "--", relPath)
	if err != nil || !strings.HasPrefix(strings.TrimSpace(status), "??") {
		return out, nil
	}
	return syntheticAddDiff(repoPath, relPath)
}

func (p *Provider) isRepository(ctx context.Context, repoPath string) bool {
	out, err := p.run(ctx, repoPath, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

func (p *Provider) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "git", append([]string{"-C", repoPath}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// ParsePorcelain parses `git status --porcelain` output into changes.
// Rename lines carry "old -> new"; everything else is a single path.
func ParsePorcelain(out string) []Change {
	changes := []Change{}
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])

		c := Change{Path: unquotePath(path)}
		switch {
		case code == "??":
			c.Status = StatusUntracked
		case code[0] == 'R' || code[1] == 'R':
			c.Status = StatusRenamed
			if old, renamed, found := strings.Cut(path, " -> "); found {
				c.OldPath = unquotePath(strings.TrimSpace(old))
				c.Path = unquotePath(strings.TrimSpace(renamed))
			}
		case code[0] == 'A' || code[1] == 'A':
			c.Status = StatusAdded
		case code[0] == 'D' || code[1] == 'D':
			c.Status = StatusDeleted
		case code[0] == 'M' || code[1] == 'M':
			c.Status = StatusModified
		default:
			continue
		}
		changes = append(changes, c)
	}
	return changes
}

// unquotePath strips the quoting git applies to paths with special bytes.
func unquotePath(path string) string {
	if len(path) >= 2 && path[0] == '"' && path[len(path)-1] == '"' {
		return strings.ReplaceAll(path[1:len(path)-1], `\"`, `"`)
	}
	return path
}

// syntheticAddDiff builds an all-added unified diff for an untracked file.
func syntheticAddDiff(repoPath, relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, relPath))
	if err != nil {
		return "", fmt.Errorf("gitstatus: read untracked file: %w", err)
	}

	content := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(content, "\n")
	if content == "" {
		lines = nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- /dev/null\n")
	fmt.Fprintf(&b, "+++ b/%s\n", relPath)
	fmt.Fprintf(&b, "@@ -0,0 +1,%d @@\n", len(lines))
	for _, line := range lines {
		b.WriteString("+")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

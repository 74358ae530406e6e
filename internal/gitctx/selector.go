package gitctx

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/fulmenhq/hookrun/pkg/ignore"
	"github.com/fulmenhq/hookrun/pkg/safeio"
)

// ErrVcsUnavailable signals that the version-control collaborator cannot
// be queried at all (not a repository, git missing). It is fatal: no hook
// runs without a file set.
type ErrVcsUnavailable struct {
	Dir   string
	Cause error
}

func (e *ErrVcsUnavailable) Error() string {
	return fmt.Sprintf("version control unavailable in %s: %v", e.Dir, e.Cause)
}

func (e *ErrVcsUnavailable) Unwrap() error { return e.Cause }

// ScopeKind selects which slice of the working tree a run considers.
type ScopeKind string

const (
	ScopeStaged       ScopeKind = "staged"
	ScopeChangedSince ScopeKind = "changed-since-ref"
	ScopeAllTracked   ScopeKind = "all-tracked"
	ScopeExplicit     ScopeKind = "explicit"
)

// Scope is a file-selection request: a kind plus its parameter.
type Scope struct {
	Kind  ScopeKind
	Ref   string   // for ScopeChangedSince
	Files []string // for ScopeExplicit
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeChangedSince:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Ref)
	default:
		return string(s.Kind)
	}
}

// Selector queries git for the candidate file set of a run. Read-only:
// the only mutating entry point is StageFiles, used after auto-fix
// convergence.
type Selector struct {
	dir     string
	matcher *ignore.Matcher
}

// NewSelector creates a selector rooted at dir. The ignore matcher is
// optional; when present it filters explicit file lists and tracked-file
// walks the same way the rest of the toolchain would.
func NewSelector(dir string, matcher *ignore.Matcher) *Selector {
	return &Selector{dir: dir, matcher: matcher}
}

// Select resolves the scope into a sorted, metadata-annotated FileSet.
func (s *Selector) Select(scope Scope) (*FileSet, error) {
	var paths []string
	var err error

	switch scope.Kind {
	case ScopeStaged:
		paths, err = s.stagedPaths()
	case ScopeChangedSince:
		paths, err = s.changedSince(scope.Ref)
	case ScopeAllTracked:
		paths, err = s.trackedPaths()
	case ScopeExplicit:
		paths, err = s.explicitPaths(scope.Files)
	default:
		return nil, fmt.Errorf("unknown scope kind %q", scope.Kind)
	}
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		p = filepath.ToSlash(p)
		if s.matcher != nil && s.matcher.IsIgnored(p) {
			continue
		}
		files = append(files, s.describe(p))
	}
	return NewFileSet(files), nil
}

// StageFiles re-adds paths to the index. Used after a fixer run has
// converged so the commit picks up the fixed content.
func (s *Selector) StageFiles(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	repo, err := s.open()
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	for _, p := range paths {
		if _, err := wt.Add(filepath.ToSlash(p)); err != nil {
			// go-git's Add is stricter than the CLI about some index
			// states; fall back before giving up.
			if cliErr := s.runGitErr("add", "--", p); cliErr != nil {
				return fmt.Errorf("failed to stage %s: %w", p, err)
			}
		}
	}
	return nil
}

func (s *Selector) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(s.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	return repo, nil
}

// stagedPaths lists files with staged (index) changes, excluding deletions.
func (s *Selector) stagedPaths() ([]string, error) {
	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	st, err := wt.Status()
	if err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	var paths []string
	for path, fst := range st {
		switch fst.Staging {
		case git.Added, git.Modified, git.Renamed, git.Copied:
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// trackedPaths lists every file in HEAD's tree. Empty repositories (no
// HEAD yet) fall back to the CLI index listing.
func (s *Selector) trackedPaths() ([]string, error) {
	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return s.lsFilesCLI()
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	var paths []string
	walker := tree.Files()
	defer walker.Close()
	err = walker.ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	return paths, nil
}

// changedSince lists files that differ between ref and the working tree,
// excluding deletions. Uses the CLI because triple-dot/merge-base diffs
// are awkward through go-git.
func (s *Selector) changedSince(ref string) ([]string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	if !s.isRepoCLI() {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: fmt.Errorf("not a git repository")}
	}
	out, err := s.runGit("diff", "--name-only", "--diff-filter=ACMR", ref)
	if err != nil {
		return nil, fmt.Errorf("failed to diff against %s: %w", ref, err)
	}
	return splitLines(out), nil
}

func (s *Selector) explicitPaths(requested []string) ([]string, error) {
	var paths []string
	for _, raw := range requested {
		p, err := safeio.CleanUserPath(raw)
		if err != nil {
			continue // traversal attempts are dropped like nonexistent files
		}
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(s.dir, p)
		}
		if _, err := os.Stat(abs); err != nil {
			continue // nonexistent files are silently dropped, matching git behavior
		}
		if rel, err := filepath.Rel(s.dir, abs); err == nil {
			paths = append(paths, rel)
		} else {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (s *Selector) describe(path string) File {
	f := File{Path: path, Class: ClassOf(path)}
	if info, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(path))); err == nil {
		f.Size = info.Size()
		f.Executable = info.Mode()&0o111 != 0
	}
	return f
}

func (s *Selector) lsFilesCLI() ([]string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	out, err := s.runGit("ls-files")
	if err != nil {
		return nil, &ErrVcsUnavailable{Dir: s.dir, Cause: err}
	}
	return splitLines(out), nil
}

func (s *Selector) isRepoCLI() bool {
	out, err := s.runGit("rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

func (s *Selector) runGit(args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = s.dir
	return cmd.Output()
}

func (s *Selector) runGitErr(args ...string) error {
	_, err := s.runGit(args...)
	return err
}

func splitLines(data []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

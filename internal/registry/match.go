/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package registry

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/hookrun/internal/gitctx"
)

// HooksFor returns the hooks declared for stage paired with their matched
// file subsets, in declaration order. always_run hooks fire with an empty
// subset; for everything else the subset is the files satisfying the
// hook's predicates.
func (r *Registry) HooksFor(stage Stage, fs *gitctx.FileSet) []Match {
	var matches []Match
	for i := range r.Hooks {
		hook := &r.Hooks[i]
		if !hook.RunsIn(stage) {
			continue
		}
		if hook.AlwaysRun {
			matches = append(matches, Match{Hook: hook, Files: &gitctx.FileSet{}})
			continue
		}
		matches = append(matches, Match{Hook: hook, Files: r.matchedSubset(hook, fs)})
	}
	return matches
}

// matchedSubset filters the run's file set down to the hook's view:
// type tags, files pattern, and exclusion all have to agree.
func (r *Registry) matchedSubset(hook *Hook, fs *gitctx.FileSet) *gitctx.FileSet {
	var files []gitctx.File
	for _, f := range fs.Files {
		if FileMatches(hook, f) {
			files = append(files, f)
		}
	}
	return &gitctx.FileSet{Files: files}
}

// FileMatches applies a hook's file predicates to a single file.
func FileMatches(hook *Hook, f gitctx.File) bool {
	for _, tag := range hook.Types {
		if !f.HasTag(tag) {
			return false
		}
	}
	if hook.Files != "" {
		ok, err := doublestar.Match(hook.Files, f.Path)
		if err != nil || !ok {
			return false
		}
	}
	if hook.Exclude != "" {
		if excluded, err := doublestar.Match(hook.Exclude, f.Path); err == nil && excluded {
			return false
		}
	}
	return true
}

// TypesOverlap reports whether two hooks could see the same kinds of
// files, which is what makes one "downstream" of the other for
// re-verification after a fix.
func TypesOverlap(a, b *Hook) bool {
	// A hook with no type filter overlaps everything
	if len(a.Types) == 0 || len(b.Types) == 0 {
		return true
	}
	for _, ta := range a.Types {
		for _, tb := range b.Types {
			if ta == tb {
				return true
			}
		}
	}
	return false
}

/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package registry

import (
	"fmt"

	"github.com/fulmenhq/hookrun/internal/gitctx"
)

// Stage is a named execution phase grouping hooks that run together.
type Stage string

const (
	StagePreCommit    Stage = "pre-commit"
	StagePrePush      Stage = "pre-push"
	StageCommitMsg    Stage = "commit-msg"
	StagePostCheckout Stage = "post-checkout"
	StagePostCommit   Stage = "post-commit"
	StageManual       Stage = "manual"
)

var knownStages = map[Stage]bool{
	StagePreCommit:    true,
	StagePrePush:      true,
	StageCommitMsg:    true,
	StagePostCheckout: true,
	StagePostCommit:   true,
	StageManual:       true,
}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !knownStages[stage] {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return stage, nil
}

// Hook is one declared check or fixer. Immutable once loaded; the
// registry owns the canonical copies.
type Hook struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Entry           string   `json:"entry"`
	Args            []string `json:"args,omitempty"`
	Language        string   `json:"language"` // system | script | python | node | go
	LanguageVersion string   `json:"language_version,omitempty"`
	AdditionalDeps  []string `json:"additional_dependencies,omitempty"`
	Files           string   `json:"files,omitempty"`   // doublestar glob; empty = no path filter
	Exclude         string   `json:"exclude,omitempty"` // doublestar glob
	Types           []string `json:"types,omitempty"`   // type tags; a file must carry all of them
	PassFilenames   bool     `json:"pass_filenames"`
	AlwaysRun       bool     `json:"always_run"`
	Fixer           bool     `json:"fixer"` // declared mutator; scheduled first and serialized on overlap
	Verbose         bool     `json:"verbose"`
	Stages          []Stage  `json:"stages"`
	Source          string   `json:"source"` // repo URL or "local"
	Rev             string   `json:"rev,omitempty"`
}

// RunsIn reports whether the hook is declared for the given stage.
func (h *Hook) RunsIn(stage Stage) bool {
	for _, s := range h.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Display returns the name shown in reports, falling back to the id.
func (h *Hook) Display() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

// Match pairs a hook with the file subset it should see in a stage.
type Match struct {
	Hook  *Hook
	Files *gitctx.FileSet
}

// Registry holds the parsed, validated hook definitions in declaration
// order. It is an explicit value passed to the engine; there is no
// process-wide registry.
type Registry struct {
	FailFast bool
	Hooks    []Hook
}

// HookByID returns the hook with the given id, or nil.
func (r *Registry) HookByID(id string) *Hook {
	for i := range r.Hooks {
		if r.Hooks[i].ID == id {
			return &r.Hooks[i]
		}
	}
	return nil
}

// ErrConfigInvalid is a fatal manifest error: schema violation, bad
// pattern, unknown stage. Nothing executes when the manifest is invalid.
type ErrConfigInvalid struct {
	Path   string // manifest file path
	Field  string // dotted field reference, when known
	Reason string
}

func (e *ErrConfigInvalid) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration %s: %s: %s", e.Path, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Path, e.Reason)
}

// ErrDuplicateHookID reports two definitions sharing an id within the
// same stage.
type ErrDuplicateHookID struct {
	ID    string
	Stage Stage
}

func (e *ErrDuplicateHookID) Error() string {
	return fmt.Sprintf("duplicate hook id %q in stage %s", e.ID, e.Stage)
}

/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package executor

import (
	"time"

	"github.com/fulmenhq/hookrun/internal/envmgr"
	"github.com/fulmenhq/hookrun/internal/gitctx"
	"github.com/fulmenhq/hookrun/internal/registry"
)

// Status is the outcome classification of one hook invocation.
type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"   // non-zero exit, no file modification
	StatusErrored  Status = "errored"  // system error: timeout, spawn failure, env setup
	StatusSkipped  Status = "skipped"  // nothing to do, or skipped by policy
	StatusModified Status = "modified" // matched files changed; demands re-verification
)

// Cause refines errored/skipped outcomes for reporting.
type Cause string

const (
	CauseNone         Cause = ""
	CauseTimeout      Cause = "timeout"
	CauseCancelled    Cause = "cancelled"
	CauseSpawn        Cause = "spawn-failure"
	CauseEnvSetup     Cause = "environment-setup"
	CauseFixLoop      Cause = "fix-loop-did-not-converge"
	CauseNoFiles      Cause = "no-matching-files"
	CauseSkipRequest  Cause = "skip-requested"
	CauseFailFast     Cause = "fail-fast"
	CauseStageAborted Cause = "stage-aborted"
)

// Invocation is one concrete execution of a hook: definition, target
// files, environment. A value object, never reused.
type Invocation struct {
	Hook  *registry.Hook
	Files *gitctx.FileSet
	Env   *envmgr.Environment
}

// Outcome is what an invocation produced.
type Outcome struct {
	HookID   string        `json:"hook_id"`
	Status   Status        `json:"status"`
	Cause    Cause         `json:"cause,omitempty"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
	Touched  []string      `json:"touched,omitempty"` // files the hook modified
}

// Ok reports whether the outcome counts toward overall success on its
// own (modified outcomes need re-verification first).
func (o Outcome) Ok() bool {
	return o.Status == StatusPassed || o.Status == StatusSkipped
}

func skippedOutcome(hookID string, cause Cause) Outcome {
	return Outcome{HookID: hookID, Status: StatusSkipped, Cause: cause}
}

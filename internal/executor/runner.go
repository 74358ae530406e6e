/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package executor runs hook invocations as isolated subprocesses with
// captured output, wall-clock ceilings, and working-tree modification
// detection.
package executor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/fulmenhq/hookrun/pkg/logger"
	"github.com/fulmenhq/hookrun/pkg/osutil"
	"github.com/fulmenhq/hookrun/pkg/safeio"
)

// Runner executes single invocations. Dir is the repo root every hook
// runs in; Timeout is the per-invocation ceiling (0 means none).
type Runner struct {
	Dir     string
	Timeout time.Duration
}

// NewRunner creates a runner rooted at dir.
func NewRunner(dir string, timeout time.Duration) *Runner {
	return &Runner{Dir: dir, Timeout: timeout}
}

// Run executes one invocation and classifies the result. The invariant
// that a pass_filenames hook with an empty subset never spawns lives
// here: the skip happens before any process is created.
func (r *Runner) Run(ctx context.Context, inv Invocation) Outcome {
	hook := inv.Hook
	if inv.Files.Len() == 0 && !hook.AlwaysRun {
		return skippedOutcome(hook.ID, CauseNoFiles)
	}
	if err := ctx.Err(); err != nil {
		return skippedOutcome(hook.ID, CauseCancelled)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append([]string{}, hook.Args...)
	if hook.PassFilenames {
		args = append(args, inv.Files.Paths()...)
	}

	// #nosec G204 -- hook commands come from the checked-in manifest,
	// same trust level as a Makefile.
	cmd := exec.CommandContext(runCtx, hook.Entry, args...)
	cmd.Dir = r.Dir
	cmd.Env = inv.Env.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	osutil.SetProcessGroup(cmd)
	osutil.SetProcessGroupKill(cmd)

	before := r.snapshot(inv.Files.Paths())

	logger.Debug("invoking hook",
		logger.String("hook", hook.ID),
		logger.Int("files", inv.Files.Len()))
	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	outcome := Outcome{
		HookID:   hook.ID,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		outcome.Status = StatusErrored
		outcome.Cause = CauseTimeout
		return outcome
	case errors.Is(ctx.Err(), context.Canceled):
		outcome.Status = StatusSkipped
		outcome.Cause = CauseCancelled
		return outcome
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		outcome.ExitCode = 0
	case errors.As(runErr, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
	default:
		// The process never ran: missing entry, permission problem
		outcome.Status = StatusErrored
		outcome.Cause = CauseSpawn
		outcome.Stderr = runErr.Error()
		return outcome
	}

	// A modification to matched files outranks the exit code: fixers
	// legitimately exit non-zero after rewriting, and either way the
	// new content is unverified.
	if touched := r.diff(before); len(touched) > 0 {
		outcome.Status = StatusModified
		outcome.Touched = touched
		return outcome
	}

	if outcome.ExitCode == 0 {
		outcome.Status = StatusPassed
	} else {
		outcome.Status = StatusFailed
	}
	return outcome
}

// fileStamp is one matched file's pre-invocation fingerprint. Size and
// mtime gate the fast path; the content hash is the ground truth.
type fileStamp struct {
	sum     [sha256.Size]byte
	size    int64
	modTime time.Time
}

// snapshot records a fingerprint per matched file so modification can
// be detected regardless of what the hook claims via its exit code.
func (r *Runner) snapshot(paths []string) map[string]fileStamp {
	snap := make(map[string]fileStamp, len(paths))
	for _, p := range paths {
		abs := filepath.Join(r.Dir, filepath.FromSlash(p))
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}
		data, err := safeio.ReadFileContained(r.Dir, abs)
		if err != nil {
			continue
		}
		snap[p] = fileStamp{sum: sha256.Sum256(data), size: info.Size(), modTime: info.ModTime()}
	}
	return snap
}

// diff returns the matched files whose content changed since the
// snapshot, sorted. Files with unchanged size and mtime skip the
// re-hash.
func (r *Runner) diff(before map[string]fileStamp) []string {
	var touched []string
	for p, stamp := range before {
		abs := filepath.Join(r.Dir, filepath.FromSlash(p))
		info, err := os.Stat(abs)
		if err != nil {
			touched = append(touched, p) // deleted or unreadable counts as modified
			continue
		}
		if info.Size() == stamp.size && info.ModTime().Equal(stamp.modTime) {
			continue
		}
		data, err := safeio.ReadFileContained(r.Dir, abs)
		if err != nil {
			touched = append(touched, p)
			continue
		}
		if sha256.Sum256(data) != stamp.sum {
			touched = append(touched, p)
		}
	}
	sort.Strings(touched)
	return touched
}

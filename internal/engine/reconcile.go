/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package engine

import (
	"context"

	"github.com/fulmenhq/hookrun/internal/executor"
	"github.com/fulmenhq/hookrun/internal/gitctx"
	"github.com/fulmenhq/hookrun/internal/registry"
	"github.com/fulmenhq/hookrun/pkg/logger"
)

// loopState is the explicit state of the auto-fix reconciliation loop.
type loopState int

const (
	loopRunning loopState = iota
	loopConverged
	loopBoundExceeded
	loopCancelled
)

func (s loopState) String() string {
	switch s {
	case loopRunning:
		return "running"
	case loopConverged:
		return "converged"
	case loopBoundExceeded:
		return "bound-exceeded"
	case loopCancelled:
		return "cancelled"
	}
	return "unknown"
}

// reconciler drives the bounded re-verification cycle after fixers
// mutate files. The engine never reports success on unverified post-fix
// content: every touched file is re-checked by the hook that touched it
// and by every type-overlapping downstream hook.
type reconciler struct {
	engine  *Engine
	pool    *executor.Pool
	limit   int
	touched []string // all files touched across reconciliation rounds
}

// run iterates until no hook reports modified, the bound is hit, or the
// run is cancelled. touched is the file list mutated by the initial
// batch; states are updated in place.
func (r *reconciler) run(ctx context.Context, states []*hookState, touched []string) loopState {
	state := loopRunning
	for iteration := 1; state == loopRunning; iteration++ {
		if ctx.Err() != nil {
			state = loopCancelled
			break
		}

		modified := modifiedStates(states)
		if len(modified) == 0 {
			state = loopConverged
			break
		}
		if iteration > r.limit {
			logger.Error("fix loop did not converge",
				logger.Int("iterations", r.limit),
				logger.Int("unstable_hooks", len(modified)))
			state = loopBoundExceeded
			break
		}

		logger.Info("re-verifying fixed files",
			logger.Int("iteration", iteration),
			logger.Int("files", len(touched)))

		batch, invs := r.reverifyBatch(states, modified, touched)
		outcomes := r.pool.RunBatch(ctx, r.engine.runner, invs)

		var nextTouched []string
		for i, out := range outcomes {
			batch[i].record(out, r.engine.cfg.OutputLimit)
			nextTouched = append(nextTouched, out.Touched...)
		}
		r.touched = append(r.touched, touched...)
		touched = dedupe(nextTouched)
	}
	return state
}

// reverifyBatch assembles the re-run invocations for one round: each
// hook still in modified status runs on exactly the files it touched,
// and every downstream hook with overlapping types re-validates the
// touched subset. Declaration order is preserved.
func (r *reconciler) reverifyBatch(states []*hookState, modified []*hookState, touched []string) ([]*hookState, []executor.Invocation) {
	var batch []*hookState
	var invs []executor.Invocation
	for _, st := range states {
		if !st.eligibleForReverify() {
			continue
		}

		var subset *gitctx.FileSet
		switch {
		case st.status == executor.StatusModified:
			subset = st.files.Restrict(touched)
		case r.isDownstream(st, modified):
			subset = st.files.Restrict(touched)
			if subset.Len() == 0 && !st.hook.AlwaysRun {
				continue // nothing of this hook's to re-check
			}
		default:
			continue
		}

		batch = append(batch, st)
		invs = append(invs, executor.Invocation{Hook: st.hook, Files: subset, Env: st.env})
	}
	return batch, invs
}

// eligibleForReverify excludes hooks that never ran: skipped and
// env-errored hooks stay as they are.
func (st *hookState) eligibleForReverify() bool {
	switch st.status {
	case executor.StatusPassed, executor.StatusFailed, executor.StatusModified:
		return true
	}
	return false
}

func (r *reconciler) isDownstream(st *hookState, modified []*hookState) bool {
	for _, m := range modified {
		if m == st {
			continue
		}
		if registry.TypesOverlap(st.hook, m.hook) {
			return true
		}
	}
	return false
}

func modifiedStates(states []*hookState) []*hookState {
	var out []*hookState
	for _, st := range states {
		if st.status == executor.StatusModified {
			out = append(out, st)
		}
	}
	return out
}

/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package engine orchestrates a hook run: file selection, environment
// materialization, scheduling, auto-fix reconciliation, and report
// assembly. The registry is an explicit value handed in by the caller;
// the engine holds no ambient state between runs.
package engine

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/hookrun/internal/envmgr"
	"github.com/fulmenhq/hookrun/internal/executor"
	"github.com/fulmenhq/hookrun/internal/gitctx"
	"github.com/fulmenhq/hookrun/internal/registry"
	"github.com/fulmenhq/hookrun/internal/report"
	"github.com/fulmenhq/hookrun/pkg/config"
	"github.com/fulmenhq/hookrun/pkg/logger"
)

// FileSelector is the version-control collaborator the engine consumes.
type FileSelector interface {
	Select(scope gitctx.Scope) (*gitctx.FileSet, error)
	StageFiles(paths []string) error
}

// EnvProvider resolves hook environments (see envmgr.Manager).
type EnvProvider interface {
	Ensure(ctx context.Context, hookID string, env *envmgr.Environment) (*envmgr.Environment, error)
}

// Options selects what one run covers.
type Options struct {
	Stage   registry.Stage
	Scope   gitctx.Scope
	Version string // tool version stamped into the report
}

// Engine runs hooks for one stage at a time. Stages are processed
// sequentially by the caller; a run never outlives its report.
type Engine struct {
	reg      *registry.Registry
	selector FileSelector
	envs     EnvProvider
	runner   executor.InvocationRunner
	cfg      config.RunConfig
}

// New assembles an engine from its collaborators.
func New(reg *registry.Registry, selector FileSelector, envs EnvProvider, runner executor.InvocationRunner, cfg config.RunConfig) *Engine {
	return &Engine{reg: reg, selector: selector, envs: envs, runner: runner, cfg: cfg}
}

// hookState accumulates a hook's final reportable result across its
// initial invocation and any reconciliation re-runs.
type hookState struct {
	hook     *registry.Hook
	files    *gitctx.FileSet
	env      *envmgr.Environment
	status   executor.Status
	cause    executor.Cause
	exitCode int
	duration time.Duration
	output   string
	fixed    bool
}

// Run executes the stage and returns the aggregated report. Only fatal
// pre-execution conditions (VcsUnavailable; nothing else reaches here,
// the registry is validated at load) return an error; per-hook failures
// live inside the report.
func (e *Engine) Run(ctx context.Context, opts Options) (*report.RunReport, error) {
	start := time.Now()

	fs, err := e.selector.Select(opts.Scope)
	if err != nil {
		return nil, err
	}
	logger.Info("selected files",
		logger.String("scope", opts.Scope.String()),
		logger.Int("count", fs.Len()))

	matches := e.reg.HooksFor(opts.Stage, fs)
	states := make([]*hookState, len(matches))
	for i, m := range matches {
		states[i] = &hookState{hook: m.Hook, files: m.Files}
	}

	skipRequested := parseSkipList(os.Getenv("SKIP"))
	e.resolveEnvironments(ctx, states, skipRequested)

	// Fixers run first within the stage so checkers see fixed content
	fixers, checkers := partition(states)
	pool := executor.NewPool(e.cfg.Workers(), e.reg.FailFast)

	runBatch := func(batch []*hookState) []string {
		invs := make([]executor.Invocation, len(batch))
		for i, st := range batch {
			invs[i] = executor.Invocation{Hook: st.hook, Files: st.files, Env: st.env}
		}
		outcomes := pool.RunBatch(ctx, e.runner, invs)
		var touched []string
		for i, out := range outcomes {
			batch[i].record(out, e.cfg.OutputLimit)
			touched = append(touched, out.Touched...)
		}
		return touched
	}

	var touched []string
	touched = append(touched, runBatch(runnable(fixers, skipRequested))...)
	touched = append(touched, runBatch(runnable(checkers, skipRequested))...)

	rec := &reconciler{engine: e, pool: pool, limit: e.cfg.FixLoopLimit}
	loopResult := rec.run(ctx, states, touched)

	allTouched := dedupe(append(touched, rec.touched...))
	e.finishStates(states, loopResult)

	if loopResult == loopConverged && len(allTouched) > 0 &&
		opts.Scope.Kind == gitctx.ScopeStaged && e.cfg.AutoStage {
		if err := e.selector.StageFiles(allTouched); err != nil {
			logger.Warn("failed to re-stage fixed files", logger.Err(err))
		} else {
			logger.Info("re-staged fixed files", logger.Int("count", len(allTouched)))
		}
	}

	results := make([]report.HookResult, len(states))
	for i, st := range states {
		results[i] = st.result()
	}
	rpt := report.Aggregate(string(opts.Stage), opts.Scope.String(), opts.Version, time.Since(start), results)
	logger.Info("run complete",
		logger.String("stage", string(opts.Stage)),
		logger.Bool("success", rpt.Success),
		logger.Duration("took", rpt.Duration))
	return rpt, nil
}

// resolveEnvironments materializes every needed environment up front,
// concurrently. A setup failure scopes to its hook: the state becomes
// errored and the rest of the run proceeds.
func (e *Engine) resolveEnvironments(ctx context.Context, states []*hookState, skip map[string]bool) {
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers())
	for _, st := range states {
		st := st
		if skip[st.hook.ID] {
			continue
		}
		// Same predicate the runner skips on: a hook that will never
		// spawn must not trigger a toolchain install.
		if st.files.Len() == 0 && !st.hook.AlwaysRun {
			continue
		}
		g.Go(func() error {
			env, err := e.envs.Ensure(ctx, st.hook.ID, envmgr.EnvironmentFor(st.hook))
			if err != nil {
				st.status = executor.StatusErrored
				st.cause = executor.CauseEnvSetup
				st.output = err.Error()
				logger.Error("environment setup failed",
					logger.String("hook", st.hook.ID), logger.Err(err))
				return nil
			}
			st.env = env
			return nil
		})
	}
	_ = g.Wait()
}

// runnable filters a batch down to the states that still need their
// initial invocation, marking skip-requested hooks as they pass by.
func runnable(batch []*hookState, skip map[string]bool) []*hookState {
	var out []*hookState
	for _, st := range batch {
		switch {
		case skip[st.hook.ID]:
			st.status = executor.StatusSkipped
			st.cause = executor.CauseSkipRequest
		case st.status != "": // env setup already errored it
		default:
			out = append(out, st)
		}
	}
	return out
}

func partition(states []*hookState) (fixers, checkers []*hookState) {
	for _, st := range states {
		if st.hook.Fixer {
			fixers = append(fixers, st)
		} else {
			checkers = append(checkers, st)
		}
	}
	return fixers, checkers
}

// record folds an invocation outcome into the hook's state. Re-runs
// accumulate duration; status reflects the latest verification.
func (st *hookState) record(out executor.Outcome, outputLimit int) {
	if out.Status == executor.StatusPassed && st.status == executor.StatusModified {
		st.fixed = true
	}
	st.status = out.Status
	st.cause = out.Cause
	st.exitCode = out.ExitCode
	st.duration += out.Duration
	if combined := combineOutput(out, outputLimit); combined != "" {
		st.output = combined
	}
}

func (st *hookState) result() report.HookResult {
	hr := report.HookResult{
		ID:       st.hook.ID,
		Name:     st.hook.Display(),
		Status:   st.status,
		Cause:    st.cause,
		Fixed:    st.fixed,
		ExitCode: st.exitCode,
		Duration: st.duration,
		Files:    st.files.Len(),
	}
	if st.status == executor.StatusFailed || st.status == executor.StatusErrored || st.hook.Verbose {
		hr.Output = st.output
	}
	return hr
}

// finishStates resolves any state the loop left unverified.
func (e *Engine) finishStates(states []*hookState, loopResult loopState) {
	for _, st := range states {
		switch {
		case st.status == executor.StatusModified && loopResult == loopBoundExceeded:
			st.status = executor.StatusErrored
			st.cause = executor.CauseFixLoop
		case st.status == executor.StatusModified && loopResult == loopCancelled:
			// The fixer's output was never re-verified; reporting this
			// as skipped would let the run succeed on unchecked content.
			st.status = executor.StatusErrored
			st.cause = executor.CauseCancelled
		case st.status == "":
			// never ran at all within a cancelled or aborted stage
			st.status = executor.StatusSkipped
			st.cause = executor.CauseStageAborted
		}
	}
}

func combineOutput(out executor.Outcome, limit int) string {
	combined := out.Stdout
	if out.Stderr != "" {
		if combined != "" && !strings.HasSuffix(combined, "\n") {
			combined += "\n"
		}
		combined += out.Stderr
	}
	if limit > 0 && len(combined) > limit {
		// Back off to a rune boundary so the excerpt stays valid UTF-8
		cut := limit
		for cut > 0 && !utf8.RuneStart(combined[cut]) {
			cut--
		}
		combined = combined[:cut] + fmt.Sprintf("\n… %d bytes dropped", len(combined)-cut)
	}
	return combined
}

func parseSkipList(raw string) map[string]bool {
	skip := make(map[string]bool)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			skip[id] = true
		}
	}
	return skip
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

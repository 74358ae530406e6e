/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package report aggregates hook outcomes into a run report and renders
// it for humans and machines with identical ordering.
package report

import (
	"time"

	"github.com/fulmenhq/hookrun/internal/executor"
	"github.com/fulmenhq/hookrun/pkg/exitcode"
)

// HookResult is the final, per-hook line of the report. One entry per
// declared hook in declaration order, regardless of how many
// invocations reconciliation added.
type HookResult struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Status   executor.Status `json:"status"`
	Cause    executor.Cause  `json:"cause,omitempty"`
	Fixed    bool            `json:"fixed"` // passed only after automatic fixes
	ExitCode int             `json:"exit_code"`
	Duration time.Duration   `json:"duration"`
	Files    int             `json:"files"` // matched subset size
	Output   string          `json:"output,omitempty"`
}

// Summary rolls the results up for quick CI consumption.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
	Fixed   int `json:"fixed"`
}

// RunReport is the complete result of one engine run.
type RunReport struct {
	GeneratedAt  time.Time     `json:"generated_at"`
	Tool         string        `json:"tool"`
	Version      string        `json:"version"`
	Stage        string        `json:"stage"`
	Scope        string        `json:"scope"`
	Duration     time.Duration `json:"duration"`
	Results      []HookResult  `json:"results"`
	Summary      Summary       `json:"summary"`
	Success      bool          `json:"success"`
	FixesApplied bool          `json:"fixes_applied"`
}

// Aggregate computes the summary and overall verdict from per-hook
// results. Overall success requires every hook to have passed or been
// skipped; a modified status surviving to this point means
// reconciliation never verified it, which is a failure.
func Aggregate(stage, scope, version string, duration time.Duration, results []HookResult) *RunReport {
	r := &RunReport{
		GeneratedAt: time.Now(),
		Tool:        "hookrun",
		Version:     version,
		Stage:       stage,
		Scope:       scope,
		Duration:    duration,
		Results:     results,
	}

	success := true
	for _, hr := range results {
		r.Summary.Total++
		switch hr.Status {
		case executor.StatusPassed:
			r.Summary.Passed++
		case executor.StatusFailed:
			r.Summary.Failed++
			success = false
		case executor.StatusErrored:
			r.Summary.Errored++
			success = false
		case executor.StatusSkipped:
			r.Summary.Skipped++
		default:
			// modified without re-verification, or anything unknown
			r.Summary.Errored++
			success = false
		}
		if hr.Fixed {
			r.Summary.Fixed++
			r.FixesApplied = true
		}
	}
	r.Success = success
	return r
}

// ExitCode maps the report to the CLI exit contract.
func (r *RunReport) ExitCode() int {
	if r.Success {
		return exitcode.Success
	}
	return exitcode.HookFailure
}

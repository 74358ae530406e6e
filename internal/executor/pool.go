/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package executor

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// InvocationRunner abstracts subprocess execution so scheduling can be
// tested without spawning anything.
type InvocationRunner interface {
	Run(ctx context.Context, inv Invocation) Outcome
}

// Pool schedules a batch of invocations over a bounded worker pool.
// Invocations whose file subsets intersect, where at least one hook is a
// declared mutator, are serialized into one chain to keep write races
// out of the working tree; everything else runs concurrently.
type Pool struct {
	Workers  int
	FailFast bool
}

// NewPool creates a pool with the given worker bound.
func NewPool(workers int, failFast bool) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{Workers: workers, FailFast: failFast}
}

// RunBatch executes all invocations and returns outcomes indexed the
// same as the input, so report order stays declaration order no matter
// how execution interleaves.
func (p *Pool) RunBatch(ctx context.Context, runner InvocationRunner, invs []Invocation) []Outcome {
	outcomes := make([]Outcome, len(invs))
	if len(invs) == 0 {
		return outcomes
	}

	chains := conflictChains(invs)

	var stop atomic.Bool
	var g errgroup.Group
	g.SetLimit(p.Workers)

	for _, chain := range chains {
		chain := chain
		g.Go(func() error {
			for _, idx := range chain {
				switch {
				case ctx.Err() != nil:
					outcomes[idx] = skippedOutcome(invs[idx].Hook.ID, CauseCancelled)
				case stop.Load():
					outcomes[idx] = skippedOutcome(invs[idx].Hook.ID, CauseFailFast)
				default:
					out := runner.Run(ctx, invs[idx])
					outcomes[idx] = out
					if p.FailFast && (out.Status == StatusFailed || out.Status == StatusErrored) {
						stop.Store(true)
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// conflictChains partitions invocation indices into chains that must run
// sequentially. Chains are connected components under the "conflicts"
// relation; within a chain, declaration order is preserved.
func conflictChains(invs []Invocation) [][]int {
	parent := make([]int, len(invs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) { parent[find(a)] = find(b) }

	for i := 0; i < len(invs); i++ {
		for j := i + 1; j < len(invs); j++ {
			if conflicts(invs[i], invs[j]) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	var order []int
	for i := range invs {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}

	chains := make([][]int, 0, len(order))
	for _, root := range order {
		chains = append(chains, groups[root])
	}
	return chains
}

// conflicts reports whether two invocations may not run concurrently:
// overlapping file subsets where either hook mutates.
func conflicts(a, b Invocation) bool {
	if !a.Hook.Fixer && !b.Hook.Fixer {
		return false
	}
	seen := make(map[string]bool, a.Files.Len())
	for _, f := range a.Files.Files {
		seen[f.Path] = true
	}
	for _, f := range b.Files.Files {
		if seen[f.Path] {
			return true
		}
	}
	return false
}

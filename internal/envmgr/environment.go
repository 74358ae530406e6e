/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/

// Package envmgr materializes and caches the runtime environments hooks
// declare. Environments are content-addressed: the cache key is a hash
// of the toolchain kind, version, and dependency set, so every hook
// sharing a declaration shares one materialized tree.
package envmgr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fulmenhq/hookrun/internal/registry"
)

// Environment is a materialized, reusable runtime for a hook's declared
// toolchain. Never mutated after creation; read-only at execution time.
type Environment struct {
	Language string
	Version  string
	Deps     []string
	Root     string // cache directory; empty for identity environments
}

// EnvironmentFor derives the environment declaration for a hook. The
// dependency set is sorted so the hash is order-independent.
func EnvironmentFor(hook *registry.Hook) *Environment {
	deps := make([]string, len(hook.AdditionalDeps))
	copy(deps, hook.AdditionalDeps)
	sort.Strings(deps)
	return &Environment{
		Language: hook.Language,
		Version:  hook.LanguageVersion,
		Deps:     deps,
	}
}

// Identity reports whether the environment needs no materialization:
// system and script hooks run against the ambient toolchain.
func (e *Environment) Identity() bool {
	return e.Language == "system" || e.Language == "script"
}

// Hash returns the deterministic content hash identifying this
// environment in the cache.
func (e *Environment) Hash() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n", e.Language, e.Version)
	for _, d := range e.Deps {
		fmt.Fprintf(h, "%s\n", d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Environ builds the per-invocation environment snapshot. Each call
// returns a fresh copy so no hook can leak variable mutations into
// another invocation.
func (e *Environment) Environ() []string {
	base := os.Environ()
	env := make([]string, 0, len(base)+2)
	if e.Root == "" {
		return append(env, base...)
	}

	bin := filepath.Join(e.Root, "bin")
	pathSeen := false
	for _, kv := range base {
		if strings.HasPrefix(kv, "PATH=") {
			env = append(env, "PATH="+bin+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
			pathSeen = true
			continue
		}
		env = append(env, kv)
	}
	if !pathSeen {
		env = append(env, "PATH="+bin)
	}
	if e.Language == "python" {
		env = append(env, "VIRTUAL_ENV="+e.Root)
	}
	return env
}

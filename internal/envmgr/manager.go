/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package envmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/singleflight"

	"github.com/fulmenhq/hookrun/pkg/logger"
)

// ErrSetupFailed scopes an environment failure to the hook that needed
// it. Other hooks proceed; the overall run still fails.
type ErrSetupFailed struct {
	HookID string
	Cause  error
}

func (e *ErrSetupFailed) Error() string {
	return fmt.Sprintf("environment setup failed for hook %s: %v", e.HookID, e.Cause)
}

func (e *ErrSetupFailed) Unwrap() error { return e.Cause }

// materializeFunc installs an environment into env.Root. Swapped out in
// tests so no real toolchains are required.
type materializeFunc func(ctx context.Context, env *Environment) error

// Manager ensures hook environments exist, with single-flight semantics
// per content hash: concurrent requests for the same hash block on one
// materialization and share its result. Failed attempts are never
// cached, so the next run retries from scratch.
type Manager struct {
	cacheDir    string
	group       singleflight.Group
	materialize materializeFunc
}

// NewManager creates a manager backed by the given cache directory.
func NewManager(cacheDir string) *Manager {
	return &Manager{
		cacheDir:    cacheDir,
		materialize: materializeToolchain,
	}
}

const sentinelName = ".hookrun-env-ok"

// Ensure resolves the hook's environment, materializing it on first use.
// hookID only decorates errors; the cache key is the environment hash.
func (m *Manager) Ensure(ctx context.Context, hookID string, env *Environment) (*Environment, error) {
	if env.Identity() {
		return env, nil
	}

	hash := env.Hash()
	resolved := *env
	resolved.Root = filepath.Join(m.cacheDir, env.Language+"-"+hash[:12])

	_, err, _ := m.group.Do(hash, func() (interface{}, error) {
		if m.isMaterialized(resolved.Root) {
			return nil, nil
		}
		return nil, m.materializeWithRetry(ctx, &resolved)
	})
	if err != nil {
		return nil, &ErrSetupFailed{HookID: hookID, Cause: err}
	}
	return &resolved, nil
}

// Clean removes the entire environment cache. The only eviction path.
func (m *Manager) Clean() error {
	return os.RemoveAll(m.cacheDir)
}

func (m *Manager) isMaterialized(root string) bool {
	_, err := os.Stat(filepath.Join(root, sentinelName))
	return err == nil
}

// materializeWithRetry runs the materializer with a small bounded retry
// for transient causes only. Deterministic failures (missing toolchain,
// version conflict) surface immediately.
func (m *Manager) materializeWithRetry(ctx context.Context, env *Environment) error {
	logger.Info("materializing environment",
		logger.String("language", env.Language),
		logger.String("root", env.Root))
	start := time.Now()

	err := retry.Do(
		func() error {
			if err := os.MkdirAll(env.Root, 0o750); err != nil {
				return err
			}
			if err := m.materialize(ctx, env); err != nil {
				// Leave no partial tree behind; a half-installed
				// environment must not be mistaken for a cached one.
				_ = os.RemoveAll(env.Root)
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
	if err != nil {
		return err
	}

	if werr := os.WriteFile(filepath.Join(env.Root, sentinelName), []byte(env.Hash()+"\n"), 0o600); werr != nil {
		return werr
	}
	logger.Info("environment ready",
		logger.String("language", env.Language),
		logger.Duration("took", time.Since(start)))
	return nil
}

// isTransient classifies an error as worth retrying: timeouts and
// network hiccups, never missing tools or version conflicts.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "timed out", "temporar", "network", "connection refused", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// materializeToolchain installs the declared toolchain and dependencies
// under env.Root using the ambient package managers.
func materializeToolchain(ctx context.Context, env *Environment) error {
	switch env.Language {
	case "python":
		python := "python3"
		if env.Version != "" {
			python = "python" + env.Version
		}
		if err := runSetup(ctx, env.Root, python, "-m", "venv", env.Root); err != nil {
			return err
		}
		if len(env.Deps) > 0 {
			args := append([]string{"install"}, env.Deps...)
			return runSetup(ctx, env.Root, filepath.Join(env.Root, "bin", "pip"), args...)
		}
		return nil
	case "node":
		if len(env.Deps) == 0 {
			return nil
		}
		args := append([]string{"install", "--prefix", env.Root, "--global-style", "--no-save"}, env.Deps...)
		return runSetup(ctx, env.Root, "npm", args...)
	case "go":
		if len(env.Deps) == 0 {
			return nil
		}
		for _, dep := range env.Deps {
			if err := runSetupEnv(ctx, env.Root, []string{"GOBIN=" + filepath.Join(env.Root, "bin")}, "go", "install", dep); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("no materializer for language %q", env.Language)
	}
}

func runSetup(ctx context.Context, dir, name string, args ...string) error {
	return runSetupEnv(ctx, dir, nil, name, args...)
}

func runSetupEnv(ctx context.Context, dir string, extraEnv []string, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s: %w", name, exec.ErrNotFound)
	}
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 -- toolchain commands are built from the hook declaration
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
